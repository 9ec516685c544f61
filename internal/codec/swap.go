package codec

import "io"

// swapChunk bounds the scratch buffer used when writing swapped payloads.
const swapChunk = 4096

// swapInPlace reverses every width-byte word of b. A trailing partial word
// is left as is.
func swapInPlace(b []byte, width int) {
	if width < 2 {
		return
	}
	for i := 0; i+width <= len(b); i += width {
		word := b[i : i+width]
		for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
			word[l], word[r] = word[r], word[l]
		}
	}
}

// writeSwapped writes b with every width-byte word reversed without
// modifying b.
func writeSwapped(w io.Writer, b []byte, width int) error {
	if width < 2 {
		_, err := w.Write(b)
		return err
	}
	step := swapChunk - swapChunk%width
	buf := make([]byte, min(step, len(b)))
	for len(b) > 0 {
		n := min(step, len(b))
		chunk := buf[:n]
		copy(chunk, b[:n])
		swapInPlace(chunk, width)
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
