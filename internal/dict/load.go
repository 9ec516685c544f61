package dict

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/pelletier/go-toml/v2"
)

type fileEntry struct {
	Tag     string `toml:"tag"`
	VR      string `toml:"vr"`
	VM      string `toml:"vm"`
	Keyword string `toml:"keyword"`
	Name    string `toml:"name"`
}

type fileTable struct {
	Entries []fileEntry `toml:"entry"`
}

// LoadFile reads a TOML dictionary and layers it over base.
func LoadFile(path string, base *Dictionary) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary load failed (%s): %w", path, err)
	}
	d, err := parse(data, base)
	if err != nil {
		return nil, fmt.Errorf("dictionary parse failed (%s): %w", path, err)
	}
	return d, nil
}

// Load reads a TOML dictionary from r and layers it over base.
func Load(r io.Reader, base *Dictionary) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data, base)
}

func parse(data []byte, base *Dictionary) (*Dictionary, error) {
	var table fileTable
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(table.Entries))
	for i, fe := range table.Entries {
		entry, err := fe.entry()
		if err != nil {
			return nil, fmt.Errorf("entry[%d] invalid: %w", i, err)
		}
		entries = append(entries, entry)
	}
	if base == nil {
		return New(entries...), nil
	}
	return base.Extend(entries...), nil
}

func (fe fileEntry) entry() (Entry, error) {
	tag, err := dataset.ParseTag(strings.TrimSpace(fe.Tag))
	if err != nil {
		return Entry{}, err
	}
	vr, ok := dataset.ParseVRString(strings.ToUpper(strings.TrimSpace(fe.VR)))
	if !ok {
		return Entry{}, fmt.Errorf("unknown vr %q", fe.VR)
	}
	vmText := fe.VM
	if strings.TrimSpace(vmText) == "" {
		vmText = "1"
	}
	vm, err := ParseVM(vmText)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Tag: tag, VR: vr, VM: vm, Keyword: strings.TrimSpace(fe.Keyword), Name: strings.TrimSpace(fe.Name)}, nil
}
