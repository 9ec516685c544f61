package codec

import (
	"encoding/binary"

	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// wire builds little-endian streams by hand.
type wire struct {
	b []byte
}

func (w *wire) tag(t dataset.Tag) *wire {
	w.b = binary.LittleEndian.AppendUint16(w.b, t.Group)
	w.b = binary.LittleEndian.AppendUint16(w.b, t.Element)
	return w
}

// short appends an explicit short-form element.
func (w *wire) short(t dataset.Tag, vr string, value []byte) *wire {
	w.tag(t)
	w.b = append(w.b, vr[0], vr[1])
	w.b = binary.LittleEndian.AppendUint16(w.b, uint16(len(value)))
	w.b = append(w.b, value...)
	return w
}

// long appends an explicit long-form header with length, then value.
func (w *wire) long(t dataset.Tag, vr string, length uint32, value []byte) *wire {
	w.tag(t)
	w.b = append(w.b, vr[0], vr[1], 0, 0)
	w.b = binary.LittleEndian.AppendUint32(w.b, length)
	w.b = append(w.b, value...)
	return w
}

// implicit appends an implicit header with length, then value.
func (w *wire) implicit(t dataset.Tag, length uint32, value []byte) *wire {
	w.tag(t)
	w.b = binary.LittleEndian.AppendUint32(w.b, length)
	w.b = append(w.b, value...)
	return w
}

// marker appends an item or delimiter header.
func (w *wire) marker(t dataset.Tag, length uint32) *wire {
	return w.implicit(t, length, nil)
}

func (w *wire) raw(p ...byte) *wire {
	w.b = append(w.b, p...)
	return w
}

func (w *wire) bytes() []byte {
	return w.b
}

var (
	tagCharset     = dataset.NewTag(0x0008, 0x0005)
	tagModality    = dataset.NewTag(0x0008, 0x0060)
	tagRefImageSeq = dataset.NewTag(0x0008, 0x1140)
	tagRefClass    = dataset.NewTag(0x0008, 0x1150)
	tagRefInstance = dataset.NewTag(0x0008, 0x1155)
	tagPatientName = dataset.NewTag(0x0010, 0x0010)
	tagPatientID   = dataset.NewTag(0x0010, 0x0020)
	tagRefPixelX0  = dataset.NewTag(0x0018, 0x6020)
	tagDeltaX      = dataset.NewTag(0x0018, 0x602C)
	tagPosition    = dataset.NewTag(0x0020, 0x0032)
	tagFrameIncr   = dataset.NewTag(0x0028, 0x0009)
	tagRows        = dataset.NewTag(0x0028, 0x0010)
	tagColumns     = dataset.NewTag(0x0028, 0x0011)
	tagRedLUTData  = dataset.NewTag(0x0028, 0x1201)
	tagPrivCreator = dataset.NewTag(0x0029, 0x0010)
	tagPrivData    = dataset.NewTag(0x0029, 0x1010)
	tagIconSeq     = dataset.NewTag(0x0088, 0x0200)
	tagTextValue   = dataset.NewTag(0x0040, 0xA160)
	tagDocument    = dataset.NewTag(0x0042, 0x0011)
)

// sampleRecord uses dictionary VRs so it survives implicit encodings too.
func sampleRecord() *dataset.Record {
	return dataset.NewRecord(
		dataset.NewString(tagCharset, dataset.CS, "ISO_IR 100"),
		dataset.NewString(tagModality, dataset.CS, "MR"),
		dataset.NewUndefinedSequence(tagRefImageSeq,
			dataset.NewItem(
				dataset.NewString(tagRefClass, dataset.UI, "1.2.840.10008.5.1.4.1.1.4"),
				dataset.NewString(tagRefInstance, dataset.UI, "1.2.3.4.5"),
			),
			dataset.NewUndefinedItem(
				dataset.NewString(tagRefClass, dataset.UI, "1.2.840.10008.5.1.4.1.1.4"),
			),
		),
		dataset.NewString(tagPatientName, dataset.PN, "Doe^Jane"),
		dataset.NewString(tagPatientID, dataset.LO, "PID-0001"),
		dataset.NewNumeric(tagRefPixelX0, dataset.SL, dataset.Int32, dataset.Int(dataset.Int32, -7)),
		dataset.NewNumeric(tagDeltaX, dataset.FD, dataset.Float64, dataset.Float(dataset.Float64, 0.125)),
		dataset.NewString(tagPosition, dataset.DS, `1\2\3`),
		dataset.NewNumeric(tagFrameIncr, dataset.AT, dataset.Uint16,
			dataset.Uint(dataset.Uint16, 0x0018), dataset.Uint(dataset.Uint16, 0x1063)),
		dataset.NewNumeric(tagRows, dataset.US, dataset.Uint16, dataset.Uint(dataset.Uint16, 512)),
		dataset.NewNumeric(tagColumns, dataset.US, dataset.Uint16, dataset.Uint(dataset.Uint16, 256)),
		dataset.NewNumeric(tagRedLUTData, dataset.OW, dataset.Uint16,
			dataset.Uint(dataset.Uint16, 1), dataset.Uint(dataset.Uint16, 0xABCD), dataset.Uint(dataset.Uint16, 0xFFFF)),
		dataset.NewString(tagPrivCreator, dataset.LO, "ACME 1.0"),
		dataset.NewBytes(tagPrivData, dataset.UN, []byte{0x01, 0x02, 0x03, 0x04}),
		dataset.NewBytes(dataset.PixelDataTag, dataset.OW, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}),
	)
}

// treeOpts compares element trees, treating lengths as equal when they
// agree on being undefined.
var treeOpts = cmp.Options{
	cmp.AllowUnexported(dataset.Dataset{}),
	cmp.Comparer(func(a, b dataset.Length) bool { return a.IsUndefined() == b.IsUndefined() }),
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(dataset.Record{}, "Warnings"),
}

// shapeOpts compares element trees regardless of length style.
var shapeOpts = cmp.Options{
	cmp.AllowUnexported(dataset.Dataset{}),
	cmpopts.IgnoreFields(dataset.Element{}, "Length"),
	cmpopts.IgnoreFields(dataset.Item{}, "Length"),
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(dataset.Record{}, "Warnings"),
}
