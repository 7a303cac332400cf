package blockfmt

import "fmt"

// Field describes one field of a block layout. Offset is in bytes from
// the start of the block. Packed code regions are addressed bit-wise
// inside the field via GetBits/PutBits; Bits is the per-element width
// and Count the element count (1 for scalar fields).
type Field struct {
	Name   string
	Offset int
	Bits   int
	Count  int
}

// Bytes returns the total size of the field in bytes.
func (f Field) Bytes() int {
	return (f.Bits*f.Count + 7) / 8
}

// Layout is the schema descriptor for one block family. It is the
// single source of truth for where fields live; offset constants used
// by the codecs are validated against it in tests.
type Layout struct {
	Type   Type
	Fields []Field
}

// Size returns the block size implied by the layout.
func (l Layout) Size() int {
	end := 0
	for _, f := range l.Fields {
		if e := f.Offset + f.Bytes(); e > end {
			end = e
		}
	}
	return end
}

// Field returns the named field.
func (l Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var layouts = map[Type]Layout{
	TypeQ4_0: {Type: TypeQ4_0, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "qs", Offset: 2, Bits: 4, Count: QK},
	}},
	TypeQ4_1: {Type: TypeQ4_1, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "m", Offset: 2, Bits: 16, Count: 1},
		{Name: "qs", Offset: 4, Bits: 4, Count: QK},
	}},
	TypeQ5_0: {Type: TypeQ5_0, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "qh", Offset: 2, Bits: 1, Count: QK},
		{Name: "qs", Offset: 6, Bits: 4, Count: QK},
	}},
	TypeQ5_1: {Type: TypeQ5_1, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "m", Offset: 2, Bits: 16, Count: 1},
		{Name: "qh", Offset: 4, Bits: 1, Count: QK},
		{Name: "qs", Offset: 8, Bits: 4, Count: QK},
	}},
	TypeQ8_0: {Type: TypeQ8_0, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "qs", Offset: 2, Bits: 8, Count: QK},
	}},
	TypeQ3H: {Type: TypeQ3H, Fields: []Field{
		{Name: "d", Offset: 0, Bits: 16, Count: 1},
		{Name: "qs", Offset: 2, Bits: 3, Count: QKH},
		{Name: "outlier_count", Offset: 98, Bits: 8, Count: 1},
		{Name: "outlier_idx", Offset: 99, Bits: 8, Count: Q3HOutlierCap},
		{Name: "pad", Offset: 107, Bits: 8, Count: 1},
		{Name: "outlier_val", Offset: 108, Bits: 16, Count: Q3HOutlierCap},
	}},
}

// LayoutOf returns the schema descriptor for t.
func LayoutOf(t Type) (Layout, bool) {
	l, ok := layouts[t]
	return l, ok
}

// GetBits reads width bits starting at bit position off within b.
// Bit 0 is the least-significant bit of b[0]; a value spanning bytes
// continues into the low bits of the next byte (little-endian bit
// order). width must be in [1, 16].
func GetBits(b []byte, off, width int) (uint32, error) {
	if width < 1 || width > 16 {
		return 0, fmt.Errorf("blockfmt: bit width %d out of range", width)
	}
	if off < 0 || off+width > len(b)*8 {
		return 0, fmt.Errorf("blockfmt: bit range [%d,%d) outside %d-byte region", off, off+width, len(b))
	}
	var v uint32
	for i := 0; i < width; i++ {
		bit := off + i
		if b[bit/8]>>(bit%8)&1 == 1 {
			v |= 1 << i
		}
	}
	return v, nil
}

// PutBits writes the low width bits of v at bit position off within b,
// using the same bit order as GetBits.
func PutBits(b []byte, off, width int, v uint32) error {
	if width < 1 || width > 16 {
		return fmt.Errorf("blockfmt: bit width %d out of range", width)
	}
	if off < 0 || off+width > len(b)*8 {
		return fmt.Errorf("blockfmt: bit range [%d,%d) outside %d-byte region", off, off+width, len(b))
	}
	if v>>width != 0 {
		return fmt.Errorf("blockfmt: value %d does not fit in %d bits", v, width)
	}
	for i := 0; i < width; i++ {
		bit := off + i
		mask := byte(1) << (bit % 8)
		if v>>i&1 == 1 {
			b[bit/8] |= mask
		} else {
			b[bit/8] &^= mask
		}
	}
	return nil
}
