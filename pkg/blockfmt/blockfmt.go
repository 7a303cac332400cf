// Package blockfmt defines the wire layouts of the quantization block
// families: block lengths, byte sizes, code widths and biases, and the
// schema descriptors plus bit-level accessors used to read and write
// packed fields. Everything that knows where a byte lives belongs here;
// the transforms themselves live in pkg/codec.
//
// All multi-byte fields are little-endian. Scale and minimum fields are
// IEEE 754 half precision. Layouts are versioned wire formats: a block
// written by one release decodes identically in every other.
package blockfmt

import "fmt"

// Type identifies a block family.
type Type uint32

const (
	TypeF32  Type = 0
	TypeF16  Type = 1
	TypeQ4_0 Type = 2
	TypeQ4_1 Type = 3
	TypeQ5_0 Type = 6
	TypeQ5_1 Type = 7
	TypeQ8_0 Type = 8

	// TypeQ3H is the outlier-aware 3-bit super-block family, layout v1:
	// a flat packed 3-bit code stream with a single fp16 scale and a
	// fixed-capacity exact-value side table. The two-plane and split
	// low/high plane variants of this family are not valid wire data
	// for this type and are rejected rather than guessed at.
	TypeQ3H Type = 40
)

// Block lengths in elements.
const (
	QK  = 32  // legacy families
	QKH = 256 // Q3H super-block
)

// Block sizes in bytes.
const (
	BlockBytesQ4_0 = 18  // fp16 d + 16 nibble bytes
	BlockBytesQ4_1 = 20  // fp16 d + fp16 m + 16 nibble bytes
	BlockBytesQ5_0 = 22  // fp16 d + 4-byte high-bit plane + 16 nibble bytes
	BlockBytesQ5_1 = 24  // fp16 d + fp16 m + 4-byte high-bit plane + 16 nibble bytes
	BlockBytesQ8_0 = 34  // fp16 d + 32 int8 codes
	BlockBytesQ3H  = 124 // fp16 d + 96-byte 3-bit stream + outlier table
)

// Q3HOutlierCap is the fixed capacity of the Q3H outlier side table.
const Q3HOutlierCap = 8

// Code biases: value = (code - bias) * scale for symmetric families.
const (
	BiasQ4 = 8
	BiasQ5 = 16
	BiasQ3 = 4
)

func (t Type) String() string {
	switch t {
	case TypeF32:
		return "f32"
	case TypeF16:
		return "f16"
	case TypeQ4_0:
		return "q4_0"
	case TypeQ4_1:
		return "q4_1"
	case TypeQ5_0:
		return "q5_0"
	case TypeQ5_1:
		return "q5_1"
	case TypeQ8_0:
		return "q8_0"
	case TypeQ3H:
		return "q3h"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// ParseType resolves a family name as written in policy rule files.
func ParseType(s string) (Type, error) {
	switch s {
	case "f32":
		return TypeF32, nil
	case "f16":
		return TypeF16, nil
	case "q4_0":
		return TypeQ4_0, nil
	case "q4_1":
		return TypeQ4_1, nil
	case "q5_0":
		return TypeQ5_0, nil
	case "q5_1":
		return TypeQ5_1, nil
	case "q8_0":
		return TypeQ8_0, nil
	case "q3h":
		return TypeQ3H, nil
	default:
		return 0, fmt.Errorf("blockfmt: unknown type %q", s)
	}
}

// BlockLen returns the number of source elements per block, or 0 for
// types that are not block-quantized.
func (t Type) BlockLen() int {
	switch t {
	case TypeQ4_0, TypeQ4_1, TypeQ5_0, TypeQ5_1, TypeQ8_0:
		return QK
	case TypeQ3H:
		return QKH
	default:
		return 0
	}
}

// BlockBytes returns the encoded size of one block in bytes, or 0 for
// types that are not block-quantized.
func (t Type) BlockBytes() int {
	switch t {
	case TypeQ4_0:
		return BlockBytesQ4_0
	case TypeQ4_1:
		return BlockBytesQ4_1
	case TypeQ5_0:
		return BlockBytesQ5_0
	case TypeQ5_1:
		return BlockBytesQ5_1
	case TypeQ8_0:
		return BlockBytesQ8_0
	case TypeQ3H:
		return BlockBytesQ3H
	default:
		return 0
	}
}

// IsQuantized reports whether t is one of the block-quantized families.
func (t Type) IsQuantized() bool {
	return t.BlockLen() > 0
}

// RowBytes returns the encoded size of n elements of type t. n must be
// a multiple of the block length for quantized types.
func (t Type) RowBytes(n int) (int, error) {
	switch t {
	case TypeF32:
		return n * 4, nil
	case TypeF16:
		return n * 2, nil
	}
	bl := t.BlockLen()
	if bl == 0 {
		return 0, fmt.Errorf("blockfmt: no row size for %s", t)
	}
	if n%bl != 0 {
		return 0, fmt.Errorf("blockfmt: %s row length %d not a multiple of %d", t, n, bl)
	}
	return n / bl * t.BlockBytes(), nil
}
