package codec

import (
	"testing"

	"github.com/strataml/strata/pkg/blockfmt"
)

// The decode paths address fields through the offset constants; this
// pins them to the layout tables so the two cannot drift apart.
func TestOffsetsMatchLayout(t *testing.T) {
	tests := []struct {
		typ   blockfmt.Type
		field string
		off   int
	}{
		{blockfmt.TypeQ4_0, "d", q40ScaleOff},
		{blockfmt.TypeQ4_0, "qs", q40CodesOff},
		{blockfmt.TypeQ4_1, "d", q41ScaleOff},
		{blockfmt.TypeQ4_1, "m", q41MinOff},
		{blockfmt.TypeQ4_1, "qs", q41CodesOff},
		{blockfmt.TypeQ5_0, "d", q50ScaleOff},
		{blockfmt.TypeQ5_0, "qh", q50HighOff},
		{blockfmt.TypeQ5_0, "qs", q50CodesOff},
		{blockfmt.TypeQ5_1, "d", q51ScaleOff},
		{blockfmt.TypeQ5_1, "m", q51MinOff},
		{blockfmt.TypeQ5_1, "qh", q51HighOff},
		{blockfmt.TypeQ5_1, "qs", q51CodesOff},
		{blockfmt.TypeQ8_0, "d", q80ScaleOff},
		{blockfmt.TypeQ8_0, "qs", q80CodesOff},
		{blockfmt.TypeQ3H, "d", q3hScaleOff},
		{blockfmt.TypeQ3H, "qs", q3hCodesOff},
		{blockfmt.TypeQ3H, "outlier_count", q3hCountOff},
		{blockfmt.TypeQ3H, "outlier_idx", q3hIdxOff},
		{blockfmt.TypeQ3H, "outlier_val", q3hValsOff},
	}
	for _, tc := range tests {
		layout, ok := blockfmt.LayoutOf(tc.typ)
		if !ok {
			t.Fatalf("%s: no layout", tc.typ)
		}
		f, ok := layout.Field(tc.field)
		if !ok {
			t.Fatalf("%s: no field %q", tc.typ, tc.field)
		}
		if f.Offset != tc.off {
			t.Errorf("%s.%s: layout offset %d, codec constant %d", tc.typ, tc.field, f.Offset, tc.off)
		}
	}
}

func TestDequantizeMatchesQuantizeInput(t *testing.T) {
	src := make([]float32, 2*blockfmt.QK)
	for i := range src {
		src[i] = float32(i%9-4) * 0.25
	}
	data, _, err := Quantize(blockfmt.TypeQ8_0, src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Dequantize(blockfmt.TypeQ8_0, data, len(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(src) {
		t.Fatalf("length %d, want %d", len(got), len(src))
	}
	// Error stays within half a quantization step (amax/127).
	for i, v := range got {
		if diff := v - src[i]; diff > 5e-3 || diff < -5e-3 {
			t.Errorf("element %d: got %g, want %g", i, v, src[i])
		}
	}
}

func TestDequantizeLengthMismatch(t *testing.T) {
	data := make([]byte, blockfmt.BlockBytesQ8_0)
	if _, err := Dequantize(blockfmt.TypeQ8_0, data, 2*blockfmt.QK); err == nil {
		t.Fatal("short data should fail")
	}
	if _, err := Dequantize(blockfmt.TypeQ8_0, data, blockfmt.QK-1); err == nil {
		t.Fatal("non-multiple length should fail")
	}
}
