package weightfile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFloat32s(t *testing.T) {
	want := []float32{0, 1.5, -2.25, 3e7}
	buf := make([]byte, len(want)*4)
	for i, v := range want {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	f, err := Open(writeTemp(t, buf))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	got, err := f.Float32s(0, len(want))
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %g, want %g", i, got[i], want[i])
		}
	}

	// Offset addressing.
	tail, err := f.Float32s(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if tail[0] != 1.5 || tail[1] != -2.25 {
		t.Errorf("offset read = %v, want [1.5 -2.25]", tail)
	}
}

func TestFloat16s(t *testing.T) {
	// 1.0 and -2.0 in half precision.
	buf := []byte{0x00, 0x3C, 0x00, 0xC0}
	f, err := Open(writeTemp(t, buf))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	got, err := f.Float16s(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1.0 || got[1] != -2.0 {
		t.Errorf("got %v, want [1 -2]", got)
	}
}

func TestRangeChecks(t *testing.T) {
	f, err := Open(writeTemp(t, make([]byte, 16)))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Float32s(0, 5); err == nil {
		t.Error("read past end should fail")
	}
	if _, err := f.Float32s(-4, 1); err == nil {
		t.Error("negative offset should fail")
	}
	if _, err := f.Float16s(10, 4); err == nil {
		t.Error("f16 read past end should fail")
	}
}

func TestCloseIdempotent(t *testing.T) {
	f, err := Open(writeTemp(t, make([]byte, 8)))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if f.Data != nil {
		t.Error("Data should be nil after Close")
	}
}

func TestOpenEmpty(t *testing.T) {
	f, err := Open(writeTemp(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Data) != 0 {
		t.Errorf("empty file mapped %d bytes", len(f.Data))
	}
	if _, err := f.Float32s(0, 0); err != nil {
		t.Errorf("zero-length read should succeed, got %v", err)
	}
	_ = f.Close()
}
