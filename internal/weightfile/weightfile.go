// Package weightfile maps raw full-precision weight dumps read-only so
// the quantize driver can slice per-tensor views without copying the
// whole model. It is a thin input collaborator, not a container
// format: the file is a bare little-endian f32 or f16 array.
package weightfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/strataml/strata/pkg/blockfmt"
)

// File is an open weight dump. Data stays valid until Close.
type File struct {
	Data    []byte
	mmapped bool
}

// Open maps path read-only, falling back to a full read if mmap is
// unavailable. The returned file must be closed to release a mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("weightfile: cannot index %d bytes on this architecture", size64)
	}
	size := int(size64)
	if size == 0 {
		return &File{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &File{Data: data, mmapped: true}, nil
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("weightfile: read %s: %w", path, err)
	}
	return &File{Data: buf}, nil
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f.mmapped && f.Data != nil {
		data := f.Data
		f.Data = nil
		f.mmapped = false
		return unix.Munmap(data)
	}
	f.Data = nil
	return nil
}

// Float32s decodes count f32 elements starting at byte offset off.
func (f *File) Float32s(off int64, count int) ([]float32, error) {
	end := off + int64(count)*4
	if off < 0 || count < 0 || end > int64(len(f.Data)) {
		return nil, fmt.Errorf("weightfile: f32 range [%d,%d) outside %d-byte file", off, end, len(f.Data))
	}
	out := make([]float32, count)
	for i := range out {
		bits := binary.LittleEndian.Uint32(f.Data[off+int64(i)*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// Float16s decodes count f16 elements starting at byte offset off,
// widened to float32.
func (f *File) Float16s(off int64, count int) ([]float32, error) {
	end := off + int64(count)*2
	if off < 0 || count < 0 || end > int64(len(f.Data)) {
		return nil, fmt.Errorf("weightfile: f16 range [%d,%d) outside %d-byte file", off, end, len(f.Data))
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = blockfmt.F16ToF32(f.Data[off+int64(i)*2:])
	}
	return out, nil
}
