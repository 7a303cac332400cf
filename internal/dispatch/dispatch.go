// Package dispatch fans codec work out across parallel lanes. Decode
// lanes each own a disjoint range of blocks and share nothing mutable,
// so any interleaving produces the same output as a sequential pass.
package dispatch

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/strataml/strata/pkg/blockfmt"
	"github.com/strataml/strata/pkg/codec"
)

// BlockOf maps a global element index to (block index, intra-block
// offset) for family t.
func BlockOf(t blockfmt.Type, elem int) (block, offset int) {
	bl := t.BlockLen()
	return elem / bl, elem % bl
}

// Dequantize decodes n elements of family t from data using up to
// workers parallel lanes (NumCPU when workers <= 0). Each lane walks
// its blocks pair by pair through codec.DecodePair and writes a
// disjoint range of the output.
func Dequantize(ctx context.Context, t blockfmt.Type, data []byte, n, workers int) ([]float32, error) {
	bl := t.BlockLen()
	bb := t.BlockBytes()
	if bl == 0 {
		return nil, &codec.UnsupportedTypeError{Type: t}
	}
	if n <= 0 || n%bl != 0 {
		return nil, &codec.ShapeError{Type: t, N: n}
	}
	blocks := n / bl
	if len(data) != blocks*bb {
		return nil, &codec.CorruptBlockError{Type: t, Detail: "data length mismatch"}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > blocks {
		workers = blocks
	}

	out := make([]float32, n)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := blocks * w / workers
		hi := blocks * (w + 1) / workers
		g.Go(func() error {
			for b := lo; b < hi; b++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				blk := data[b*bb : (b+1)*bb]
				for j := 0; j < bl; j += 2 {
					v0, v1, err := codec.DecodePair(t, blk, j)
					if err != nil {
						var ce *codec.CorruptBlockError
						if errors.As(err, &ce) {
							ce.Block = b
						}
						return err
					}
					out[b*bl+j] = v0
					out[b*bl+j+1] = v1
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
