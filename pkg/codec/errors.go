package codec

import (
	"errors"
	"fmt"

	"github.com/strataml/strata/pkg/blockfmt"
)

// ErrUnsupportedType reports a family with no registered coder. Wrapped
// by UnsupportedTypeError so callers can match either way.
var ErrUnsupportedType = errors.New("codec: unsupported block type")

// ShapeError reports a tensor whose length is not a multiple of the
// family's block length. Encoding that tensor aborts; the rest of a
// run may continue.
type ShapeError struct {
	Type blockfmt.Type
	N    int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("codec: %s needs a multiple of %d elements, got %d", e.Type, e.Type.BlockLen(), e.N)
}

// UnsupportedTypeError reports a requested or policy-selected family
// with no registered encoder/decoder.
type UnsupportedTypeError struct {
	Type blockfmt.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("codec: no coder registered for %s", e.Type)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// CorruptBlockError reports a decode-time bounds violation inside a
// block, such as an outlier index past the block length. Blocks
// produced by Quantize never trigger it; blocks read from storage can.
type CorruptBlockError struct {
	Type   blockfmt.Type
	Block  int
	Detail string
}

func (e *CorruptBlockError) Error() string {
	return fmt.Sprintf("codec: corrupt %s block %d: %s", e.Type, e.Block, e.Detail)
}
