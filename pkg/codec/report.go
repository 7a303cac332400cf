package codec

import "github.com/strataml/strata/pkg/blockfmt"

// Report summarizes one tensor's encode: size, reconstruction error,
// and how many outlier candidates were dropped for capacity. Overflow
// is a quality signal, not a failure; the affected elements fall back
// to ordinary lossy reconstruction.
type Report struct {
	Type            blockfmt.Type `json:"-"`
	TypeName        string        `json:"type"`
	Elements        int           `json:"elements"`
	Blocks          int           `json:"blocks"`
	RMSE            float64       `json:"rmse"`
	MaxErr          float64       `json:"max_err"`
	OutlierOverflow int           `json:"outlier_overflow,omitempty"`
}
