package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/strataml/strata/internal/logger"
	"github.com/strataml/strata/internal/policy"
	"github.com/strataml/strata/pkg/blockfmt"
	"github.com/strataml/strata/pkg/codec"
)

// EncodeJob is one tensor to quantize. Data is read-only input owned
// by the caller.
type EncodeJob struct {
	Name  string
	Role  policy.Role
	Layer int
	Data  []float32
	// Calibration holds optional per-element importance weights used
	// to size the outlier budget; nil means medium importance.
	Calibration []float32
}

// EncodeResult is the outcome for one tensor. A per-tensor failure
// (shape mismatch, unsupported family) lands in Err and leaves the
// rest of the run untouched.
type EncodeResult struct {
	Name   string
	Type   blockfmt.Type
	Data   []byte
	Report *codec.Report
	Err    error
}

// Encoder runs the batch quantization pass: policy assignment once per
// tensor, then independent per-tensor encodes bounded by a worker
// semaphore. Cancellation between tensors is always safe; finished
// results are self-contained.
type Encoder struct {
	Policy      *policy.Policy
	Opts        codec.Options
	TotalLayers int
	ParamsB     float64
	Workers     int
	Log         logger.Logger

	progress *rate.Limiter
}

// EncodeAll quantizes every job and returns results in job order.
// The returned error is non-nil only when the context is canceled;
// per-tensor conditions are reported in the results.
func (e *Encoder) EncodeAll(ctx context.Context, jobs []EncodeJob) ([]EncodeResult, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	log := e.Log
	if log == nil {
		log = logger.Default()
	}
	e.progress = rate.NewLimiter(rate.Every(time.Second), 1)

	results := make([]EncodeResult, len(jobs))
	sem := semaphore.NewWeighted(int64(workers))
	g, ctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			results[i] = e.encodeOne(job)
			if r := &results[i]; r.Err != nil {
				log.Warn("tensor skipped", "tensor", job.Name, "error", r.Err)
			} else if e.progress.Allow() {
				log.Info("quantized tensor",
					"tensor", job.Name,
					"type", r.Type.String(),
					"rmse", r.Report.RMSE,
					"overflow", r.Report.OutlierOverflow)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Encoder) encodeOne(job EncodeJob) EncodeResult {
	t := e.Policy.Assign(job.Role)
	res := EncodeResult{Name: job.Name, Type: t}
	if !t.IsQuantized() {
		res.Err = &codec.UnsupportedTypeError{Type: t}
		return res
	}

	opts := e.Opts
	if t == blockfmt.TypeQ3H && e.TotalLayers > 0 && opts.OutlierBudget == 0 {
		imp := policy.TensorImportance(job.Calibration)
		opts.OutlierBudget = policy.OutlierBudget(job.Layer, e.TotalLayers, imp, e.ParamsB)
	}

	data, rep, err := codec.Quantize(t, job.Data, opts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Data = data
	res.Report = rep
	return res
}
