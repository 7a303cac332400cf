package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/strataml/strata/internal/dispatch"
	"github.com/strataml/strata/internal/logger"
	"github.com/strataml/strata/internal/policy"
	"github.com/strataml/strata/internal/weightfile"
	"github.com/strataml/strata/pkg/codec"
)

// manifest describes the raw weight dump: the model's total parameter
// count drives the scale class, and each tensor entry carries the
// role/shape metadata the model loader would normally supply.
type manifest struct {
	TotalParams uint64         `yaml:"total_params"`
	Layers      int            `yaml:"layers"`
	DType       string         `yaml:"dtype"`
	Tensors     []tensorHeader `yaml:"tensors"`
}

type tensorHeader struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Layer    int    `yaml:"layer"`
	Elements int    `yaml:"elements"`
	Offset   int64  `yaml:"offset"`
}

type runReport struct {
	RunID       string         `json:"run_id"`
	Created     time.Time      `json:"created"`
	TotalParams uint64         `json:"total_params"`
	ScaleClass  string         `json:"scale_class"`
	Criterion   string         `json:"criterion"`
	Tensors     []tensorReport `json:"tensors"`
}

type tensorReport struct {
	Name string `json:"name"`
	*codec.Report
	Error string `json:"error,omitempty"`
}

func quantizeCmd() *cli.Command {
	var (
		weightsPath  string
		manifestPath string
		outDir       string
		reportPath   string
		criterion    string
		rulesPath    string
		workers      int64
	)

	return &cli.Command{
		Name:  "quantize",
		Usage: "Quantize a raw weight dump into block-compressed tensors",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "weights", Aliases: []string{"w"}, Usage: "path to raw f32/f16 weight dump", Destination: &weightsPath, Required: true},
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "path to tensor manifest (yaml)", Destination: &manifestPath, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory for encoded tensors", Destination: &outDir, Required: true},
			&cli.StringFlag{Name: "report", Usage: "path for the JSON quality report", Destination: &reportPath},
			&cli.StringFlag{Name: "criterion", Usage: "outlier ranking: residual or magnitude", Destination: &criterion},
			&cli.StringFlag{Name: "rules", Usage: "policy rule file overriding the built-in tables", Destination: &rulesPath},
			&cli.IntFlag{Name: "workers", Usage: "parallel tensor encoders (0 = all CPUs)", Destination: &workers},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := loadConfig()
			if criterion == "" {
				criterion = cfg.Criterion
			}
			if rulesPath == "" {
				rulesPath = cfg.RulesPath
			}
			if workers == 0 && cfg.Workers != nil && !c.IsSet("workers") {
				workers = int64(*cfg.Workers)
			}
			if workers <= 0 {
				workers = int64(runtime.NumCPU())
			}
			log := newLogger(cfg)

			return runQuantize(ctx, quantizeArgs{
				weightsPath:  weightsPath,
				manifestPath: manifestPath,
				outDir:       outDir,
				reportPath:   reportPath,
				criterion:    criterion,
				rulesPath:    rulesPath,
				workers:      int(workers),
			}, log)
		},
	}
}

type quantizeArgs struct {
	weightsPath  string
	manifestPath string
	outDir       string
	reportPath   string
	criterion    string
	rulesPath    string
	workers      int
}

func runQuantize(ctx context.Context, args quantizeArgs, log logger.Logger) error {
	crit, err := codec.ParseCriterion(args.criterion)
	if err != nil {
		return err
	}

	mfData, err := os.ReadFile(args.manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var mf manifest
	if err := yaml.Unmarshal(mfData, &mf); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(mf.Tensors) == 0 {
		return fmt.Errorf("manifest lists no tensors")
	}

	rules := policy.DefaultRules()
	if args.rulesPath != "" {
		rules, err = policy.LoadRules(args.rulesPath)
		if err != nil {
			return err
		}
	}
	pol := policy.NewWithRules(mf.TotalParams, rules)
	log.Info("policy resolved", "params", mf.TotalParams, "class", pol.Class().String())

	wf, err := weightfile.Open(args.weightsPath)
	if err != nil {
		return err
	}
	defer func() { _ = wf.Close() }()

	jobs := make([]dispatch.EncodeJob, 0, len(mf.Tensors))
	for _, th := range mf.Tensors {
		var data []float32
		switch strings.ToLower(mf.DType) {
		case "", "f32":
			data, err = wf.Float32s(th.Offset, th.Elements)
		case "f16":
			data, err = wf.Float16s(th.Offset, th.Elements)
		default:
			return fmt.Errorf("manifest dtype %q not supported", mf.DType)
		}
		if err != nil {
			return fmt.Errorf("tensor %s: %w", th.Name, err)
		}
		jobs = append(jobs, dispatch.EncodeJob{
			Name:  th.Name,
			Role:  policy.Role(th.Role),
			Layer: th.Layer,
			Data:  data,
		})
	}

	enc := &dispatch.Encoder{
		Policy:      pol,
		Opts:        codec.Options{Criterion: crit},
		TotalLayers: mf.Layers,
		ParamsB:     float64(mf.TotalParams) / 1e9,
		Workers:     args.workers,
		Log:         log,
	}
	results, err := enc.EncodeAll(ctx, jobs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(args.outDir, 0o755); err != nil {
		return err
	}
	report := runReport{
		RunID:       uuid.NewString(),
		Created:     time.Now().UTC(),
		TotalParams: mf.TotalParams,
		ScaleClass:  pol.Class().String(),
		Criterion:   crit.String(),
	}
	failed := 0
	for _, r := range results {
		tr := tensorReport{Name: r.Name, Report: r.Report}
		if r.Err != nil {
			tr.Error = r.Err.Error()
			failed++
		} else {
			path := filepath.Join(args.outDir, sanitizeName(r.Name)+"."+r.Type.String()+".blk")
			if err := os.WriteFile(path, r.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		report.Tensors = append(report.Tensors, tr)
	}

	if args.reportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(args.reportPath, data, 0o644); err != nil {
			return err
		}
	}

	log.Info("quantization finished",
		"run", report.RunID,
		"tensors", len(results),
		"failed", failed)
	return nil
}

// sanitizeName keeps tensor names usable as file names.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
}

func newLogger(cfg Config) logger.Logger {
	level := logger.ParseLevel(cfg.LogLevel)
	switch cfg.LogFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
