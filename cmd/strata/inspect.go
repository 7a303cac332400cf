package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/strataml/strata/internal/dispatch"
	"github.com/strataml/strata/pkg/blockfmt"
)

func inspectCmd() *cli.Command {
	var (
		inputPath string
		typeName  string
		elements  int64
		workers   int64
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode an encoded tensor file and print block statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "path to .blk file", Destination: &inputPath, Required: true},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "block family (q4_0, q4_1, q5_0, q5_1, q8_0, q3h)", Destination: &typeName, Required: true},
			&cli.IntFlag{Name: "elements", Aliases: []string{"n"}, Usage: "element count of the tensor", Destination: &elements, Required: true},
			&cli.IntFlag{Name: "workers", Usage: "parallel decode lanes (0 = all CPUs)", Destination: &workers},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			t, err := blockfmt.ParseType(typeName)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}
			return runInspect(ctx, t, data, int(elements), int(workers))
		},
	}
}

func runInspect(ctx context.Context, t blockfmt.Type, data []byte, n, workers int) error {
	values, err := dispatch.Dequantize(ctx, t, data, n, workers)
	if err != nil {
		return err
	}

	mn := math.Inf(1)
	mx := math.Inf(-1)
	var sum, sumSq float64
	for _, v := range values {
		f := float64(v)
		mn = math.Min(mn, f)
		mx = math.Max(mx, f)
		sum += f
		sumSq += f * f
	}
	mean := sum / float64(n)
	std := math.Sqrt(sumSq/float64(n) - mean*mean)

	fmt.Printf("type:     %s\n", t)
	fmt.Printf("elements: %d\n", n)
	fmt.Printf("blocks:   %d (%d bytes each, %d total)\n", n/t.BlockLen(), t.BlockBytes(), len(data))
	fmt.Printf("bits/elt: %.3f\n", float64(len(data)*8)/float64(n))
	fmt.Printf("min/max:  %g / %g\n", mn, mx)
	fmt.Printf("mean/std: %g / %g\n", mean, std)

	if t == blockfmt.TypeQ3H {
		printOutlierStats(data, n)
	}
	return nil
}

// printOutlierStats summarizes side-table occupancy across Q3H blocks.
func printOutlierStats(data []byte, n int) {
	layout, _ := blockfmt.LayoutOf(blockfmt.TypeQ3H)
	countField, _ := layout.Field("outlier_count")
	bb := blockfmt.TypeQ3H.BlockBytes()
	blocks := n / blockfmt.QKH
	var hist [blockfmt.Q3HOutlierCap + 1]int
	total := 0
	for b := 0; b < blocks; b++ {
		count := int(data[b*bb+countField.Offset])
		if count > blockfmt.Q3HOutlierCap {
			count = blockfmt.Q3HOutlierCap
		}
		hist[count]++
		total += count
	}
	fmt.Printf("outliers: %d total, %.2f per block\n", total, float64(total)/float64(blocks))
	for k, c := range hist {
		if c > 0 {
			fmt.Printf("  %d outliers: %d blocks\n", k, c)
		}
	}
}
