package main

import (
	"context"
	"strings"

	"blockmode-go/pkg/benchmark"
	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/log"

	"github.com/urfave/cli/v2"
)

var benchCommand = &cli.Command{
	Name:  "bench",
	Usage: "Measure per-mode throughput and scheduler fairness",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Mode `NAME` to benchmark, or all",
			Value: "all",
		},
		&cli.IntFlag{
			Name:  "iterations",
			Usage: "Encrypt calls per run",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Bytes per call",
			Value: 4096,
		},
		&cli.IntFlag{
			Name:  "handles",
			Usage: "Concurrent handles for the fairness run",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "latency",
			Usage: "Simulated peripheral latency in polls (overrides config)",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write results as CSV to `FILE`",
		},
	},
	Action: benchCmd,
}

func benchCmd(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts := benchmark.DefaultOptions()
	opts.Iterations = c.Int("iterations")
	opts.ChunkSize = c.Int("size")
	opts.Handles = c.Int("handles")
	opts.Latency = cfg.Latency
	if c.IsSet("latency") {
		opts.Latency = c.Int("latency")
	}

	var results []*benchmark.Results
	if strings.EqualFold(c.String("mode"), "all") {
		results = benchmark.RunAll(ctx, opts)
	} else {
		mode, err := blockmode.ParseMode(c.String("mode"))
		if err != nil {
			return err
		}
		opts.Mode = mode
		for _, target := range []benchmark.Target{benchmark.TargetSoftware, benchmark.TargetHardware} {
			opts.Target = target
			r, err := benchmark.Run(ctx, opts)
			if err != nil {
				return err
			}
			results = append(results, r)
		}
	}
	for _, r := range results {
		benchmark.PrintResults(r)
	}

	fair, err := benchmark.Fairness(ctx, opts)
	if err != nil {
		return err
	}
	benchmark.PrintFairness(fair)

	if out := c.String("output"); out != "" {
		if err := benchmark.SaveResultsToFile(results, out); err != nil {
			return err
		}
		log.Info().Str("file", out).Int("runs", len(results)).Msg("bench: results saved")
	}
	return nil
}
