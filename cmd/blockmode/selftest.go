package main

import (
	"context"
	"fmt"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/hwsim"
	"blockmode-go/pkg/primitive"
	"blockmode-go/pkg/selftest"

	"github.com/urfave/cli/v2"
)

var selftestCommand = &cli.Command{
	Name:  "selftest",
	Usage: "Run the NIST known-answer vectors on the software and hardware engines",
	Action: func(c *cli.Context) error {
		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ecfg := blockmode.Config{Handles: cfg.Handles, KeyStreamBlocks: cfg.KeyStreamBlocks}
		engines := []struct {
			name string
			eng  *blockmode.Engine
		}{
			{"software", blockmode.NewSoftware(ecfg)},
			{"hardware", blockmode.NewHardware(hwsim.New(hwsim.Config{Latency: cfg.Latency}), ecfg)},
		}

		fmt.Printf("AES instructions available: %v\n", primitive.Accelerated())
		failed := 0
		for _, e := range engines {
			results, err := selftest.Run(ctx, e.eng, selftest.Vectors())
			if err != nil {
				return err
			}
			for _, r := range results {
				status := "ok"
				if !r.Passed() {
					status = "FAIL: " + r.Err.Error()
					failed++
				}
				fmt.Printf("%-9s %-22s %s\n", e.name, r.Vector.Name, status)
			}
		}
		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d vectors failed", failed), 1)
		}
		return nil
	},
}
