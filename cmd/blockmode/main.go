package main

import (
	"fmt"
	"os"

	"blockmode-go/pkg/config"
	"blockmode-go/pkg/log"

	"github.com/urfave/cli/v2"
)

// Version information, set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// cfg is loaded by the Before hook of the app.
var cfg = config.DefaultConfig()

func newApp() *cli.App {
	return &cli.App{
		Name:    "blockmode",
		Usage:   "block cipher modes of operation on a software or simulated hardware engine",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration `FILE` (default: blockmode.yaml in ., /etc/blockmode-go, ~/.blockmode-go)",
			},
			&cli.StringFlag{
				Name:  "engine",
				Usage: "Engine to run on: software or hardware (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Minimum log `LEVEL` (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-db",
				Usage: "Write logs to the SQLite database `FILE` instead of stderr",
			},
		},
		Before: setup,
		After: func(c *cli.Context) error {
			return log.Close()
		},
		Commands: []*cli.Command{
			encryptCommand,
			decryptCommand,
			keystreamCommand,
			selftestCommand,
			benchCommand,
			logsCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	loaded, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("engine") {
		loaded.Engine = c.String("engine")
	}
	if c.IsSet("log-level") {
		loaded.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-db") {
		loaded.LogDB = c.String("log-db")
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	// the logs command opens the database itself
	if cfg.LogDB == "" || c.Args().First() == "logs" {
		log.SetStd()
		return nil
	}
	return log.Init(cfg.LogDB)
}
