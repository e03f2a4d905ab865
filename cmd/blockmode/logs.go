package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"blockmode-go/pkg/log"

	"github.com/urfave/cli/v2"
)

// timeFormats are tried in order when a time spec is not a duration.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeSpec reads a duration before now ("30m", "2d", "1w") or an
// absolute timestamp.
func parseTimeSpec(spec string) (time.Time, error) {
	if n := len(spec); n > 1 && (spec[n-1] == 'd' || spec[n-1] == 'w') {
		if count, err := strconv.Atoi(spec[:n-1]); err == nil {
			day := 24 * time.Hour
			if spec[n-1] == 'w' {
				day *= 7
			}
			return time.Now().Add(-time.Duration(count) * day), nil
		}
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d), nil
	}
	for _, layout := range timeFormats {
		if ts, err := time.ParseInLocation(layout, spec, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time specification: '%s'. Use relative duration (e.g., '1h', '2d') or absolute format (e.g., '2023-10-27T15:04:05Z')", spec)
}

var logsCommand = &cli.Command{
	Name:      "logs",
	Usage:     "Retrieve JSON log entries from the SQLite log database",
	UsageText: "blockmode logs [-f FILE] [--last|--since|--between|--engine ID] [mode options]",
	Description: `Reads the database written with --log-db. Modes:
   --last      most recent N entries (default)
   --since     entries from --start up to now
   --between   entries from --start to --end
   --engine    most recent entries of one engine instance
Time specs are durations before now ("5m", "1h30m", "2d", "1w") or timestamps
("2023-10-27T15:04:05Z", "2023-10-27 10:00:00", "2023-10-27").`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "dbfile",
			Aliases: []string{"f"},
			Usage:   "SQLite log database `PATH` (default: log_db from config, or blockmode.db)",
		},
		&cli.BoolFlag{
			Name:    "pretty",
			Aliases: []string{"p"},
			Usage:   "One readable line per entry instead of raw JSON",
		},
		&cli.BoolFlag{Name: "last", Usage: "Mode: most recent N entries (default)"},
		&cli.BoolFlag{Name: "since", Usage: "Mode: entries since --start"},
		&cli.BoolFlag{Name: "between", Usage: "Mode: entries between --start and --end"},
		&cli.StringFlag{Name: "engine", Usage: "Mode: entries of engine `ID`"},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Number of entries for --last and --engine `NUMBER`",
			Value:   100,
		},
		&cli.StringFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "Start time for --since/--between `TIME_SPEC`",
		},
		&cli.StringFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "End time for --between `TIME_SPEC`",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Max entries for --since/--between `NUMBER`",
			Value:   1000,
		},
	},
	Action: logsCmd,
}

func logsCmd(c *cli.Context) error {
	dbFile := c.String("dbfile")
	if dbFile == "" {
		dbFile = cfg.LogDB
	}
	if dbFile == "" {
		dbFile = "blockmode.db"
	}

	modes := 0
	for _, f := range []string{"last", "since", "between", "engine"} {
		if c.IsSet(f) {
			modes++
		}
	}
	if modes > 1 {
		return cli.Exit("Error: only one of --last, --since, --between, --engine can be given.", 1)
	}

	if err := log.Init(dbFile); err != nil {
		return cli.Exit(fmt.Sprintf("Error opening log database: %v", err), 1)
	}
	defer log.Close()

	var results []log.LogEntry
	var err error
	switch {
	case c.Bool("since"):
		if !c.IsSet("start") {
			return cli.Exit("Error: --start (-s) is required for --since.", 1)
		}
		start, perr := parseTimeSpec(c.String("start"))
		if perr != nil {
			return cli.Exit(perr.Error(), 1)
		}
		results, err = log.GetLogsSince(start, c.Int("limit"))

	case c.Bool("between"):
		if !c.IsSet("start") || !c.IsSet("end") {
			return cli.Exit("Error: --start (-s) and --end (-e) are required for --between.", 1)
		}
		start, perr := parseTimeSpec(c.String("start"))
		if perr != nil {
			return cli.Exit(perr.Error(), 1)
		}
		end, perr := parseTimeSpec(c.String("end"))
		if perr != nil {
			return cli.Exit(perr.Error(), 1)
		}
		if start.After(end) {
			fmt.Fprintf(os.Stderr, "Warning: start (%s) is after end (%s).\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		results, err = log.GetLogsBetween(start, end, c.Int("limit"))

	case c.IsSet("engine"):
		results, err = log.GetEngineLogs(c.String("engine"), c.Int("count"))

	default:
		if c.Int("count") <= 0 {
			return cli.Exit("Error: --count (-n) must be positive.", 1)
		}
		results, err = log.GetLastNLogs(c.Int("count"))
	}
	if err != nil {
		if errors.Is(err, log.ErrNotInitialized) {
			return cli.Exit("Internal error: log database handle unavailable.", 2)
		}
		return cli.Exit(fmt.Sprintf("Error retrieving logs: %v", err), 1)
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No log entries found matching the criteria.")
		return nil
	}
	for _, entry := range results {
		if c.Bool("pretty") {
			fmt.Println(prettyEntry(entry))
		} else {
			fmt.Println(entry.LogData)
		}
	}
	return nil
}

// prettyEntry renders "time LEVEL message key=value ..." with the fields
// sorted by name.
func prettyEntry(entry log.LogEntry) string {
	var fields map[string]any
	if err := json.Unmarshal([]byte(entry.LogData), &fields); err != nil {
		return entry.LogData
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v %-5s %v", fields["time"], strings.ToUpper(fmt.Sprint(fields["level"])), fields["message"])
	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "message")

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
