package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/de-bkg/rnxfix/internal/config"
	"github.com/de-bkg/rnxfix/internal/fixer"
	"github.com/de-bkg/rnxfix/pkg/gfzrnx"
	"github.com/urfave/cli/v2"
)

func fixCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "correct the GPS week of RINEX observation files",
		ArgsUsage: "FILE...",
		Description: `The first epoch of each file is compared with the date given by its filename.
If they differ by whole GPS weeks the file is rewritten by gfzrnx.
The original file is kept with the backup suffix, ".ORIGINAL" by default.

EXAMPLES:
    $ rnxfix fix --station SSTR sstr1210.19o
    $ rnxfix fix --dry-run *.19o`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "station",
				Usage: "4- or 9-char station ID for the suggested filename",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "report the correction without changing any file",
			},
			&cli.BoolFlag{
				Name:  "compress-backup",
				Usage: "gzip the original file after the correction",
			},
			&cli.BoolFlag{
				Name:  "remember",
				Usage: "save the --station ID in the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("fix needs at least one file", 1)
			}

			opts := e.fixerOptions()
			if c.IsSet("station") {
				opts.Station = c.String("station")
			}
			opts.DryRun = c.Bool("dry-run")
			if c.IsSet("compress-backup") {
				opts.CompressBackup = c.Bool("compress-backup")
			}

			fx := fixer.New(e.tool(), opts, e.log)
			results, err := fx.FixAll(c.Context, c.Args().Slice())
			printResults(c.App.Writer, results)

			if c.Bool("remember") && c.IsSet("station") {
				if rerr := e.rememberStation(opts.Station); rerr != nil {
					e.log.Errorf("save station: %v", rerr)
				}
			}
			if err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

func shiftCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "shift",
		Usage:     "print the GPS week correction of RINEX observation files",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("shift needs at least one file", 1)
			}
			opts := e.fixerOptions()
			opts.DryRun = true
			results, err := fixer.New(e.tool(), opts, e.log).FixAll(c.Context, c.Args().Slice())
			printResults(c.App.Writer, results)
			if err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// rememberStation saves the station in the configuration file. The file is
// read again, so that command line and environment overrides are not saved.
func (e *env) rememberStation(station string) error {
	stored, err := config.LoadFile(e.cfgPath)
	if err != nil {
		return err
	}
	stored.Fix.Station = station
	if err := stored.Save(e.cfgPath); err != nil {
		return err
	}
	e.log.WithField("station", stored.Fix.Station).Info("station saved")
	return nil
}

func (e *env) tool() *gfzrnx.Tool {
	timeout, _ := e.cfg.Gfzrnx.TimeoutDuration() // validated with the config
	return gfzrnx.New(e.cfg.Gfzrnx.Path,
		gfzrnx.WithOutputVersion(e.cfg.Gfzrnx.OutputVersion),
		gfzrnx.WithTimeout(timeout),
		gfzrnx.WithLogger(e.log),
	)
}

func (e *env) fixerOptions() fixer.Options {
	return fixer.Options{
		Station:        e.cfg.Fix.Station,
		BackupSuffix:   e.cfg.Fix.BackupSuffix,
		TempSuffix:     e.cfg.Fix.TempSuffix,
		CompressBackup: e.cfg.Fix.CompressBackup,
	}
}

func printResults(w io.Writer, results []*fixer.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tFIRST EPOCH\tSHIFT\tMETHOD\tCORRECTED\tDOY\tNAME\tSTATUS")
	for _, res := range results {
		if res == nil {
			continue
		}
		corr := res.Correction
		status := "unchanged"
		switch {
		case res.Changed:
			status = "corrected, backup " + res.Backup
		case res.Err != nil:
			status = "failed"
		case corr.NeedsShift():
			status = "to be corrected"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%03d\t%s\t%s\n", res.Path,
			formatTime(corr.ObservedFirst), corr.ShiftWeeks, corr.Method,
			formatTime(corr.CorrectedFirst), res.DayOfYear, res.SuggestedName, status)
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateTime)
}
