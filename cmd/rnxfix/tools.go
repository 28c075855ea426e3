package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/de-bkg/rnxfix/pkg/gnss"
	"github.com/de-bkg/rnxfix/pkg/rinex"
	"github.com/urfave/cli/v2"
)

const dateFormat = "2006-01-02"

func redateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "redate",
		Usage:     "set the date of all epochs of a RINEX observation file, without gfzrnx",
		ArgsUsage: "FILE",
		Description: `The time of day of each epoch is kept, only the calendar date is replaced.
This is meant for files whose date is wrong by something else than whole GPS weeks.

EXAMPLES:
    $ rnxfix redate --date 2019-05-01 sstr1210.19o
    $ rnxfix redate --date 2019-05-01 --out fixed.19o sstr1210.19o`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "date",
				Usage:    "the new date, YYYY-MM-DD",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file, default FILE with \"_dated\" before the extension",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("redate needs exactly one file", 1)
			}
			date, err := time.Parse(dateFormat, c.String("date"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid date: %v", err), 1)
			}

			in := c.Args().First()
			out := c.String("out")
			if out == "" {
				out = rinex.RedatedName(in)
			}
			stats, err := rinex.RedateFile(in, out, date)
			if err != nil {
				return cli.Exit(err, 1)
			}
			e.log.WithField("file", out).Infof("RINEX %.2f: %d header records and %d epochs changed",
				stats.Version, stats.HeaderRecords, stats.Epochs)
			fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", out, formatTime(stats.FirstEpoch), formatTime(stats.LastEpoch))
			return nil
		},
	}
}

func headerCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "header",
		Usage:     "print the header of a RINEX observation file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("header needs exactly one file", 1)
			}
			path := c.Args().First()
			f, err := os.Open(path)
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer f.Close()

			hdr, err := rinex.ReadObsHeader(f)
			if err != nil {
				return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
			}
			for _, warn := range hdr.Warnings {
				e.log.WithField("file", path).Warn(warn)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "RINEX version:  %.2f %s %s\n", hdr.RINEXVersion, hdr.RINEXType, hdr.SatSystem)
			fmt.Fprintf(w, "Program:        %s, %s, %s\n", hdr.Pgm, hdr.RunBy, formatTime(hdr.Date))
			fmt.Fprintf(w, "Marker:         %s %s\n", hdr.MarkerName, hdr.MarkerNumber)
			fmt.Fprintf(w, "Receiver:       %s %s\n", hdr.ReceiverType, hdr.ReceiverVersion)
			fmt.Fprintf(w, "Antenna:        %s\n", hdr.AntennaType)
			for _, sys := range hdr.SatSystems() {
				fmt.Fprintf(w, "Obs types %s:    %s\n", sys.Abbr(), strings.Join(hdr.ObsTypes[sys], " "))
			}
			fmt.Fprintf(w, "Interval:       %g\n", hdr.Interval)
			fmt.Fprintf(w, "First epoch:    %s %s (GPS week %d)\n", formatTime(hdr.TimeOfFirstObs), hdr.TimeSystem, gnss.Week(hdr.TimeOfFirstObs))
			fmt.Fprintf(w, "Last epoch:     %s\n", formatTime(hdr.TimeOfLastObs))

			if fil, err := rinex.NewFile(path); err == nil && fil.FourCharID != "" {
				fmt.Fprintf(w, "Filename:       station %s, start %s, period %s\n", fil.FourCharID, formatTime(fil.StartTime), fil.FilePeriod)
				if !hdr.TimeOfFirstObs.IsZero() && gnss.Week(fil.StartTime) != gnss.Week(hdr.TimeOfFirstObs) {
					fmt.Fprintf(w, "Week shift:     %d\n", gnss.WeekShift(hdr.TimeOfFirstObs, fil.StartTime))
				}
			}
			return nil
		},
	}
}

func weekCommand() *cli.Command {
	return &cli.Command{
		Name:      "week",
		Usage:     "print the GPS week of a date or the rollover correction of a year",
		ArgsUsage: "YYYY-MM-DD",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "year",
				Usage: "print the week correction for this year",
			},
		},
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			if c.IsSet("year") {
				year := c.Int("year")
				fmt.Fprintf(w, "year %d: week correction %d\n", year, gnss.YearWeekCorrection(year))
				return nil
			}
			if c.NArg() != 1 {
				return cli.Exit("week needs a date or --year", 1)
			}
			t, err := time.Parse(dateFormat, c.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid date: %v", err), 1)
			}
			week := gnss.Week(t)
			fmt.Fprintf(w, "date:       %s\n", t.Format(dateFormat))
			fmt.Fprintf(w, "GPS week:   %d\n", week)
			fmt.Fprintf(w, "10-bit:     %d\n", week%gnss.WeekRollover)
			fmt.Fprintf(w, "rollovers:  %d\n", gnss.Rollovers(t))
			fmt.Fprintf(w, "if rolled:  %s\n", gnss.FixWeekRollover(t).Format(dateFormat))
			return nil
		},
	}
}
