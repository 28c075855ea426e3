// rnxfix repairs RINEX observation files affected by the GPS week rollover.
//
// It uses gfzrnx (https://gnss.gfz-potsdam.de/services/gfzrnx) to read the
// file metadata and to shift the epochs by the missing GPS weeks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/de-bkg/rnxfix/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// env is shared by the commands. It is set up in the Before hook.
type env struct {
	cfg     *config.Config
	cfgPath string
	log     *log.Logger
}

func newApp() *cli.App {
	e := &env{log: log.StandardLogger()}

	app := &cli.App{
		Name:    "rnxfix",
		Usage:   "repair RINEX observation files affected by the GPS week rollover",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath(),
				Usage: "configuration file",
			},
			&cli.StringFlag{
				Name:    "gfzrnx",
				EnvVars: []string{config.EnvGfzrnx},
				Usage:   "gfzrnx executable, default from config or PATH",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "print debug messages",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format: text, json",
			},
		},
		Before: e.setup,
		Commands: []*cli.Command{
			fixCommand(e),
			shiftCommand(e),
			redateCommand(e),
			headerCommand(e),
			weekCommand(),
			configCommand(e),
		},
		EnableBashCompletion: true,
	}
	return app
}

// setup loads the configuration and configures the logger.
func (e *env) setup(c *cli.Context) error {
	e.cfgPath = c.String("config")
	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if c.IsSet("gfzrnx") {
		cfg.Gfzrnx.Path = c.String("gfzrnx")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	if c.Bool("debug") {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err, 1)
	}
	e.cfg = cfg

	e.log.SetOutput(c.App.ErrWriter)
	switch cfg.Logging.Format {
	case "json":
		e.log.SetFormatter(&log.JSONFormatter{})
	default:
		e.log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return cli.Exit(err, 1)
	}
	e.log.SetLevel(lvl)
	e.log.WithField("config", e.cfgPath).Debug("configuration loaded")
	return nil
}
