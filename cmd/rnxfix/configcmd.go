package main

import (
	"fmt"
	"os"

	"github.com/de-bkg/rnxfix/internal/config"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func configCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show or create the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "# %s\n", e.cfgPath)
					enc := yaml.NewEncoder(c.App.Writer)
					enc.SetIndent(2)
					if err := enc.Encode(e.cfg); err != nil {
						return cli.Exit(err, 1)
					}
					return enc.Close()
				},
			},
			{
				Name:  "init",
				Usage: "write the default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					if _, err := os.Stat(e.cfgPath); err == nil && !c.Bool("force") {
						return cli.Exit(fmt.Sprintf("%s exists, use --force to overwrite", e.cfgPath), 1)
					}
					if err := config.DefaultConfig().Save(e.cfgPath); err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Fprintln(c.App.Writer, e.cfgPath)
					return nil
				},
			},
		},
	}
}
