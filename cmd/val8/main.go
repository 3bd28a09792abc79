package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "val8",
		Usage:   "VAL8 travel concierge: scripted demo conversations, HTTP API and WhatsApp bot",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./val8.toml, ./data/val8.toml, ~/.val8.toml)",
			},
		},
		Commands: []*cli.Command{
			chatCommand(),
			serveCommand(),
			whatsappCommand(),
			scriptsCommand(),
			themeCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
