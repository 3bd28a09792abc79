package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"val8-concierge/internal/api"
	"val8-concierge/internal/clock"
	"val8-concierge/internal/desk"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/logging"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address, overrides http.addr",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	if addr := c.String("addr"); addr != "" {
		rt.cfg.HTTP.Addr = addr
	}

	bus := events.NewBus(rt.logger)
	defer bus.Close()

	registry := engine.NewRegistry(rt.catalog, engine.Options{
		Delays:    rt.delays(),
		Publisher: bus,
		Logger:    rt.logger,
	})
	defer registry.Close()
	registry.StartSweeper(rt.cfg.Sessions.SweepInterval, rt.cfg.Sessions.IdleTTL)

	callDesk := desk.New(clock.Real(), rt.logger)
	defer callDesk.Close()

	server := api.NewServer(api.Deps{
		Registry:   registry,
		Catalog:    rt.catalog,
		Subscriber: bus,
		Themes:     rt.themes,
		Desk:       callDesk,
	}, &api.Config{
		Addr:           rt.cfg.HTTP.Addr,
		AllowedOrigins: rt.cfg.HTTP.AllowedOrigins,
		RateLimit:      rt.cfg.HTTP.RateLimit,
		RateBurst:      rt.cfg.HTTP.RateBurst,
		Demo:           rt.cfg.App.Demo,
		Voice:          rt.cfg.Voice.Enabled,
	}, logging.Component(rt.logger, "serve"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}
