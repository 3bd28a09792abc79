package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/handler"
	"val8-concierge/internal/whatsapp"
)

func whatsappCommand() *cli.Command {
	return &cli.Command{
		Name:   "whatsapp",
		Usage:  "Run the concierge as a WhatsApp bot",
		Action: runWhatsApp,
	}
}

func runWhatsApp(c *cli.Context) error {
	fmt.Println("✈️  VAL8 Concierge on WhatsApp")
	fmt.Println("=============================")

	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := os.MkdirAll(rt.cfg.WhatsApp.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	whatsappService, err := whatsapp.NewService(ctx, &whatsapp.Config{
		DataDir: rt.cfg.WhatsApp.DataDir,
	}, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize WhatsApp service: %w", err)
	}

	bus := events.NewBus(rt.logger)
	defer bus.Close()

	// chat replies cannot be spoken, so voice stays off here
	registry := engine.NewRegistry(rt.catalog, engine.Options{
		Delays:    rt.delays(),
		Publisher: bus,
		Logger:    rt.logger,
	})
	defer registry.Close()
	registry.StartSweeper(rt.cfg.Sessions.SweepInterval, rt.cfg.Sessions.IdleTTL)

	concierge := handler.NewConciergeHandler(registry, bus, whatsappService, &handler.Config{
		Script: rt.cfg.WhatsApp.Script,
		Demo:   rt.cfg.WhatsApp.Demo,
	}, rt.logger)
	defer concierge.Close()

	registry.OnEvict(concierge.Forget)
	whatsappService.SetMessageHandler(concierge.HandleMessage)

	fmt.Println("Connecting to WhatsApp...")
	if err := whatsappService.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}

	fmt.Println("\n✅ Connected to WhatsApp!")
	fmt.Printf("The concierge is now answering chats with the %q script.\n", rt.cfg.WhatsApp.Script)

	// Wait for interrupt signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("\n\nShutting down...")
	whatsappService.Disconnect()
	fmt.Println("Goodbye! 👋")
	return nil
}
