package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"val8-concierge/internal/config"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/logging"
	"val8-concierge/internal/script"
	"val8-concierge/internal/storage"
	"val8-concierge/internal/theme"
)

// runtime is what every command shares: configuration, logging, the script
// catalog and the preference store.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	catalog *script.Catalog
	themes  *theme.Service
	close   func()
}

func loadRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	prefs, closePrefs, err := openPreferences(c.Context, cfg)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		themes:  theme.NewService(prefs),
		close:   closePrefs,
	}, nil
}

// loadCatalog loads the built-in and configured scripts and checks that every
// configured script id exists.
func loadCatalog(cfg *config.Config) (*script.Catalog, error) {
	catalog, err := script.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load scripts: %w", err)
	}
	if cfg.App.ScriptDir != "" {
		if err := catalog.LoadDir(cfg.App.ScriptDir); err != nil {
			return nil, err
		}
	}
	if _, err := catalog.Get(cfg.App.Script); err != nil {
		return nil, fmt.Errorf("app.script: %w", err)
	}
	if cfg.WhatsApp.Script != "" {
		if _, err := catalog.Get(cfg.WhatsApp.Script); err != nil {
			return nil, fmt.Errorf("whatsapp.script: %w", err)
		}
	}
	return catalog, nil
}

func openPreferences(ctx context.Context, cfg *config.Config) (storage.Preferences, func(), error) {
	switch cfg.Storage.Backend {
	case "redis":
		store, err := storage.NewRedisStore(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "memory":
		return storage.NewMemory(), func() {}, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open storage: %w", err)
		}
		return store, func() {}, nil
	}
}

func (r *runtime) delays() engine.Delays {
	return engine.Delays{
		Typing:      r.cfg.Delays.Typing,
		Processing:  r.cfg.Delays.Processing,
		SpeechPause: r.cfg.Delays.SpeechPause,
		Checkout:    r.cfg.Delays.Checkout,
	}
}

func scriptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "scripts",
		Usage: "List the available demo scripts",
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			for _, sc := range rt.catalog.List() {
				marker := " "
				if sc.ID == rt.cfg.App.Script {
					marker = "*"
				}
				fmt.Printf("%s %s %-10s %s (%d steps)\n", marker, sc.Icon, sc.ID, sc.Name, sc.Len())
			}
			return nil
		},
	}
}

func themeCommand() *cli.Command {
	return &cli.Command{
		Name:      "theme",
		Usage:     "Show or change the theme preset",
		ArgsUsage: "[preset]",
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if id := c.Args().First(); id != "" {
				preset, err := rt.themes.Set(c.Context, id)
				if err != nil {
					return err
				}
				fmt.Printf("Theme set to %s (%s)\n", preset.Name, preset.PrimaryColor)
				return nil
			}

			current, err := rt.themes.Current(c.Context)
			if err != nil {
				return err
			}
			for _, p := range theme.Presets {
				marker := " "
				if p.ID == current.ID {
					marker = "*"
				}
				fmt.Printf("%s %-16s %s  %s\n", marker, p.ID, p.PrimaryColor, p.Description)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "val8.toml",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("output")
					if err := config.InitConfig(path); err != nil {
						return fmt.Errorf("failed to initialize config: %w", err)
					}
					fmt.Printf("Created configuration file at %s\n", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Validate the configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.LoadConfig(c.String("config"))
					if err != nil {
						return fmt.Errorf("failed to load config: %w", err)
					}
					if err := config.Validate(cfg); err != nil {
						return fmt.Errorf("invalid configuration: %w", err)
					}
					fmt.Println("Configuration is valid")
					fmt.Printf("Script: %s, demo: %t, storage: %s, listen: %s\n",
						cfg.App.Script, cfg.App.Demo, cfg.Storage.Backend, cfg.HTTP.Addr)
					return nil
				},
			},
		},
	}
}
