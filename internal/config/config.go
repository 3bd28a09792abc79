package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override the file, e.g. VAL8_HTTP_ADDR
const EnvPrefix = "VAL8_"

// Config holds the application configuration
type Config struct {
	App struct {
		DataDir   string `koanf:"data_dir"`
		Script    string `koanf:"script"`
		ScriptDir string `koanf:"script_dir"`
		Demo      bool   `koanf:"demo"`
	} `koanf:"app"`

	Delays struct {
		Typing      time.Duration `koanf:"typing"`
		Processing  time.Duration `koanf:"processing"`
		SpeechPause time.Duration `koanf:"speech_pause"`
		Checkout    time.Duration `koanf:"checkout"`
	} `koanf:"delays"`

	Voice struct {
		Enabled        bool `koanf:"enabled"`
		WordsPerMinute int  `koanf:"words_per_minute"`
	} `koanf:"voice"`

	HTTP struct {
		Addr           string   `koanf:"addr"`
		AllowedOrigins []string `koanf:"allowed_origins"`
		RateLimit      float64  `koanf:"rate_limit"`
		RateBurst      int      `koanf:"rate_burst"`
	} `koanf:"http"`

	Storage struct {
		Backend  string `koanf:"backend"`
		Path     string `koanf:"path"`
		RedisURL string `koanf:"redis_url"`
	} `koanf:"storage"`

	Sessions struct {
		IdleTTL       time.Duration `koanf:"idle_ttl"`
		SweepInterval time.Duration `koanf:"sweep_interval"`
	} `koanf:"sessions"`

	WhatsApp struct {
		DataDir string `koanf:"data_dir"`
		Script  string `koanf:"script"`
		Demo    bool   `koanf:"demo"`
	} `koanf:"whatsapp"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.data_dir":            "data",
		"app.script":              "atlanta",
		"app.script_dir":          "",
		"app.demo":                true,
		"delays.typing":           "400ms",
		"delays.processing":       "800ms",
		"delays.speech_pause":     "500ms",
		"delays.checkout":         "1500ms",
		"voice.enabled":           false,
		"voice.words_per_minute":  180,
		"http.addr":               ":8080",
		"http.allowed_origins":    []string{},
		"http.rate_limit":         10.0,
		"http.rate_burst":         20,
		"storage.backend":         "file",
		"storage.path":            "data/preferences.json",
		"storage.redis_url":       "redis://localhost:6379/0",
		"sessions.idle_ttl":       "30m",
		"sessions.sweep_interval": "1m",
		"whatsapp.data_dir":       "data/whatsapp",
		"whatsapp.script":         "atlanta",
		"whatsapp.demo":           true,
		"log.level":               "info",
		"log.format":              "console",
	}
}

// LoadConfig loads defaults, then the TOML file if one is found, then VAL8_ environment variables
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./val8.toml", "./data/val8.toml", "$HOME/.val8.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &config, nil
}

// envKey maps VAL8_DELAYS_SPEECH_PAUSE to delays.speech_pause. Comma separated
// values become lists.
func envKey(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.App.Script == "" {
		return fmt.Errorf("app.script is required")
	}

	switch config.Storage.Backend {
	case "file":
		if config.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case "redis":
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Log.Format)
	}

	if config.Sessions.IdleTTL < 0 || config.Sessions.SweepInterval < 0 {
		return fmt.Errorf("session timings must not be negative")
	}

	d := config.Delays
	if d.Typing < 0 || d.Processing < 0 || d.SpeechPause < 0 || d.Checkout < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if config.HTTP.RateLimit <= 0 || config.HTTP.RateBurst <= 0 {
		return fmt.Errorf("http.rate_limit and http.rate_burst must be positive")
	}
	return nil
}

// InitConfig writes a sample configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# VAL8 concierge configuration

[app]
data_dir = "data"
script = "atlanta"
demo = true

[delays]
typing = "400ms"
processing = "800ms"
speech_pause = "500ms"
checkout = "1500ms"

[voice]
enabled = false
words_per_minute = 180

[http]
addr = ":8080"
allowed_origins = ["http://localhost:3000"]
rate_limit = 10
rate_burst = 20

[storage]
backend = "file"
path = "data/preferences.json"

[sessions]
idle_ttl = "30m"
sweep_interval = "1m"

[whatsapp]
data_dir = "data/whatsapp"
script = "atlanta"
demo = true

[log]
level = "info"
format = "console"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
