package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name under the home dir.
	ConfigDir = ".yuban"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. YUBAN_CONFIG overrides it.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("YUBAN_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("YUBAN_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// DefaultConfig returns the built-in defaults, matching the original bot's
// environment defaults.
func DefaultConfig() Config {
	home, _ := resolveHomeDir()
	return Config{
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{Enabled: true},
		},
		AI: AIConfig{
			Provider: ProviderGemini,
			OpenAI: OpenAIConfig{
				Model: "gpt-4o",
			},
			Gemini: GeminiConfig{
				Model:    "gemini-2.0-flash",
				TTSModel: "gemini-2.5-pro-preview-tts",
			},
		},
		Language: LanguageConfig{
			Target: "Taiwanese Mandarin",
			Native: "English",
			Level:  LevelBeginner,
		},
		Delay: DelayConfig{
			MinSeconds: 60,
			MaxSeconds: 3600,
		},
		DailyWord: DailyWordConfig{
			Cron:     "0 9 * * *",
			Timezone: "America/New_York",
		},
		Database: DatabaseConfig{
			Enabled: false,
			Path:    filepath.Join(home, ConfigDir, "yuban.db"),
		},
		Materials: MaterialsConfig{
			Dir: "./reference-materials",
		},
	}
}

// Load reads the config file (if present), applies .env and environment
// overrides, and validates the result. A missing config file is not an
// error; defaults are used.
func Load() (Config, error) {
	// .env first so envconfig sees its values, matching the original's
	// dotenv-before-everything load order.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, fmt.Errorf("resolve config path: %w", err)
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// envconfig recurses into the nested groups and picks up their tags.
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config file, creating the config directory if needed.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects configurations that must fail at startup rather than at
// request time: bad delay bounds, unknown provider or level, and a selected
// provider with no API key.
func (c Config) Validate() error {
	if c.Delay.MinSeconds < 0 {
		return fmt.Errorf("delay.minSeconds must be >= 0, got %d", c.Delay.MinSeconds)
	}
	if c.Delay.MinSeconds > c.Delay.MaxSeconds {
		return fmt.Errorf("delay bounds invalid: min %ds > max %ds", c.Delay.MinSeconds, c.Delay.MaxSeconds)
	}

	switch c.AI.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.AI.OpenAI.APIKey) == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when using the openai provider")
		}
	case ProviderGemini:
		if strings.TrimSpace(c.AI.Gemini.APIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when using the gemini provider")
		}
	default:
		return fmt.Errorf("ai.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.AI.Provider)
	}

	switch c.Language.Level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		return fmt.Errorf("language.level must be beginner, intermediate, or advanced, got %q", c.Language.Level)
	}
	return nil
}
