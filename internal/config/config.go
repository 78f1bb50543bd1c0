// Package config provides configuration types and loading for yuban.
package config

// Learning levels accepted by Language.Level and the /level command.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Provider identifiers accepted by AI.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the root configuration struct.
// Top-level groups: Channels, AI, Language, Delay, DailyWord, Database, Materials.
type Config struct {
	Channels  ChannelsConfig  `json:"channels"`
	AI        AIConfig        `json:"ai"`
	Language  LanguageConfig  `json:"language"`
	Delay     DelayConfig     `json:"delay"`
	DailyWord DailyWordConfig `json:"dailyWord"`
	Database  DatabaseConfig  `json:"database"`
	Materials MaterialsConfig `json:"materials"`
	Debug     bool            `json:"debug" envconfig:"DEBUG"`
}

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"TELEGRAM_ENABLED"`
	Token     string   `json:"token" envconfig:"TELEGRAM_TOKEN"`
	UserID    string   `json:"userId" envconfig:"TELEGRAM_USER_ID"`
	AllowFrom []string `json:"allowFrom" envconfig:"TELEGRAM_ALLOW_FROM"`
	// RestrictToAllowed drops messages from senders outside AllowFrom/UserID.
	RestrictToAllowed bool `json:"restrictToAllowed" envconfig:"TELEGRAM_RESTRICT"`
}

// SlackConfig configures the optional Slack channel (Socket Mode).
type SlackConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"SLACK_ENABLED"`
	BotToken  string   `json:"botToken" envconfig:"SLACK_BOT_TOKEN"`
	AppToken  string   `json:"appToken" envconfig:"SLACK_APP_TOKEN"`
	AllowFrom []string `json:"allowFrom" envconfig:"SLACK_ALLOW_FROM"`
}

// AIConfig selects and configures the LLM provider.
type AIConfig struct {
	Provider string       `json:"provider" envconfig:"AI_PROVIDER"`
	OpenAI   OpenAIConfig `json:"openai"`
	Gemini   GeminiConfig `json:"gemini"`
}

// OpenAIConfig contains settings for the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey" envconfig:"OPENAI_API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"OPENAI_API_BASE"`
	Model   string `json:"model" envconfig:"OPENAI_MODEL"`
}

// GeminiConfig contains settings for the Gemini provider.
type GeminiConfig struct {
	APIKey   string `json:"apiKey" envconfig:"GEMINI_API_KEY"`
	Model    string `json:"model" envconfig:"GEMINI_MODEL"`
	TTSModel string `json:"ttsModel" envconfig:"GEMINI_TTS_MODEL"`
}

// LanguageConfig describes the learner and the target language.
type LanguageConfig struct {
	Target string `json:"target" envconfig:"TARGET_LANGUAGE"`
	Native string `json:"native" envconfig:"NATIVE_LANGUAGE"`
	Level  string `json:"level" envconfig:"LEARNING_LEVEL"`
}

// DelayConfig bounds the randomized response delay, in seconds.
type DelayConfig struct {
	MinSeconds int `json:"minSeconds" envconfig:"RESPONSE_DELAY_MIN"`
	MaxSeconds int `json:"maxSeconds" envconfig:"RESPONSE_DELAY_MAX"`
}

// DailyWordConfig schedules the word-of-the-day job.
type DailyWordConfig struct {
	Cron     string `json:"cron" envconfig:"DAILY_WORD_CRON"`
	Timezone string `json:"timezone" envconfig:"TIMEZONE"`
}

// DatabaseConfig configures the optional persistent message log.
type DatabaseConfig struct {
	Enabled bool   `json:"enabled" envconfig:"USE_DATABASE"`
	Path    string `json:"path" envconfig:"DATABASE_PATH"`
}

// MaterialsConfig locates the reference-materials directory.
type MaterialsConfig struct {
	Dir string `json:"dir" envconfig:"REFERENCE_MATERIALS_DIR"`
}
