package provider

import (
	"fmt"
	"strings"

	"github.com/yuban/yuban/internal/config"
)

// Resolve returns the provider selected by the config. The matching API key
// is validated at config load; Resolve re-checks so it can be used with
// hand-built configs in tests.
func Resolve(cfg config.Config) (LLMProvider, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		if strings.TrimSpace(cfg.AI.OpenAI.APIKey) == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return NewOpenAIProvider(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.APIBase, cfg.AI.OpenAI.Model), nil
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.AI.Gemini.APIKey) == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return NewGeminiProvider(cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, cfg.AI.Gemini.TTSModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.AI.Provider)
	}
}

// LanguageCode maps a language name to an ISO code hint for transcription.
func LanguageCode(language string) string {
	lang := strings.ToLower(language)
	switch {
	case strings.Contains(lang, "mandarin"), strings.Contains(lang, "chinese"):
		return "zh"
	case strings.Contains(lang, "japanese"):
		return "ja"
	case strings.Contains(lang, "korean"):
		return "ko"
	case strings.Contains(lang, "spanish"):
		return "es"
	case strings.Contains(lang, "french"):
		return "fr"
	case strings.Contains(lang, "german"):
		return "de"
	case strings.Contains(lang, "english"):
		return "en"
	default:
		return ""
	}
}
