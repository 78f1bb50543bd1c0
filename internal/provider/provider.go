// Package provider implements LLM provider interfaces and clients.
package provider

import "context"

// LLMProvider is the interface for LLM API clients.
type LLMProvider interface {
	// Chat sends a completion request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, req *AudioRequest) (*AudioResponse, error)
	// Speak converts text to audio.
	Speak(ctx context.Context, req *TTSRequest) (*TTSResponse, error)
	// Name returns the provider name.
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest contains the parameters for a chat completion request.
type ChatRequest struct {
	Messages     []Message
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// ChatResponse contains the response from a chat completion request.
type ChatResponse struct {
	Content string
	Usage   Usage
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AudioRequest contains parameters for transcription.
type AudioRequest struct {
	FilePath string
	MimeType string
	// Language hints the transcriber (ISO code, e.g. "zh").
	Language string
}

// AudioResponse contains the transcribed text.
type AudioResponse struct {
	Text string
}

// TTSRequest contains parameters for speech synthesis.
type TTSRequest struct {
	Text  string
	Voice string
}

// TTSResponse contains the synthesized audio.
type TTSResponse struct {
	AudioData []byte
	MimeType  string
}
