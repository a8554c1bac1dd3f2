package config

import (
	"fmt"
	"time"
)

// LLMConfig configures the chat-completion provider used for shortlist,
// refine, validation, QC and packaging calls. Any OpenAI-compatible
// endpoint works; BaseURL selects the provider.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LoadLLMConfig reads LLM settings from the environment. The API key is
// required; everything else has defaults.
func LoadLLMConfig() (LLMConfig, error) {
	apiKey := getEnvOrDefault("LLM_API_KEY", "")
	if apiKey == "" {
		return LLMConfig{}, fmt.Errorf("LLM_API_KEY is required")
	}
	timeout := getEnvInt("LLM_TIMEOUT_SECONDS", 120)
	return LLMConfig{
		APIKey:  apiKey,
		BaseURL: getEnvOrDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:   getEnvOrDefault("LLM_MODEL", "llama-3.3-70b-versatile"),
		Timeout: time.Duration(timeout) * time.Second,
	}, nil
}
