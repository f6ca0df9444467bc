// Package llm sends single-turn prompts to a hosted language model.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperr "github.com/sqlask/sqlask/internal/errors"
)

// Backend completes a prompt with the model's text reply.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function into a Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024
)

// Config is passed explicitly to every backend; nothing is read from the
// process environment here.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New builds the backend for cfg.Provider.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg)
	default:
		return nil, apperr.Newf(apperr.KindConfig, "unsupported model provider %q", cfg.Provider)
	}
}

func requireAPIKey(provider string, cfg Config) (string, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return "", apperr.New(apperr.KindConfig, fmt.Sprintf("%s api key is required", provider))
	}
	return key, nil
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	return timeout
}

func maxTokensOrDefault(maxTokens int) int {
	if maxTokens <= 0 {
		return defaultMaxTokens
	}
	return maxTokens
}
