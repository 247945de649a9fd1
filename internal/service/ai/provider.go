package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("provider returned an empty reply")

// Request is one "generate a reply" call: session-level guidance plus the
// ordered turns to replay, ending with the user turn being answered.
type Request struct {
	Instruction string
	History     []chat.Turn
}

// Provider produces an assistant reply for a request. Implementations must
// abort the remote call when ctx is done.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Factory builds a provider client for one credential.
type Factory func(ctx context.Context, apiKey, modelName string) (Provider, error)

// APIError is a non-success answer from the remote provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

// NewFactory returns the factory for the configured provider.
func NewFactory(cfg config.AIConfig) (Factory, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return func(ctx context.Context, apiKey, modelName string) (Provider, error) {
			return NewGeminiProvider(ctx, cfg, apiKey, modelName)
		}, nil
	case config.ProviderArk:
		return func(ctx context.Context, apiKey, modelName string) (Provider, error) {
			return NewArkProvider(ctx, cfg, apiKey, modelName)
		}, nil
	case config.ProviderOpenAI:
		return func(_ context.Context, apiKey, modelName string) (Provider, error) {
			return NewOpenAIProvider(cfg, apiKey, modelName), nil
		}, nil
	default:
		return nil, errors.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// requireReply turns blank provider output into ErrEmptyReply.
func requireReply(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.Wrap(ErrEmptyReply, provider)
	}
	return text, nil
}
