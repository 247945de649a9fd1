package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// OpenAIProvider targets any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

// NewOpenAIProvider creates the client once; it is reused for every request.
func NewOpenAIProvider(cfg config.AIConfig, apiKey, modelName string) *OpenAIProvider {
	if modelName == "" {
		modelName = config.DefaultModel(config.ProviderOpenAI)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	p := &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  modelName,
	}
	if t := cfg.Temperature32(); t != nil {
		p.temperature = *t
	}
	if tp := cfg.TopP32(); tp != nil {
		p.topP = *tp
	}
	if cfg.MaxTokens != nil {
		p.maxTokens = *cfg.MaxTokens
	}
	return p
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    openAIMessages(req),
		Temperature: p.temperature,
		TopP:        p.topP,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", normalizeOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(ErrEmptyReply, p.Name())
	}

	log.Debug().Str("model", p.model).Int("turns", len(req.History)).Msg("openai reply received")
	return requireReply(p.Name(), resp.Choices[0].Message.Content)
}

func openAIMessages(req Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	if req.Instruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.Instruction})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	return msgs
}

func normalizeOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: config.ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &APIError{Provider: config.ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return errors.Wrap(err, "openai chat completion")
}
