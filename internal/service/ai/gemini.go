package ai

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// GeminiProvider talks to Google's generative language API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature *float32
	topP        *float32
	maxTokens   int32
}

// NewGeminiProvider creates the client once; it is reused for every request.
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, apiKey, modelName string) (*GeminiProvider, error) {
	if modelName == "" {
		modelName = config.DefaultModel(config.ProviderGemini)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}

	return &GeminiProvider{
		client:      client,
		model:       modelName,
		temperature: cfg.Temperature32(),
		topP:        cfg.TopP32(),
		maxTokens:   clampTokens(cfg.MaxTokens),
	}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return config.ProviderGemini
}

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     p.temperature,
		TopP:            p.topP,
		MaxOutputTokens: p.maxTokens,
	}
	if req.Instruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, geminiContents(req.History), genCfg)
	if err != nil {
		return "", normalizeGeminiError(err)
	}

	log.Debug().Str("model", p.model).Int("turns", len(req.History)).Msg("gemini reply received")
	return requireReply(p.Name(), resp.Text())
}

func roleToGeminiRole(r chat.Role) genai.Role {
	if r == chat.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func geminiContents(turns []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, genai.NewContentFromText(turn.Content, roleToGeminiRole(turn.Role)))
	}
	return contents
}

func normalizeGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: config.ProviderGemini, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return errors.Wrap(err, "gemini generate content")
}

func clampTokens(maxTokens *int) int32 {
	if maxTokens == nil || *maxTokens <= 0 {
		return 0
	}
	if *maxTokens > math.MaxInt32 {
		log.Warn().Int("requested_max_tokens", *maxTokens).Msg("max tokens exceeds int32; clamping")
		return math.MaxInt32
	}
	return int32(*maxTokens) // #nosec G115
}
