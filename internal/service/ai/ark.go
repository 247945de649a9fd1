package ai

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// ArkProvider runs an eino chain (system template + replayed history) against
// a volcengine ark chat model.
type ArkProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkProvider builds the ark chat model and compiles the chain once.
func NewArkProvider(ctx context.Context, cfg config.AIConfig, apiKey, modelName string) (*ArkProvider, error) {
	chatModel, err := cfg.NewChatModel(ctx, apiKey, modelName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat model")
	}
	return NewChainProvider(ctx, chatModel)
}

// NewChainProvider compiles the chat chain around any eino chat model.
func NewChainProvider(ctx context.Context, chatModel model.BaseChatModel) (*ArkProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{instruction}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile chat chain")
	}

	return &ArkProvider{chain: runnable}, nil
}

// Name implements Provider.
func (p *ArkProvider) Name() string {
	return config.ProviderArk
}

// Generate implements Provider.
func (p *ArkProvider) Generate(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"instruction": req.Instruction,
		"history":     buildHistoryMessages(req.History),
	}

	response, err := p.chain.Invoke(ctx, input)
	if err != nil {
		return "", errors.Wrap(err, "failed to run chat chain")
	}
	if response == nil {
		return "", errors.Wrap(ErrEmptyReply, p.Name())
	}

	log.Debug().Int("turns", len(req.History)).Int("length", len(response.Content)).Msg("ark reply received")
	return requireReply(p.Name(), response.Content)
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
