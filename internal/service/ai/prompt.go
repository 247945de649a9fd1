package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
)

const genericInstruction = "You are a supportive and empathetic AI assistant. Respond helpfully and kindly."

// MoodTemplate shapes the reply for one mood.
type MoodTemplate struct {
	Description string
	Hints       []string
}

// PromptManager builds the per-request system instruction.
type PromptManager struct {
	moods map[chat.Mood]*MoodTemplate
}

// NewPromptManager creates a prompt manager with the default mood templates.
func NewPromptManager() *PromptManager {
	pm := &PromptManager{moods: make(map[chat.Mood]*MoodTemplate)}
	pm.loadDefaultTemplates()
	return pm
}

// Template returns the template for a mood.
func (pm *PromptManager) Template(mood chat.Mood) (*MoodTemplate, error) {
	tpl, ok := pm.moods[mood]
	if !ok {
		return nil, fmt.Errorf("prompt template not found for mood: %s", mood)
	}
	return tpl, nil
}

// BuildInstruction returns the persona's base instruction, followed by mood
// guidance when mood is one of the selectable moods.
func (pm *PromptManager) BuildInstruction(p *persona.Persona, mood chat.Mood) string {
	base := genericInstruction
	if p != nil && strings.TrimSpace(p.Instruction) != "" {
		base = p.Instruction
	}

	tpl, err := pm.Template(mood)
	if err != nil {
		return base
	}

	var builder strings.Builder
	builder.WriteString(base)
	builder.WriteString("\n\nThe user says they are feeling ")
	builder.WriteString(string(mood))
	builder.WriteString(". ")
	builder.WriteString(tpl.Description)
	if len(tpl.Hints) > 0 {
		builder.WriteString("\nHow to respond:\n- ")
		builder.WriteString(strings.Join(tpl.Hints, "\n- "))
	}
	return builder.String()
}

func (pm *PromptManager) loadDefaultTemplates() {
	pm.moods[chat.MoodHappy] = &MoodTemplate{
		Description: "Share their joy and keep the tone upbeat.",
		Hints: []string{
			"celebrate what went well and ask what made it special",
			"match their positive energy without exaggerating",
		},
	}
	pm.moods[chat.MoodSad] = &MoodTemplate{
		Description: "Be gentle, patient and comforting.",
		Hints: []string{
			"acknowledge the feeling before offering any suggestion",
			"avoid minimizing what they are going through",
			"invite them to talk more if they want to",
		},
	}
	pm.moods[chat.MoodNeutral] = &MoodTemplate{
		Description: "Keep a clear, friendly and natural tone.",
		Hints: []string{
			"answer directly and stay helpful",
		},
	}
	pm.moods[chat.MoodExcited] = &MoodTemplate{
		Description: "Respond with enthusiasm and help them channel that energy.",
		Hints: []string{
			"be lively and encouraging",
			"help them turn excitement into next steps when it fits",
		},
	}
	pm.moods[chat.MoodCalm] = &MoodTemplate{
		Description: "Keep a relaxed, unhurried and thoughtful tone.",
		Hints: []string{
			"use a soft pace and avoid overwhelming detail",
		},
	}
}
