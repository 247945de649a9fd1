package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
)

func TestBuildInstructionWithoutMoodUsesPersonaBase(t *testing.T) {
	p := persona.Seed()[0]
	pm := NewPromptManager()

	got := pm.BuildInstruction(&p, chat.MoodNone)
	assert.Equal(t, p.Instruction, got)
}

func TestBuildInstructionWithoutPersonaIsGeneric(t *testing.T) {
	got := NewPromptManager().BuildInstruction(nil, chat.MoodNone)
	assert.Equal(t, genericInstruction, got)
}

func TestBuildInstructionAddsMoodGuidance(t *testing.T) {
	p := persona.Seed()[0]
	pm := NewPromptManager()

	for _, mood := range chat.Moods() {
		got := pm.BuildInstruction(&p, mood)
		assert.Contains(t, got, p.Instruction)
		assert.Contains(t, got, "feeling "+string(mood))

		tpl, err := pm.Template(mood)
		require.NoError(t, err)
		assert.Contains(t, got, tpl.Description)
	}
}

func TestBuildInstructionIgnoresUnknownMood(t *testing.T) {
	p := persona.Seed()[0]
	got := NewPromptManager().BuildInstruction(&p, chat.Mood("furious"))
	assert.Equal(t, p.Instruction, got)
}
