package console

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/store"
)

type fakeConversation struct {
	moods   []chat.Mood
	fail    bool
	cleared int
}

func (f *fakeConversation) SendMessage(_ context.Context, text string, mood chat.Mood) chatService.Outcome {
	f.moods = append(f.moods, mood)
	if f.fail {
		return chatService.Failure(chatService.KindTimeout, "The request timed out after 30s. Please try again.")
	}
	return chatService.Success(chat.Turn{Role: chat.RoleAssistant, Content: "echo: " + text})
}

func (f *fakeConversation) ClearHistory() { f.cleared++ }

func run(t *testing.T, conv Conversation, input string, opts Options) (*Console, string) {
	t.Helper()
	var out bytes.Buffer
	c := New(conv, persona.Seed()[0], strings.NewReader(input), &out, opts)
	require.NoError(t, c.Run(context.Background()))
	return c, out.String()
}

func TestConsoleStartsWithGreeting(t *testing.T) {
	c, out := run(t, &fakeConversation{}, "", Options{})

	assert.Contains(t, out, "Jeff: Hello! I'm Jeff")
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.RoleAssistant, msgs[0].Role)
}

func TestConsoleSendsAndRecordsReplies(t *testing.T) {
	conv := &fakeConversation{}
	c, out := run(t, conv, "hi there\n/quit\nignored\n", Options{})

	assert.Contains(t, out, "Jeff: echo: hi there")
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.Equal(t, "echo: hi there", msgs[2].Content)
	assert.Len(t, conv.moods, 1)
}

func TestConsoleRendersFailuresAsAssistantMessages(t *testing.T) {
	c, out := run(t, &fakeConversation{fail: true}, "hello\n", Options{})

	assert.Contains(t, out, "Jeff: Error: The request timed out")
	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.RoleAssistant, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "Error: "))
}

func TestConsoleMoodCommand(t *testing.T) {
	conv := &fakeConversation{}
	c, out := run(t, conv, "/mood happy\nI got a promotion!\n/mood none\nthanks\n/mood grumpy\n", Options{})

	assert.Equal(t, []chat.Mood{chat.MoodHappy, chat.MoodNone}, conv.moods)
	assert.Contains(t, out, "Mood set to happy.")
	assert.Contains(t, out, "unknown mood")
	assert.Equal(t, chat.MoodHappy, c.Messages()[1].Mood)
}

func TestConsoleClearReseedsGreeting(t *testing.T) {
	conv := &fakeConversation{}
	c, out := run(t, conv, "hi\n/clear\n", Options{})

	assert.Equal(t, 1, conv.cleared)
	assert.Contains(t, out, "Conversation cleared. How can I help you?")
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Conversation cleared. How can I help you?", msgs[0].Content)
}

func TestConsoleHistoryAndPrompt(t *testing.T) {
	_, out := run(t, &fakeConversation{}, "hi\n/history\n/bogus\n", Options{Prompt: true})

	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "You: hi")
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestConsoleSavesTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	run(t, &fakeConversation{}, "hi\n", Options{TranscriptPath: path})

	doc, err := store.LoadTranscript(path)
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultID, doc.PersonaID)
	require.Len(t, doc.Turns, 3)

	var out bytes.Buffer
	PrintTranscript(&out, doc, persona.Seed()[0])
	assert.Contains(t, out.String(), "You: hi")
	assert.Contains(t, out.String(), "Jeff: echo: hi")
}
