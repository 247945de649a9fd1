package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	analysis "github.com/zhouzirui/jeff-companion/backend/internal/analysis/mood"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/store"
)

// Conversation is the part of a session manager the console drives.
type Conversation interface {
	SendMessage(ctx context.Context, text string, mood chat.Mood) chatService.Outcome
	ClearHistory()
}

// Options configures a Console.
type Options struct {
	// Prompt prints "> " before each line; off when stdin is not a terminal.
	Prompt bool
	// TranscriptPath, when set, receives the displayed messages as YAML on exit.
	TranscriptPath string
}

// Console is a line-oriented chat front end. It keeps its own message list,
// starting with the persona's greeting, and shows failures as assistant
// messages.
type Console struct {
	conv     Conversation
	persona  persona.Persona
	messages *chat.Transcript
	in       io.Reader
	out      io.Writer
	opts     Options
	mood     chat.Mood
}

// New creates a console for conv.
func New(conv Conversation, p persona.Persona, in io.Reader, out io.Writer, opts Options) *Console {
	c := &Console{
		conv:     conv,
		persona:  p,
		messages: chat.NewTranscript(),
		in:       in,
		out:      out,
		opts:     opts,
	}
	c.messages.Append(chat.RoleAssistant, p.Greeting, chat.MoodNone)
	return c
}

// Messages returns what the console has displayed so far.
func (c *Console) Messages() []chat.Turn {
	return c.messages.Snapshot()
}

// Run reads lines until EOF, /quit or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.say(c.persona.Greeting)
	c.printf("Type a message, or /help for commands.\n")

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return c.finish()
		case err := <-readErr:
			if err != nil {
				return err
			}
			return c.finish()
		case line := <-lines:
			if quit := c.handleLine(ctx, line); quit {
				return c.finish()
			}
		}
	}
}

func (c *Console) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "/") {
		return c.handleCommand(line)
	}

	c.messages.Append(chat.RoleUser, line, c.mood)
	c.suggestMood(line)

	outcome := c.conv.SendMessage(ctx, line, c.mood)
	text := outcome.Content
	if !outcome.Ok() {
		text = "Error: " + outcome.Reason
	}
	c.messages.Append(chat.RoleAssistant, text, chat.MoodNone)
	c.say(text)
	return false
}

func (c *Console) handleCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		c.conv.ClearHistory()
		c.messages.Clear()
		c.messages.Append(chat.RoleAssistant, c.persona.ClearedGreeting, chat.MoodNone)
		c.say(c.persona.ClearedGreeting)
	case "/history":
		for _, turn := range c.messages.Snapshot() {
			c.printf("[%s] %s\n", turn.Timestamp.Local().Format("15:04"), c.render(turn))
		}
	case "/mood":
		if len(fields) == 1 {
			c.printf("Current mood: %s. Options: none, %s\n", moodLabel(c.mood), joinMoods())
			return false
		}
		mood, err := chat.ParseMood(fields[1])
		if err != nil {
			c.printf("%v. Options: none, %s\n", err, joinMoods())
			return false
		}
		c.mood = mood
		c.printf("Mood set to %s.\n", moodLabel(mood))
	case "/help":
		c.printf("/mood [name|none]  show or set how you're feeling\n")
		c.printf("/clear             start over\n")
		c.printf("/history           show the conversation\n")
		c.printf("/quit              leave\n")
	default:
		c.printf("Unknown command %s. Try /help.\n", fields[0])
	}
	return false
}

// suggestMood hints at a mood when none is selected. It never applies one.
func (c *Console) suggestMood(text string) {
	if c.mood != chat.MoodNone {
		return
	}
	if s := analysis.Suggest(text); s.Mood != chat.MoodNone && s.Confidence >= 0.4 {
		c.printf("(sounds %s; /mood %s to tell %s)\n", s.Mood, s.Mood, c.persona.Name)
	}
}

func (c *Console) finish() error {
	if c.opts.TranscriptPath == "" {
		return nil
	}
	if err := store.SaveTranscript(c.opts.TranscriptPath, c.persona.ID, c.messages.Snapshot()); err != nil {
		return err
	}
	log.Info().Str("path", c.opts.TranscriptPath).Int("turns", c.messages.Len()).Msg("transcript saved")
	c.printf("Transcript saved to %s\n", c.opts.TranscriptPath)
	return nil
}

func (c *Console) render(turn chat.Turn) string {
	if turn.Role == chat.RoleAssistant {
		return c.persona.Name + ": " + turn.Content
	}
	if turn.Mood != chat.MoodNone {
		return fmt.Sprintf("You (%s): %s", turn.Mood, turn.Content)
	}
	return "You: " + turn.Content
}

func (c *Console) say(text string) {
	c.printf("%s: %s\n", c.persona.Name, text)
}

func (c *Console) prompt() {
	if c.opts.Prompt {
		c.printf("> ")
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func moodLabel(m chat.Mood) string {
	if m == chat.MoodNone {
		return "none"
	}
	return string(m)
}

func joinMoods() string {
	moods := chat.Moods()
	names := make([]string, len(moods))
	for i, m := range moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// PrintTranscript writes a saved transcript in the console's format.
func PrintTranscript(out io.Writer, doc store.Transcript, p persona.Persona) {
	c := &Console{persona: p, out: out}
	for _, turn := range doc.Turns {
		c.printf("[%s] %s\n", turn.Timestamp.Local().Format("2006-01-02 15:04"), c.render(turn))
	}
}
