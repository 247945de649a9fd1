package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

func newService(apiKey string, provider ai.Provider) *chatService.Service {
	factory := func(context.Context, string, string) (ai.Provider, error) { return provider, nil }
	return chatService.NewService(
		chatService.ServiceConfig{APIKey: apiKey, Timeout: time.Second},
		persona.NewMemoryStore(persona.Seed()),
		factory,
		nil,
	)
}

func TestServiceGetSession(t *testing.T) {
	svc := newService("key", replying("hi"))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, persona.DefaultID)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, persona.DefaultID, got.PersonaID)
	assert.Contains(t, svc.Greeting(session.ID), "I'm Jeff")
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService("key", replying("hi"))

	_, err := svc.GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, chatService.ErrSessionNotFound))

	_, err = svc.Manager(context.Background(), "missing")
	assert.True(t, errors.Is(err, chatService.ErrSessionNotFound))
}

func TestServiceCreateSessionValidation(t *testing.T) {
	svc := newService("key", replying("hi"))
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "")
	assert.True(t, errors.Is(err, chatService.ErrPersonaRequired))

	_, err = svc.CreateSession(ctx, "iron-man")
	assert.True(t, errors.Is(err, chatService.ErrPersonaNotFound))

	_, err = newService("", replying("hi")).CreateSession(ctx, persona.DefaultID)
	assert.True(t, chatService.IsKind(err, chatService.KindConfiguration))
}

func TestServiceSessionsAreIsolated(t *testing.T) {
	svc := newService("key", replying("hello there"))
	ctx := context.Background()

	a, err := svc.CreateSession(ctx, persona.DefaultID)
	require.NoError(t, err)
	b, err := svc.CreateSession(ctx, persona.DefaultID)
	require.NoError(t, err)

	ma, err := svc.Manager(ctx, a.ID)
	require.NoError(t, err)
	mb, err := svc.Manager(ctx, b.ID)
	require.NoError(t, err)

	require.True(t, ma.SendMessage(ctx, "hi", chat.MoodNone).Ok())
	assert.Len(t, ma.History(), 2)
	assert.Empty(t, mb.History())

	assert.Len(t, svc.ListSessions(ctx), 2)

	require.NoError(t, svc.DeleteSession(ctx, a.ID))
	assert.True(t, errors.Is(svc.DeleteSession(ctx, a.ID), chatService.ErrSessionNotFound))
	assert.Len(t, svc.ListSessions(ctx), 1)
}

func TestServiceRekey(t *testing.T) {
	svc := newService("key", replying("hi"))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, persona.DefaultID)
	require.NoError(t, err)
	m, err := svc.Manager(ctx, session.ID)
	require.NoError(t, err)
	m.SendMessage(ctx, "hi", chat.MoodNone)

	assert.Error(t, svc.Rekey(""))
	require.NoError(t, svc.Rekey("other"))
	assert.Empty(t, m.History())
}
