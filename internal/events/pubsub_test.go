package events

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubDeliversInPublishOrder(t *testing.T) {
	ps := NewPubSub(zerolog.Nop())
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := ps.Subscribe(ctx, "session.a")
	require.NoError(t, err)

	const n = 20
	published := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			payload := []byte(fmt.Sprintf(`{"seq":%d}`, i+1))
			if err := ps.Publish("session.a", message.NewMessage(watermill.NewUUID(), payload)); err != nil {
				published <- err
				return
			}
		}
		published <- nil
	}()

	for i := 0; i < n; i++ {
		select {
		case msg := <-msgs:
			assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, i+1), string(msg.Payload))
			msg.Ack()
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not delivered", i+1)
		}
	}
	require.NoError(t, <-published)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	ps := NewPubSub(zerolog.Nop())
	defer ps.Close()

	require.NoError(t, ps.Publish("session.idle", message.NewMessage(watermill.NewUUID(), []byte(`{}`))))
}

func TestZerologAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	a := NewZerologAdapter(zerolog.New(&buf)).With(watermill.LogFields{"topic": "session.a"})

	a.Error("publish failed", assert.AnError, watermill.LogFields{"attempt": 1})

	assert.Contains(t, buf.String(), `"topic":"session.a"`)
	assert.Contains(t, buf.String(), `"attempt":1`)
	assert.Contains(t, buf.String(), "publish failed")
}
