package queue

import (
	"context"
	"testing"

	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(Config{Type: TypeNone}, log.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Pub(context.Background(), "einfiler.events", &message.Event{Kind: message.KindOutcome}))

	_, err = NewPublisher(Config{Type: "kafka"}, log.NewNopLogger())
	assert.Error(t, err)
}

func TestNewSubscriberRequiresBackend(t *testing.T) {
	_, err := NewSubscriber(Config{Type: TypeNone}, log.NewNopLogger())
	assert.Error(t, err)
}

func TestNatsUnreachable(t *testing.T) {
	cfg := Config{Type: TypeNats}
	cfg.Nats.Url = "nats://127.0.0.1:1"

	_, err := NewPublisher(cfg, log.NewNopLogger())
	assert.Error(t, err)
}
