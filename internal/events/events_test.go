package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInProcessRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewInProcess(discardLogger())
	defer p.Close()

	msgs, err := p.Subscribe(ctx, TopicUserCreated)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, p.Publish(ctx, TopicUserCreated, AccountEvent{UserID: id, Email: "ana@codeschool.dev", Role: 1}))

	select {
	case msg := <-msgs:
		ev, err := Decode(msg)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, id, ev.UserID)
		assert.Equal(t, "ana@codeschool.dev", ev.Email)
		assert.Equal(t, 1, ev.Role)
		assert.False(t, ev.OccurredAt.IsZero())
		assert.Equal(t, TopicUserCreated, msg.Metadata.Get("topic"))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), TopicUserCreated, AccountEvent{}))
	p.Emit(context.Background(), TopicUserCreated, AccountEvent{})
	assert.NoError(t, p.Close())

	_, err := p.Subscribe(context.Background(), TopicUserCreated)
	assert.Error(t, err)
}

func TestNewPublisherWithoutBrokersIsInProcess(t *testing.T) {
	p, err := NewPublisher(nil, discardLogger())
	require.NoError(t, err)
	defer p.Close()
	assert.NotNil(t, p.sub)
}

func TestRunAuditLog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewInProcess(discardLogger())
	defer p.Close()

	require.NoError(t, RunAuditLog(ctx, p, discardLogger()))
	assert.NoError(t, p.Publish(ctx, TopicPasswordChanged, AccountEvent{UserID: uuid.New()}))
}
