package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopBroker(t *testing.T) {
	var b Broker = NewNoopBroker()
	ctx, cancel := context.WithCancel(context.Background())

	assert.NoError(t, b.Publish(ctx, "events", map[string]string{"type": "x"}))
	assert.NoError(t, b.Ping(ctx))

	ch, err := b.Subscribe(ctx, "events")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription did not close with context")
	}
	assert.NoError(t, b.Close())
}
