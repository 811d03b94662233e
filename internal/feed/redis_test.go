package feed

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

// Requires a reachable Redis; set REDIS_ADDR to enable.
func TestRedis_PublishSubscribe(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, config.RedisConfig{Enabled: true, Addr: addr})
	require.NoError(t, err)
	b := NewRedis(client, zerolog.New(io.Discard))
	t.Cleanup(func() { _ = b.Close() })

	gameID := time.Now().UnixNano()
	ch, err := b.Subscribe(ctx, gameID)
	require.NoError(t, err)

	want := Message{Type: EventDeleted, GameID: gameID, Event: model.StatEvent{ID: "e1", Kind: model.KindBlock}, At: time.Now().UTC()}
	require.NoError(t, b.Publish(ctx, want))

	got := recv(t, ch)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Event.ID, got.Event.ID)
	assert.Equal(t, model.KindBlock, got.Event.Kind)
	assert.NoError(t, b.Ping(ctx))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "hoops:game:42", channel(42))
}
