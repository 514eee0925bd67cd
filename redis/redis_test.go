package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meikuraledutech/architex"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl), mr
}

func sampleState() *architex.State {
	return &architex.State{
		Nodes: []architex.Node{
			{ID: "redis-1", Type: "component", Data: architex.NodeData{Label: "Redis", ComponentID: "redis"}},
			{ID: "express-2", Type: "component", Data: architex.NodeData{Label: "Express", ComponentID: "express"}},
		},
		Edges:       []architex.Edge{{ID: "edge-redis-1-express-2", Source: "redis-1", Target: "express-2"}},
		ProjectName: "cache",
		Prompt:      "cache layer",
		UpdatedAt:   1700000000000,
	}
}

func TestRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, s.Save(ctx, "a", want))

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t, 0)
	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, architex.ErrStateNotFound)
}

func TestLoadCorrupt(t *testing.T) {
	s, mr := newTestStore(t, 0)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	_, err := s.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, architex.ErrStateNotFound)
}

func TestKeysAndDelete(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "b", sampleState()))
	require.NoError(t, s.Save(ctx, "a", sampleState()))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestKeysPrunesExpired(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", sampleState()))

	mr.FastForward(2 * time.Minute)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.False(t, mr.Exists(keysSet))
}

var _ architex.StateStore = (*RedisStore)(nil)
