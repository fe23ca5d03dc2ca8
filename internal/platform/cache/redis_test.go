package cache

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := New(context.Background(), Options{Addr: addr})
	require.Error(t, err)
}

func TestQueueOptsMirrorsConnection(t *testing.T) {
	opts := Options{Addr: "redis:6379", Password: "pw", DB: 2}
	q := opts.QueueOpts()
	require.Equal(t, "redis:6379", q.Addr)
	require.Equal(t, "pw", q.Password)
	require.Equal(t, 2, q.DB)
}
