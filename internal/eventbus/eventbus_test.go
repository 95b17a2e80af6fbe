package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }

type pong struct{}

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var got []string
	unsubA := Subscribe(func(_ context.Context, p ping) { got = append(got, "a") })
	Subscribe(func(_ context.Context, p ping) { got = append(got, "b") })
	Subscribe(func(_ context.Context, _ pong) { got = append(got, "pong") })

	Publish(context.Background(), ping{N: 1})
	require.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	got = nil
	Publish(context.Background(), ping{N: 2})
	Publish(context.Background(), pong{})
	require.Equal(t, []string{"b", "pong"}, got)
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}
