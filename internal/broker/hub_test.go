package broker_test

import (
	"testing"
	"time"

	"github.com/myrjola/aivisibility/internal/broker"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, c <-chan T) (T, bool) {
	t.Helper()
	select {
	case v, ok := <-c:
		return v, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for payload")
	}
	var zero T
	return zero, false
}

func TestHub(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(b *broker.Hub[string, int])
	}
	tests := []testCase{
		{
			name: "every subscriber of an id receives the payload",
			testFunc: func(b *broker.Hub[string, int]) {
				first := b.Subscribe("session-a")
				second := b.Subscribe("session-a")
				other := b.Subscribe("session-b")

				b.Publish("session-a", 3)

				v, ok := receive(t, first.C)
				require.True(t, ok)
				require.Equal(t, 3, v)
				v, ok = receive(t, second.C)
				require.True(t, ok)
				require.Equal(t, 3, v)
				require.Empty(t, other.C, "subscriber of another id received payload")
			},
		},
		{
			name: "unsubscribe closes the channel",
			testFunc: func(b *broker.Hub[string, int]) {
				sub := b.Subscribe("session-a")
				b.Unsubscribe(sub)
				_, ok := receive(t, sub.C)
				require.False(t, ok, "channel not closed")

				// Publishing without subscribers and unsubscribing twice must not block.
				b.Publish("session-a", 1)
				b.Unsubscribe(sub)
			},
		},
		{
			name: "slow subscriber does not block the publisher",
			testFunc: func(b *broker.Hub[string, int]) {
				sub := b.Subscribe("session-a")
				for i := range 10 {
					b.Publish("session-a", i)
				}
				// Round trip through the hub so that the last publication has been handled.
				b.Unsubscribe(b.Subscribe("sync"))
				// Only the buffered payloads arrive.
				v, ok := receive(t, sub.C)
				require.True(t, ok)
				require.Equal(t, 0, v)
				v, ok = receive(t, sub.C)
				require.True(t, ok)
				require.Equal(t, 1, v)
				require.Empty(t, sub.C)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := broker.NewHub[string, int](2)
			go hub.Start()
			t.Cleanup(func() {
				hub.Stop()
			})
			tt.testFunc(hub)
		})
	}
}

func TestHub_StopClosesSubscriptions(t *testing.T) {
	hub := broker.NewHub[string, int](1)
	go hub.Start()
	sub := hub.Subscribe("session-a")
	hub.Stop()

	_, ok := receive(t, sub.C)
	require.False(t, ok)

	// Operations after stop return immediately.
	hub.Publish("session-a", 1)
	late := hub.Subscribe("session-a")
	_, ok = receive(t, late.C)
	require.False(t, ok)
}
