package stream_test

import (
	"sync/atomic"
	"testing"

	"github.com/ljankila/lingoscene/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(t *testing.T, b *stream.Broker)
	}
	tests := []testCase{
		{
			name: "watcher receives updates",
			testFunc: func(t *testing.T, b *stream.Broker) {
				key := "scope/0"
				ch := b.Open(key)
				go func() {
					ch <- stream.Update{Sender: "Aoi", Content: "H"}
					ch <- stream.Update{Sender: "Aoi", Content: "Hi", Done: true}
					b.Close(key, ch)
				}()
				updates := <-b.Watch(key)
				require.NotNil(t, updates, "watcher did not receive the reveal channel")
				first := <-updates
				require.Equal(t, "H", first.Content)
				last := <-updates
				require.True(t, last.Done, "final update not marked done")
				_, ok := <-updates
				require.False(t, ok, "channel not closed after reveal finished")
			},
		},
		{
			name: "watching an unopened key yields a closed reply",
			testFunc: func(t *testing.T, b *stream.Broker) {
				updates, ok := <-b.Watch("nothing-here")
				require.Nil(t, updates)
				require.False(t, ok)
			},
		},
		{
			name: "later watchers block until the reveal is closed",
			testFunc: func(t *testing.T, b *stream.Broker) {
				key := "scope/1"
				ch := b.Open(key)
				revealFinished := atomic.Bool{}

				updates := <-b.Watch(key)
				require.NotNil(t, updates)

				go func() {
					lateUpdates, ok := <-b.Watch(key)
					assert.Nil(t, lateUpdates, "late watcher received the live channel")
					assert.False(t, ok)
					assert.True(t, revealFinished.Load(), "late watcher unblocked before the reveal finished")
				}()

				ch <- stream.Update{Sender: "Aoi", Content: "Hi", Done: true}
				require.Equal(t, "Hi", (<-updates).Content)
				revealFinished.Store(true)
				b.Close(key, ch)

				lastUpdates, ok := <-b.Watch(key)
				require.Nil(t, lastUpdates)
				require.False(t, ok)
			},
		},
		{
			name: "send drops updates instead of blocking",
			testFunc: func(t *testing.T, b *stream.Broker) {
				ch := make(chan stream.Update, 1)
				stream.Send(ch, stream.Update{Content: "a"})
				stream.Send(ch, stream.Update{Content: "b"})
				require.Equal(t, "a", (<-ch).Content)
				require.Empty(t, ch)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := stream.NewBroker()
			go b.Run()
			t.Cleanup(b.Stop)
			tt.testFunc(t, b)
		})
	}
}
