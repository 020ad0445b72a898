package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/israelwong/zen-sub001/pkg/eventstream"
	"github.com/israelwong/zen-sub001/pkg/eventstream/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func TestPublishRespectsFilter(t *testing.T) {
	s := memory.New[string, int](8)
	defer s.Wait()
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	plans, err := s.Subscribe(ctx, func(topic string) bool { return topic == "plans" })
	require.NoError(t, err)
	all, err := s.Subscribe(ctx, nil)
	require.NoError(t, err)

	s.Publish("stages", 1)
	s.Publish("plans", 2, 3)

	assert.Equal(t, eventstream.Event[string, int]{Topic: "stages", Payload: 1}, receive(t, all))
	assert.Equal(t, 2, receive(t, all).Payload)
	assert.Equal(t, 3, receive(t, all).Payload)

	assert.Equal(t, 2, receive(t, plans).Payload)
	assert.Equal(t, 3, receive(t, plans).Payload)
	select {
	case evt := <-plans:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	s := memory.New[string, int](1)
	defer s.Wait()
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Subscribe(ctx, nil)
	require.NoError(t, err)

	s.Publish("plans", 1, 2, 3)
	assert.Equal(t, uint64(2), s.Dropped())
}

func TestCancelRemovesSubscriber(t *testing.T) {
	s := memory.New[string, int](4)
	defer s.Wait()
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Subscribers())

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Subscribers())
}

func TestShutdown(t *testing.T) {
	s := memory.New[string, int](4)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx, nil)
	require.NoError(t, err)

	s.Shutdown()
	s.Shutdown()
	_, ok := <-ch
	assert.False(t, ok)

	_, err = s.Subscribe(ctx, nil)
	require.ErrorIs(t, err, memory.ErrStreamerClosed)
	s.Publish("plans", 1)

	cancel()
	s.Wait()
}

func TestForward(t *testing.T) {
	s := memory.New[string, int](4)
	defer s.Wait()
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- eventstream.Forward(ctx, s, nil,
			func(evt eventstream.Event[string, int]) *string {
				if evt.Payload < 0 {
					return nil
				}
				msg := evt.Topic
				return &msg
			},
			func(msg *string) error {
				got <- *msg
				return nil
			})
	}()

	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, time.Second, time.Millisecond)
	s.Publish("skip", -1)
	s.Publish("plans", 1)
	assert.Equal(t, "plans", receive(t, got))

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}
