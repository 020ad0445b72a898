// Package memory is the in-process SyncStreamer.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/israelwong/zen-sub001/pkg/eventstream"
)

// DefaultBuffer absorbs the burst produced by renumbering a large scope.
const DefaultBuffer = 1024

var ErrStreamerClosed = errors.New("eventstream: streamer closed")

type subscriber[Topic any, Payload any] struct {
	filter eventstream.TopicFilter[Topic]
	ch     chan eventstream.Event[Topic, Payload]
	once   sync.Once
}

func (s *subscriber[Topic, Payload]) close() {
	s.once.Do(func() { close(s.ch) })
}

type Streamer[Topic any, Payload any] struct {
	buffer int

	mu     sync.RWMutex
	subs   map[*subscriber[Topic, Payload]]struct{}
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Uint64
}

var _ eventstream.SyncStreamer[string, int] = (*Streamer[string, int])(nil)

func New[Topic any, Payload any](buffer int) *Streamer[Topic, Payload] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Streamer[Topic, Payload]{
		buffer: buffer,
		subs:   make(map[*subscriber[Topic, Payload]]struct{}),
	}
}

func (s *Streamer[Topic, Payload]) Subscribe(ctx context.Context, filter eventstream.TopicFilter[Topic]) (<-chan eventstream.Event[Topic, Payload], error) {
	sub := &subscriber[Topic, Payload]{
		filter: filter,
		ch:     make(chan eventstream.Event[Topic, Payload], s.buffer),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStreamerClosed
	}
	s.subs[sub] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.remove(sub)
	}()
	return sub.ch, nil
}

// Publish never blocks. Events that do not fit a subscriber's buffer are
// counted in Dropped.
func (s *Streamer[Topic, Payload]) Publish(topic Topic, payloads ...Payload) {
	if len(payloads) == 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	for sub := range s.subs {
		if sub.filter != nil && !sub.filter(topic) {
			continue
		}
		for _, p := range payloads {
			select {
			case sub.ch <- eventstream.Event[Topic, Payload]{Topic: topic, Payload: p}:
			default:
				s.dropped.Add(1)
			}
		}
	}
}

func (s *Streamer[Topic, Payload]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Streamer[Topic, Payload]) Dropped() uint64 {
	return s.dropped.Load()
}

// Shutdown closes every subscriber channel. Subscription goroutines exit
// once their contexts end.
func (s *Streamer[Topic, Payload]) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.mu.Unlock()
}

// Wait blocks until every subscription goroutine has exited.
func (s *Streamer[Topic, Payload]) Wait() {
	s.wg.Wait()
}

func (s *Streamer[Topic, Payload]) remove(sub *subscriber[Topic, Payload]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
	}
	sub.close()
}
