// Package eventstream fans committed changes out to live subscribers.
package eventstream

import "context"

// Event pairs a payload with the topic it was published on.
type Event[Topic any, Payload any] struct {
	Topic   Topic
	Payload Payload
}

// TopicFilter selects the topics a subscriber wants. A nil filter accepts
// everything.
type TopicFilter[Topic any] func(Topic) bool

// SyncStreamer publishes events to subscribers without blocking the
// publisher. Slow subscribers lose events instead of stalling writes.
type SyncStreamer[Topic any, Payload any] interface {
	// Subscribe returns a channel closed when ctx ends or the streamer shuts down.
	Subscribe(ctx context.Context, filter TopicFilter[Topic]) (<-chan Event[Topic, Payload], error)
	Publish(topic Topic, payloads ...Payload)
	Shutdown()
}

// Forward copies matching events to send until ctx ends or the stream closes.
func Forward[Topic any, Payload any, Response any](
	ctx context.Context,
	streamer SyncStreamer[Topic, Payload],
	filter TopicFilter[Topic],
	convert func(Event[Topic, Payload]) *Response,
	send func(*Response) error,
) error {
	events, err := streamer.Subscribe(ctx, filter)
	if err != nil {
		return err
	}

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if msg := convert(evt); msg != nil {
				if err := send(msg); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
