package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/models"
)

// ExecutionStream exposes the bus as per-execution status streams. Each
// Subscribe call opens an independent consumer filtered by the execution id
// metadata, so multiple monitors can follow different runs on one transport.
type ExecutionStream struct {
	subscriber message.Subscriber
}

// NewExecutionStream wraps a watermill subscriber.
func NewExecutionStream(subscriber message.Subscriber) *ExecutionStream {
	return &ExecutionStream{subscriber: subscriber}
}

// Subscribe yields the status events for one execution id. The returned
// cancel function closes the consumer; the channel is closed when the
// consumer stops. Terminal events close the channel from the producing side
// once delivered.
func (s *ExecutionStream) Subscribe(ctx context.Context, executionID string) (<-chan models.StatusEvent, func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	messages, err := s.subscriber.Subscribe(streamCtx, events.Topic)
	if err != nil {
		cancel()

		return nil, nil, err
	}

	out := make(chan models.StatusEvent, 16)

	go func() {
		defer close(out)

		for msg := range messages {
			msg.Ack()

			if msg.Metadata.Get(events.EventMetadataKey) != executionID {
				continue
			}

			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			status, ok := toStatusEvent(eventType, msg.Payload)
			if !ok {
				continue
			}

			select {
			case out <- status:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

func toStatusEvent(eventType events.EventType, payload []byte) (models.StatusEvent, bool) {
	decoded, err := DecodeEvent(eventType, payload)
	if err != nil {
		return models.StatusEvent{}, false
	}

	switch event := decoded.(type) {
	case *events.ExecutionStarted:
		return models.StatusEvent{Type: models.StatusEventStarted}, true
	case *events.ExecutionProgress:
		return models.StatusEvent{Type: models.StatusEventProgress, Progress: event.Progress}, true
	case *events.ExecutionCompleted:
		return models.StatusEvent{Type: models.StatusEventCompleted, OutputData: event.OutputData}, true
	case *events.ExecutionFailed:
		return models.StatusEvent{Type: models.StatusEventFailed, ErrorMessage: event.ErrorMessage}, true
	default:
		return models.StatusEvent{}, false
	}
}
