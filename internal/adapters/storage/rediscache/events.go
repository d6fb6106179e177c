package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/domain"
)

// ChangeMessage is the JSON payload published for each committed transition.
type ChangeMessage struct {
	BoardID    string            `json:"board_id,omitempty"`
	TaskID     string            `json:"task_id,omitempty"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func messageFromEvent(event domain.ChangeEvent) ChangeMessage {
	return ChangeMessage{
		BoardID:    event.BoardID,
		TaskID:     event.TaskID,
		Operation:  string(event.Operation),
		Metadata:   event.Metadata,
		OccurredAt: event.OccurredAt.UTC(),
	}
}

// Event converts the message back into a domain change event.
func (m ChangeMessage) Event() domain.ChangeEvent {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return domain.ChangeEvent{
		BoardID:    m.BoardID,
		TaskID:     m.TaskID,
		Operation:  domain.ChangeOperation(m.Operation),
		Metadata:   metadata,
		OccurredAt: m.OccurredAt.UTC(),
	}
}

// WatchChanges listens on channel and calls handle for every decoded change event until ctx
// is canceled or the subscription closes.
func WatchChanges(
	ctx context.Context,
	logger *log.Logger,
	rc *redis.Client,
	channel string,
	handle func(domain.ChangeEvent),
) {
	sub := rc.Subscribe(ctx, channel)
	defer func() {
		_ = sub.Close()
	}()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				if logger != nil {
					logger.Error("change subscription closed", "channel", channel)
				}
				return
			}
			var payload ChangeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				if logger != nil {
					logger.Warn("unable to parse change message", "channel", channel, "err", err)
				}
				continue
			}
			handle(payload.Event())
		}
	}
}
