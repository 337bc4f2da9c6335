package bus

import (
	"context"
	"encoding/json"
	"fmt"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

// StatusEvent announces a committed document transition to collaborators.
type StatusEvent struct {
	TranscriptUUID string                 `json:"transcript_uuid"`
	From           types.ProcessingStatus `json:"from_status"`
	To             types.ProcessingStatus `json:"to_status"`
	Kind           types.TransitionKind   `json:"kind"`
	UpdatedAt      string                 `json:"updated_at"`
	ErrorMessage   *string                `json:"error_message,omitempty"`
}

func EventFromResult(res *types.TransitionResult) StatusEvent {
	ev := StatusEvent{From: res.From, To: res.To, Kind: res.Kind}
	if res.Document != nil {
		ev.TranscriptUUID = res.Document.TranscriptUUID
		ev.UpdatedAt = res.Document.UpdatedAt
		ev.ErrorMessage = res.Document.ErrorMessage
	}
	return ev
}

func encodeEvent(ev StatusEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(raw []byte) (StatusEvent, error) {
	var ev StatusEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return StatusEvent{}, err
	}
	if ev.TranscriptUUID == "" {
		return StatusEvent{}, fmt.Errorf("status event missing transcript_uuid")
	}
	return ev, nil
}

type Bus interface {
	Publish(ctx context.Context, ev StatusEvent) error
	StartForwarder(ctx context.Context, onMsg func(ev StatusEvent)) error
	Close() error
}

type noopBus struct{}

// NewNoopBus drops every event. Used when no redis address is configured.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, StatusEvent) error { return nil }

func (noopBus) StartForwarder(context.Context, func(StatusEvent)) error { return nil }

func (noopBus) Close() error { return nil }
