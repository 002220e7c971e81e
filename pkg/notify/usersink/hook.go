// Package usersink forwards consent decision events to a go-users
// ActivitySink, giving deployments an audit trail of consent grants, denials,
// resets, and record updates.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-consent/pkg/notify"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts consent notifications to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink

	// Channel labels the activity records; defaults to the notify namespace.
	Channel string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Events without a name are dropped silently.
func (h Hook) Notify(ctx context.Context, event notify.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := notify.NormalizeEvent(event)
	if normalized.Name == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	channel := h.Channel
	if channel == "" {
		channel = notify.Namespace
	}

	record := usertypes.ActivityRecord{
		Verb:       normalized.Name,
		ObjectType: "consent",
		ObjectID:   recordID(normalized),
		Channel:    channel,
		Data:       normalized.Detail,
		OccurredAt: normalized.OccurredAt,
	}

	return h.Sink.Log(ctx, record)
}

// recordID pulls the consent record identifier out of the event detail,
// falling back to a fresh UUID so the sink always receives a usable object id.
func recordID(event notify.Event) string {
	if id, ok := event.Detail["_id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}
