package notify

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Namespace prefixes every emitted event name so subscribers can filter
// consent traffic out of a shared event stream.
const Namespace = "simple-consent"

// Event describes a consent lifecycle occurrence fanned out to hooks.
// Name is unqualified ("settings.update", "banner.show.before", ...);
// Qualified() yields the namespaced form.
type Event struct {
	Name       string
	Detail     map[string]any
	OccurredAt time.Time
}

// Qualified returns the namespaced event name, e.g.
// "simple-consent:settings.update".
func (e Event) Qualified() string {
	return Namespace + ":" + e.Name
}

// Hook receives normalized consent events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. The event is normalized first and dropped when it carries no name.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Name == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims the name, clones the detail map, and ensures a
// timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Name = strings.TrimSpace(event.Name)
	normalized.Detail = cloneMap(event.Detail)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
