package notify

import (
	"context"
	"sync"
)

// CaptureHook records every event it receives. Intended for tests and
// debugging subscriptions.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
}

// Notify appends the event to the capture buffer.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, event)
	return nil
}

// Names returns the unqualified names of all captured events in order.
func (h *CaptureHook) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.Events))
	for i, event := range h.Events {
		names[i] = event.Name
	}
	return names
}

// Reset clears the capture buffer.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = nil
}
