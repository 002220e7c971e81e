// Package datalayer bridges consent state into a tag-management data layer.
// It mirrors the Google Tag Manager integration contract: every push carries a
// category→status mapping in gtag "granted"/"denied" vocabulary plus consent
// metadata for downstream triggers.
package datalayer

import (
	"context"
	"sync"

	"github.com/goliatone/go-consent/pkg/notify"
)

// Status is the gtag-style consent value for one category or alias.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// FromBool converts a stored boolean decision into its wire status.
func FromBool(granted bool) Status {
	if granted {
		return StatusGranted
	}
	return StatusDenied
}

// Meta carries consent metadata alongside each push.
type Meta struct {
	Model string `json:"model"`
	Geo   string `json:"geo,omitempty"`
	GPC   bool   `json:"gpc"`
}

// Payload is one data layer entry.
type Payload struct {
	Event   string            `json:"event"`
	Consent map[string]Status `json:"consent"`
	Meta    Meta              `json:"consentMeta"`
}

// NewPayload builds a payload for the given lifecycle event ("load",
// "update"). The event name is namespaced the same way notifications are.
func NewPayload(event string, consent map[string]Status, meta Meta) Payload {
	return Payload{
		Event:   notify.Namespace + ":" + event,
		Consent: consent,
		Meta:    meta,
	}
}

// Sink is an append-only data layer target.
type Sink interface {
	Push(ctx context.Context, payload Payload) error
}

// SinkFunc allows plain functions to satisfy Sink.
type SinkFunc func(ctx context.Context, payload Payload) error

// Push dispatches to the underlying function.
func (fn SinkFunc) Push(ctx context.Context, payload Payload) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, payload)
}

// SliceSink collects pushed payloads in order, the in-process analogue of the
// dataLayer array. Safe for concurrent use.
type SliceSink struct {
	mu       sync.Mutex
	payloads []Payload
}

// Push appends the payload.
func (s *SliceSink) Push(_ context.Context, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

// Payloads returns a copy of everything pushed so far.
func (s *SliceSink) Payloads() []Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Payload, len(s.payloads))
	copy(out, s.payloads)
	return out
}
