// Package store persists consent records. A Store composes up to two
// byte-level backends — a cookie jar and a device-local key/value store — and
// owns serialization, so callers only ever see typed records while the
// backends see opaque snapshots at rest.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Method selects which backends a Store writes through.
type Method string

const (
	// MethodCookie stores records in the cookie jar only.
	MethodCookie Method = "cookie"
	// MethodDevice stores records in device-local storage only.
	MethodDevice Method = "device"
	// MethodHybrid stores records in both backends.
	MethodHybrid Method = "hybrid"
)

// ParseMethod normalizes a configured storage method, accepting the legacy
// "localstorage" spelling. Unknown or empty values fall back to hybrid.
func ParseMethod(value string) Method {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cookie":
		return MethodCookie
	case "device", "localstorage":
		return MethodDevice
	case "hybrid", "":
		return MethodHybrid
	default:
		return MethodHybrid
	}
}

func (m Method) usesCookie() bool { return m == MethodCookie || m == MethodHybrid }
func (m Method) usesDevice() bool { return m == MethodDevice || m == MethodHybrid }

// SetOptions carries write attributes backends may honour. Cookie backends use
// all three; key/value backends only the TTL.
type SetOptions struct {
	TTL    time.Duration
	Domain string
	Path   string
}

// Backend reads and writes opaque record snapshots under a key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error
	Delete(ctx context.Context, key string, opts SetOptions) error
}

// Store loads and saves one typed record under a single storage name.
type Store[T any] struct {
	method Method
	name   string
	cookie Backend
	device Backend
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithCookieBackend wires the cookie backend.
func WithCookieBackend[T any](backend Backend) Option[T] {
	return func(s *Store[T]) { s.cookie = backend }
}

// WithDeviceBackend wires the device-local backend.
func WithDeviceBackend[T any](backend Backend) Option[T] {
	return func(s *Store[T]) { s.device = backend }
}

// New constructs a Store for the given method and storage name.
func New[T any](method Method, name string, opts ...Option[T]) *Store[T] {
	s := &Store[T]{method: method, name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Name returns the storage key the store reads and writes.
func (s *Store[T]) Name() string { return s.name }

// Load returns the first structurally valid record found, device storage
// first, cookie second. A missing or unparseable snapshot is reported as
// absent; the returned error is advisory (parse diagnostics), never fatal.
func (s *Store[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	var diag error

	backends := make([]Backend, 0, 2)
	if s.method.usesDevice() && s.device != nil {
		backends = append(backends, s.device)
	}
	if s.method.usesCookie() && s.cookie != nil {
		backends = append(backends, s.cookie)
	}

	for _, backend := range backends {
		raw, ok, err := backend.Get(ctx, s.name)
		if err != nil {
			diag = errors.Join(diag, err)
			continue
		}
		if !ok || len(raw) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			diag = errors.Join(diag, fmt.Errorf("store: parse %q: %w", s.name, err))
			continue
		}
		return record, true, diag
	}
	return zero, false, diag
}

// Save serializes the record and writes it through every backend the method
// enables. The cookie write carries an expiry ttlDays in the future, path
// root, and the resolved domain.
func (s *Store[T]) Save(ctx context.Context, record T, ttlDays int, domain string) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal %q: %w", s.name, err)
	}

	opts := SetOptions{
		TTL:    time.Duration(ttlDays) * 24 * time.Hour,
		Domain: domain,
		Path:   "/",
	}

	var errs []error
	if s.method.usesDevice() && s.device != nil {
		if err := s.device.Set(ctx, s.name, raw, opts); err != nil {
			errs = append(errs, fmt.Errorf("store: device save: %w", err))
		}
	}
	if s.method.usesCookie() && s.cookie != nil {
		if err := s.cookie.Set(ctx, s.name, raw, opts); err != nil {
			errs = append(errs, fmt.Errorf("store: cookie save: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Purge removes the record from both backends regardless of the configured
// method. Purging an empty store is not an error.
func (s *Store[T]) Purge(ctx context.Context, domain string) error {
	opts := SetOptions{Domain: domain, Path: "/"}

	var errs []error
	if s.device != nil {
		if err := s.device.Delete(ctx, s.name, opts); err != nil {
			errs = append(errs, fmt.Errorf("store: device purge: %w", err))
		}
	}
	if s.cookie != nil {
		if err := s.cookie.Delete(ctx, s.name, opts); err != nil {
			errs = append(errs, fmt.Errorf("store: cookie purge: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RootDomain derives the registrable root domain for cookie scoping. When the
// second-level label is short (three characters or fewer, e.g. "co.uk") the
// root keeps three labels instead of two. "localhost" maps to an empty domain
// so the cookie stays scoped to the exact host.
func RootDomain(hostname string) string {
	if hostname == "localhost" || hostname == "" {
		return ""
	}

	labels := strings.Split(hostname, ".")
	if len(labels) < 2 {
		return hostname
	}

	root := labels[len(labels)-2] + "." + labels[len(labels)-1]
	if len(labels) > 2 && len(labels[len(labels)-2]) <= 3 {
		root = labels[len(labels)-3] + "." + root
	}
	return root
}
