package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Jar is the host-supplied cookie surface. ReadCookies returns the raw
// semicolon-delimited cookie header ("a=1; b=2"); WriteCookie receives a
// Set-Cookie style string with expiry, path, and domain attributes.
type Jar interface {
	ReadCookies(ctx context.Context) (string, error)
	WriteCookie(ctx context.Context, setCookie string) error
}

// CookieBackend adapts a Jar to the Backend interface using the cookie codec.
type CookieBackend struct {
	Jar Jar
}

// NewCookieBackend wraps jar.
func NewCookieBackend(jar Jar) *CookieBackend {
	return &CookieBackend{Jar: jar}
}

// Get looks the key up in the jar's cookie header.
func (b *CookieBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.Jar == nil {
		return nil, false, nil
	}
	header, err := b.Jar.ReadCookies(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("store: read cookies: %w", err)
	}
	value, ok := DecodeCookie(header, key)
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set writes the value with expiry TTL in the future.
func (b *CookieBackend) Set(ctx context.Context, key string, value []byte, opts SetOptions) error {
	if b.Jar == nil {
		return nil
	}
	expires := time.Now().Add(opts.TTL)
	return b.Jar.WriteCookie(ctx, EncodeCookie(key, string(value), expires, opts.Domain))
}

// Delete writes an empty value with an expiry in the past.
func (b *CookieBackend) Delete(ctx context.Context, key string, opts SetOptions) error {
	if b.Jar == nil {
		return nil
	}
	return b.Jar.WriteCookie(ctx, EncodeCookie(key, "", time.Unix(0, 0).UTC(), opts.Domain))
}

// EncodeCookie serializes one cookie as a Set-Cookie string with root path.
// The value is percent-encoded so payload bytes never collide with the
// semicolon-delimited attribute syntax.
func EncodeCookie(name, value string, expires time.Time, domain string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
	b.WriteString("; expires=")
	b.WriteString(expires.UTC().Format(time.RFC1123))
	b.WriteString("; path=/")
	if domain != "" {
		b.WriteString("; domain=")
		b.WriteString(domain)
	}
	return b.String()
}

// DecodeCookie extracts the named cookie's value from a semicolon-delimited
// cookie header. Leading whitespace around entries is tolerated; a missing
// key reports ok=false. Percent-encoded values are decoded, raw values pass
// through unchanged.
func DecodeCookie(header, name string) (string, bool) {
	if header == "" || name == "" {
		return "", false
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found || key != name {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			return decoded, true
		}
		return value, true
	}
	return "", false
}

// MemoryJar is an in-process Jar for tests and headless embedding. It honours
// expiry attributes on write, so purge-style writes (expiry in the past)
// remove the cookie.
type MemoryJar struct {
	mu      sync.Mutex
	cookies map[string]string
}

// NewMemoryJar constructs an empty jar.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{cookies: map[string]string{}}
}

// ReadCookies renders the jar as a cookie header string.
func (j *MemoryJar) ReadCookies(_ context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	parts := make([]string, 0, len(j.cookies))
	for name, value := range j.cookies {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, "; "), nil
}

// WriteCookie stores or removes a cookie depending on its expiry attribute.
func (j *MemoryJar) WriteCookie(_ context.Context, setCookie string) error {
	parts := strings.Split(setCookie, ";")
	if len(parts) == 0 {
		return nil
	}
	name, value, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !found || name == "" {
		return fmt.Errorf("store: malformed set-cookie %q", setCookie)
	}

	expired := false
	for _, attr := range parts[1:] {
		attrName, attrValue, _ := strings.Cut(strings.TrimSpace(attr), "=")
		if !strings.EqualFold(attrName, "expires") {
			continue
		}
		if when, err := time.Parse(time.RFC1123, attrValue); err == nil && when.Before(time.Now()) {
			expired = true
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if expired {
		delete(j.cookies, name)
		return nil
	}
	j.cookies[name] = value
	return nil
}
