package store

import (
	"context"
	"testing"
	"time"
)

type testRecord struct {
	Necessary bool   `json:"necessary"`
	Analytics bool   `json:"analytics_storage"`
	ID        string `json:"_id,omitempty"`
}

func newHybridStore() (*Store[testRecord], *MemoryBackend, *MemoryJar) {
	device := NewMemoryBackend()
	jar := NewMemoryJar()
	s := New(MethodHybrid, "simple_consent",
		WithDeviceBackend[testRecord](device),
		WithCookieBackend[testRecord](NewCookieBackend(jar)),
	)
	return s, device, jar
}

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{
		"cookie":       MethodCookie,
		"localstorage": MethodDevice,
		"device":       MethodDevice,
		"hybrid":       MethodHybrid,
		" Hybrid ":     MethodHybrid,
		"":             MethodHybrid,
		"bogus":        MethodHybrid,
	}
	for input, want := range cases {
		if got := ParseMethod(input); got != want {
			t.Errorf("ParseMethod(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newHybridStore()

	record := testRecord{Necessary: true, Analytics: true, ID: "r1"}
	if err := s.Save(ctx, record, 365, "example.com"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected record found")
	}
	if got != record {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadPrefersDeviceStorage(t *testing.T) {
	ctx := context.Background()
	s, device, jar := newHybridStore()

	if err := device.Set(ctx, "simple_consent", []byte(`{"_id":"device"}`), SetOptions{}); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	cookie := NewCookieBackend(jar)
	if err := cookie.Set(ctx, "simple_consent", []byte(`{"_id":"cookie"}`), SetOptions{TTL: time.Hour}); err != nil {
		t.Fatalf("seed cookie: %v", err)
	}

	got, ok, _ := s.Load(ctx)
	if !ok || got.ID != "device" {
		t.Fatalf("expected device record to win, got %+v ok=%v", got, ok)
	}
}

func TestLoadFallsBackToCookie(t *testing.T) {
	ctx := context.Background()
	s, _, jar := newHybridStore()

	cookie := NewCookieBackend(jar)
	if err := cookie.Set(ctx, "simple_consent", []byte(`{"_id":"cookie"}`), SetOptions{TTL: time.Hour}); err != nil {
		t.Fatalf("seed cookie: %v", err)
	}

	got, ok, _ := s.Load(ctx)
	if !ok || got.ID != "cookie" {
		t.Fatalf("expected cookie fallback, got %+v ok=%v", got, ok)
	}
}

func TestLoadTreatsGarbageAsAbsent(t *testing.T) {
	ctx := context.Background()
	s, device, _ := newHybridStore()

	if err := device.Set(ctx, "simple_consent", []byte("{not json"), SetOptions{}); err != nil {
		t.Fatalf("seed device: %v", err)
	}

	_, ok, err := s.Load(ctx)
	if ok {
		t.Fatal("garbage snapshot must read as absent")
	}
	if err == nil {
		t.Fatal("expected parse diagnostic")
	}
}

func TestLoadEmptyStore(t *testing.T) {
	s, _, _ := newHybridStore()
	if _, ok, err := s.Load(context.Background()); ok || err != nil {
		t.Fatalf("expected clean absent, got ok=%v err=%v", ok, err)
	}
}

func TestMethodCookieSkipsDevice(t *testing.T) {
	ctx := context.Background()
	device := NewMemoryBackend()
	jar := NewMemoryJar()
	s := New(MethodCookie, "simple_consent",
		WithDeviceBackend[testRecord](device),
		WithCookieBackend[testRecord](NewCookieBackend(jar)),
	)

	if err := s.Save(ctx, testRecord{ID: "r1"}, 1, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, _ := device.Get(ctx, "simple_consent"); ok {
		t.Fatal("cookie method must not write device storage")
	}
	if got, ok, _ := s.Load(ctx); !ok || got.ID != "r1" {
		t.Fatalf("expected cookie record, got %+v ok=%v", got, ok)
	}
}

func TestPurgeClearsBothBackendsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, device, _ := newHybridStore()

	if err := s.Save(ctx, testRecord{ID: "r1"}, 1, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Purge(ctx, ""); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := s.Load(ctx); ok {
		t.Fatal("expected store empty after purge")
	}
	if _, ok, _ := device.Get(ctx, "simple_consent"); ok {
		t.Fatal("expected device backend cleared")
	}
	if err := s.Purge(ctx, ""); err != nil {
		t.Fatalf("second purge must be a no-op, got %v", err)
	}
}

func TestRootDomain(t *testing.T) {
	cases := map[string]string{
		"localhost":          "",
		"":                   "",
		"example.com":        "example.com",
		"www.example.com":    "example.com",
		"a.b.example.com":    "example.com",
		"shop.example.co.uk": "example.co.uk",
		"example.co.uk":      "example.co.uk",
		"single":             "single",
	}
	for hostname, want := range cases {
		if got := RootDomain(hostname); got != want {
			t.Errorf("RootDomain(%q) = %q, want %q", hostname, got, want)
		}
	}
}
