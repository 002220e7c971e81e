package store

import (
	"context"
	"testing"
)

func TestBadgerBackendRoundTrip(t *testing.T) {
	backend, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	if _, ok, err := backend.Get(ctx, "simple_consent"); ok || err != nil {
		t.Fatalf("expected clean absent, got ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"necessary":true,"_id":"r1"}`)
	if err := backend.Set(ctx, "simple_consent", payload, SetOptions{}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := backend.Get(ctx, "simple_consent")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	if err := backend.Delete(ctx, "simple_consent", SetOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "simple_consent"); ok {
		t.Fatal("expected key removed")
	}

	// Deleting a missing key stays a no-op.
	if err := backend.Delete(ctx, "simple_consent", SetOptions{}); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestBadgerBackendAsStoreDevice(t *testing.T) {
	backend, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()

	s := New(MethodDevice, "simple_consent", WithDeviceBackend[testRecord](backend))

	ctx := context.Background()
	if err := s.Save(ctx, testRecord{Necessary: true, ID: "r2"}, 365, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.ID != "r2" || !got.Necessary {
		t.Fatalf("record mismatch: %+v", got)
	}
}
