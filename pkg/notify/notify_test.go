package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	detail := map[string]any{"k": "v"}
	evt := Event{Name: " settings.update ", Detail: detail}

	got := NormalizeEvent(evt)

	if got.Name != "settings.update" {
		t.Fatalf("unexpected normalized name: %q", got.Name)
	}
	if got.OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be set")
	}
	got.Detail["k"] = "changed"
	if evt.Detail["k"] != "v" {
		t.Fatalf("expected original detail untouched: %+v", evt.Detail)
	}
}

func TestQualifiedName(t *testing.T) {
	evt := Event{Name: "banner.show.before"}
	if got := evt.Qualified(); got != "simple-consent:banner.show.before" {
		t.Fatalf("unexpected qualified name: %q", got)
	}
}

func TestHooksNotifyDropsUnnamedEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Name: "  "}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return errors.New("boom1") }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return errors.New("boom2") }),
	}

	err := hooks.Notify(nil, Event{Name: "settings.update"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(err.Error(), "boom1") || !strings.Contains(err.Error(), "boom2") {
		t.Fatalf("expected both errors joined, got %v", err)
	}
	if !ctxSeen {
		t.Fatal("expected nil ctx to be replaced with background context")
	}
	if len(capture.Events) != 1 || capture.Events[0].Name != "settings.update" {
		t.Fatalf("unexpected capture state: %+v", capture.Events)
	}
}

func TestHooksEnabled(t *testing.T) {
	if (Hooks{}).Enabled() {
		t.Fatal("empty hooks should be disabled")
	}
	if !(Hooks{&CaptureHook{}}).Enabled() {
		t.Fatal("non-empty hooks should be enabled")
	}
}
