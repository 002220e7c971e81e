package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-consent/pkg/notify"
	"github.com/goliatone/go-consent/pkg/notify/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	recordID := uuid.NewString()

	event := notify.Event{
		Name: "settings.update",
		Detail: map[string]any{
			"_id":               recordID,
			"analytics_storage": true,
		},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.Verb != "settings.update" {
		t.Fatalf("expected verb settings.update, got %q", record.Verb)
	}
	if record.ObjectType != "consent" {
		t.Fatalf("expected object type consent, got %q", record.ObjectType)
	}
	if record.ObjectID != recordID {
		t.Fatalf("expected object id %q, got %q", recordID, record.ObjectID)
	}
	if record.Channel != notify.Namespace {
		t.Fatalf("expected channel %q, got %q", notify.Namespace, record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred at %v, got %v", now, record.OccurredAt)
	}
	if record.Data["analytics_storage"] != true {
		t.Fatalf("expected detail forwarded, got %+v", record.Data)
	}
}

func TestHookNotifyWithoutRecordIDGeneratesOne(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), notify.Event{Name: "reset"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if _, err := uuid.Parse(sink.records[0].ObjectID); err != nil {
		t.Fatalf("expected generated uuid object id, got %q", sink.records[0].ObjectID)
	}
}

func TestHookNotifyDropsUnnamed(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}
	if err := hook.Notify(context.Background(), notify.Event{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	hook := usersink.Hook{Sink: sink}
	if err := hook.Notify(context.Background(), notify.Event{Name: "destroy"}); err == nil {
		t.Fatal("expected sink error to propagate")
	}
}

func TestHookNotifyNilSink(t *testing.T) {
	hook := usersink.Hook{}
	if err := hook.Notify(context.Background(), notify.Event{Name: "init"}); err != nil {
		t.Fatalf("expected nil error with nil sink, got %v", err)
	}
}
