package consent

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeModel(t *testing.T) {
	cases := []struct {
		input string
		want  string
		valid bool
	}{
		{"opt-in", ModelOptIn, true},
		{"opt-out", ModelOptOut, true},
		{" Opt-Out ", ModelOptOut, true},
		{"OPT-IN", ModelOptIn, true},
		{"optin", ModelOptIn, false},
		{"", ModelOptIn, false},
		{"bogus", ModelOptIn, false},
	}
	for _, tc := range cases {
		got, valid := NormalizeModel(tc.input)
		if got != tc.want || valid != tc.valid {
			t.Errorf("NormalizeModel(%q) = (%q, %v), want (%q, %v)", tc.input, got, valid, tc.want, tc.valid)
		}
	}
}

func TestRecordMarshalFlat(t *testing.T) {
	record := Record{
		Choices:  map[string]bool{"necessary": true, "analytics_storage": false},
		Datetime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ID:       "rec-1",
		Geo:      "US-CA",
		GPC:      true,
		Model:    "opt-in/explicit",
		Version:  SchemaVersion,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("reparse: %v", err)
	}

	if flat["necessary"] != true || flat["analytics_storage"] != false {
		t.Errorf("choices not flattened at the top level: %v", flat)
	}
	if flat["_id"] != "rec-1" || flat["_geo"] != "US-CA" || flat["_gpc"] != true {
		t.Errorf("metadata mismatch: %v", flat)
	}
	if flat["_model"] != "opt-in/explicit" {
		t.Errorf("model mismatch: %v", flat["_model"])
	}
	if flat["_version"] != SchemaVersion {
		t.Errorf("version mismatch: %v", flat["_version"])
	}
	if _, ok := flat["_datetime"].(string); !ok {
		t.Errorf("datetime should serialize as a string: %v", flat["_datetime"])
	}
}

func TestRecordMarshalNullGeo(t *testing.T) {
	raw, err := json.Marshal(Record{Choices: map[string]bool{}, ID: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"_geo":null`) {
		t.Errorf("empty geo should serialize as null: %s", raw)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	original := Record{
		Choices:  map[string]bool{"necessary": true, "ad_storage": true, "analytics_storage": false},
		Datetime: time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC),
		ID:       "rec-2",
		Geo:      "DE",
		Model:    "opt-out/implicit",
		Version:  SchemaVersion,
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Record
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !restored.Datetime.Equal(original.Datetime) {
		t.Errorf("datetime mismatch: %v vs %v", restored.Datetime, original.Datetime)
	}
	restored.Datetime = original.Datetime
	if restored.ID != original.ID || restored.Geo != original.Geo || restored.Model != original.Model {
		t.Errorf("metadata mismatch: %+v", restored)
	}
	for key, want := range original.Choices {
		if restored.Choices[key] != want {
			t.Errorf("choice %q mismatch", key)
		}
	}
}

func TestRecordUnmarshalToleratesMissingMeta(t *testing.T) {
	var record Record
	if err := json.Unmarshal([]byte(`{"necessary":true,"analytics_storage":true}`), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.HasDecision() {
		t.Error("record without a timestamp must not count as a decision")
	}
	if !record.Granted("necessary") || !record.Granted("analytics_storage") {
		t.Errorf("choices lost: %+v", record.Choices)
	}
}

func TestRecordUnmarshalRejectsGarbage(t *testing.T) {
	var record Record
	if err := json.Unmarshal([]byte("{not json"), &record); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRecordCloneDetaches(t *testing.T) {
	original := &Record{Choices: map[string]bool{"necessary": true}}
	clone := original.Clone()
	clone.Choices["necessary"] = false
	if !original.Choices["necessary"] {
		t.Fatal("clone shares the choices map")
	}
	var nilRecord *Record
	if nilRecord.Clone() != nil {
		t.Fatal("nil clone should stay nil")
	}
}
