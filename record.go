package consent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Consent models. Opt-in defaults every optional category to denied until the
// visitor grants it; opt-out defaults to granted until revoked.
const (
	ModelOptIn  = "opt-in"
	ModelOptOut = "opt-out"
)

// SchemaVersion is stamped into every persisted record so future readers can
// migrate old snapshots.
const SchemaVersion = 1.0

// NormalizeModel lowercases and trims a configured consent model. The second
// return reports whether the input was already valid; invalid or empty input
// falls back to opt-in as the privacy-conservative default.
func NormalizeModel(model string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(model))
	switch normalized {
	case ModelOptIn, ModelOptOut:
		return normalized, true
	default:
		return ModelOptIn, false
	}
}

// Record is one visitor's persisted consent decision. Choices holds the
// boolean per category key, including mapTo alias keys fanned out at save
// time. The metadata fields are stamped on every save.
//
// On the wire a record is a single flat JSON object: category booleans at the
// top level next to underscore-prefixed metadata keys, matching what tag
// managers consume directly.
type Record struct {
	Choices  map[string]bool
	Datetime time.Time
	ID       string
	Geo      string
	GPC      bool
	Model    string
	Version  float64
}

// HasDecision reports whether the record captures an actual visitor decision.
// A record without a save timestamp is treated as no decision at all.
func (r *Record) HasDecision() bool {
	return r != nil && !r.Datetime.IsZero()
}

// Granted reports the stored boolean for key, false when absent.
func (r *Record) Granted(key string) bool {
	if r == nil {
		return false
	}
	return r.Choices[key]
}

// Clone returns a deep copy so callers can hand records out without sharing
// the choices map.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Choices = make(map[string]bool, len(r.Choices))
	for key, value := range r.Choices {
		clone.Choices[key] = value
	}
	return &clone
}

// MarshalJSON flattens the record into one JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Choices)+6)
	for key, value := range r.Choices {
		flat[key] = value
	}
	if !r.Datetime.IsZero() {
		flat["_datetime"] = r.Datetime.Format(time.RFC3339Nano)
	}
	flat["_id"] = r.ID
	if r.Geo != "" {
		flat["_geo"] = r.Geo
	} else {
		flat["_geo"] = nil
	}
	flat["_gpc"] = r.GPC
	flat["_model"] = r.Model
	flat["_version"] = r.Version
	return json.Marshal(flat)
}

// UnmarshalJSON restores a record from its flat form. Unknown non-boolean
// top-level values are ignored; missing metadata is tolerated so records from
// older schema versions still load.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("consent: parse record: %w", err)
	}

	record := Record{Choices: map[string]bool{}}
	for key, value := range flat {
		if !strings.HasPrefix(key, "_") {
			if granted, ok := value.(bool); ok {
				record.Choices[key] = granted
			}
			continue
		}
		switch key {
		case "_datetime":
			if raw, ok := value.(string); ok {
				if when, err := time.Parse(time.RFC3339Nano, raw); err == nil {
					record.Datetime = when
				}
			}
		case "_id":
			record.ID, _ = value.(string)
		case "_geo":
			record.Geo, _ = value.(string)
		case "_gpc":
			record.GPC, _ = value.(bool)
		case "_model":
			record.Model, _ = value.(string)
		case "_version":
			record.Version, _ = value.(float64)
		}
	}

	*r = record
	return nil
}
