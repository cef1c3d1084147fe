package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaggedDate serializes a timestamp as {"__type":"date","value":"RFC3339"} so
// date fields survive a round trip through the text interchange format without
// being mistaken for plain strings. Plain RFC3339 strings are still accepted
// on the way in (older exports).
type TaggedDate struct {
	t time.Time
}

func NewTaggedDate(t time.Time) TaggedDate {
	return TaggedDate{t: t}
}

func (d TaggedDate) Time() time.Time {
	return d.t
}

func (d TaggedDate) IsZero() bool {
	return d.t.IsZero()
}

func (d TaggedDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"__type"`
		Value string `json:"value"`
	}{Type: "date", Value: d.t.Format(time.RFC3339Nano)})
}

func (d *TaggedDate) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Type  string `json:"__type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.Type == "date" {
		t, err := time.Parse(time.RFC3339Nano, tagged.Value)
		if err != nil {
			return fmt.Errorf("invalid tagged date %q: %w", tagged.Value, err)
		}
		d.t = t
		return nil
	}

	// Fallback: bare RFC3339 string
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date field is neither a tagged date nor a string")
	}
	if raw == "" {
		d.t = time.Time{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("invalid date string %q: %w", raw, err)
	}
	d.t = t
	return nil
}

// ExportDocument is the interchange format for a full ledger + profile backup.
// Import replaces the user's state wholesale with a validated document.
type ExportDocument struct {
	Version    int          `json:"version"`
	ExportedAt TaggedDate   `json:"exported_at"`
	Rewards    []Reward     `json:"rewards"`
	Profile    *UserProfile `json:"userProfile"`
}

const ExportVersion = 1
