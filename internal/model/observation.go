package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unknown is stored for attributes the analyzer could not classify.
const Unknown = "Unknown"

// TimestampLayout is fixed width so that string order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Age is an integer estimate or Unknown.
type Age struct {
	Value int
	Known bool
}

func KnownAge(v int) Age {
	return Age{Value: v, Known: true}
}

func (a Age) String() string {
	if !a.Known {
		return Unknown
	}
	return strconv.Itoa(a.Value)
}

// MarshalJSON writes the number, or the string "Unknown".
func (a Age) MarshalJSON() ([]byte, error) {
	if !a.Known {
		return json.Marshal(Unknown)
	}
	return []byte(strconv.Itoa(a.Value)), nil
}

func (a *Age) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Age{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.EqualFold(s, Unknown) {
			*a = Age{}
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid age %q", s)
		}
		*a = KnownAge(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid age %s: %w", data, err)
	}
	*a = KnownAge(int(f))
	return nil
}

// Observation is one persisted demographic analysis of a single face.
type Observation struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Age       Age       `json:"age"`
	Gender    string    `json:"gender"`
	Race      string    `json:"race"`
	ImagePath string    `json:"image_path,omitempty"`
}

// NewObservation trims raw analyzer attributes to the persisted tuple.
// A nil age or empty label becomes Unknown.
func NewObservation(ts time.Time, age *int, gender, race string) Observation {
	obs := Observation{
		Timestamp: ts.UTC(),
		Gender:    orUnknown(gender),
		Race:      orUnknown(race),
	}
	if age != nil {
		obs.Age = KnownAge(*age)
	}
	return obs
}

func (o Observation) FormattedTimestamp() string {
	return FormatTimestamp(o.Timestamp)
}

// Digest is the one-line human readable form shown to operators.
func (o Observation) Digest() string {
	return fmt.Sprintf("Analysis result: Age - %s, Gender - %s, Race - %s", o.Age, o.Gender, o.Race)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout, RFC 3339 variants and zone-less
// ISO 8601 timestamps, which are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
