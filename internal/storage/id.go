package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is UTC ISO 8601 with fixed millisecond precision, so that
// serialized timestamps sort lexicographically in creation order
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is the creation time of a record. It is assigned once by the store.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to milliseconds
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Truncate(time.Millisecond)}
}

// NewID returns a random (version 4) UUID
func NewID() string {
	return uuid.New().String()
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any RFC 3339 time, not only TimestampLayout, so that
// hand-edited documents still load
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}

	t.Time = parsed.UTC()
	return nil
}
