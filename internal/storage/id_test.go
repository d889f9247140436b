package storage

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(4), parsed.Version())

		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestTimestampJSON(t *testing.T) {
	ts := Timestamp{time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)}

	b, err := json.Marshal(ts)
	require.NoError(t, err)
	require.Equal(t, `"2024-03-05T07:08:09.000Z"`, string(b))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.True(t, ts.Equal(decoded.Time))
}

func TestTimestampUnmarshalOffset(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05T09:08:09.5+02:00"`), &ts))
	require.Equal(t, "2024-03-05T07:08:09.500Z", ts.String())
}

func TestTimestampUnmarshalInvalid(t *testing.T) {
	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	require.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestTimestampSortable(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var formatted []string
	for _, d := range []time.Duration{0, time.Millisecond, 10 * time.Millisecond, time.Second} {
		formatted = append(formatted, Timestamp{base.Add(d)}.String())
	}
	require.True(t, sort.StringsAreSorted(formatted))
}

func TestNowTruncated(t *testing.T) {
	now := Now()
	require.Equal(t, time.UTC, now.Location())
	require.Zero(t, now.Nanosecond()%int(time.Millisecond))
}
