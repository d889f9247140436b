package docstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"campusmarket/internal/storage"
	mytesting "campusmarket/internal/testing"
)

func TestPartitionKeySymmetric(t *testing.T) {
	ids := []string{
		"0b9f3c52-5d2e-4f1e-9a77-1f8c3c0c2a11",
		"f7d1a0f2-7c5b-4e9b-8f49-0c1a2b3c4d5e",
		"alice",
		"Bob",
	}

	for _, pair := range mytesting.UserPairs(ids) {
		ab, err := PartitionKey(pair[0], pair[1])
		require.NoError(t, err)
		ba, err := PartitionKey(pair[1], pair[0])
		require.NoError(t, err)
		require.Equal(t, ab, ba)
	}
}

func TestPartitionKeyFormat(t *testing.T) {
	key, err := PartitionKey("zed", "amy")
	require.NoError(t, err)
	require.Equal(t, "amy__zed", key)

	key, err = PartitionKey("amy", "amy")
	require.NoError(t, err)
	require.Equal(t, "amy__amy", key)
}

func TestPartitionKeyRejectsBadIdentity(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a__b", "a/b", `a\b`, "a\x00b", "A_", "_q", "_", "_a_"} {
		_, err := PartitionKey(bad, "amy")
		require.ErrorIs(t, err, storage.ErrBadIdentity, bad)
		_, err = PartitionKey("amy", bad)
		require.ErrorIs(t, err, storage.ErrBadIdentity, bad)
	}
}

func TestPartitionKeyDistinctPairs(t *testing.T) {
	pairs := [][2]string{
		{"a_b", "c"},
		{"a", "b_c"},
		{"a", "bc"},
		{"ab", "c"},
		{"a_b_c", "d"},
		{"a", "b_c_d"},
	}

	seen := make(map[string][2]string, len(pairs))
	for _, pair := range pairs {
		key, err := PartitionKey(pair[0], pair[1])
		require.NoError(t, err)

		other, ok := seen[key]
		require.False(t, ok, "%v and %v share key %s", pair, other, key)
		seen[key] = pair

		// the first separator splits the key back into the sorted pair
		i := strings.Index(key, PartitionSeparator)
		require.ElementsMatch(t, []string{pair[0], pair[1]}, []string{key[:i], key[i+len(PartitionSeparator):]})
	}
}
