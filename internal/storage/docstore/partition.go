package docstore

import (
	"fmt"
	"sort"
	"strings"

	"campusmarket/internal/storage"
)

// PartitionSeparator joins the two participants of a direct message thread
const PartitionSeparator = "__"

// PartitionKey returns the base name of the document holding the direct
// messages between a and b. PartitionKey(a, b) == PartitionKey(b, a), and
// distinct pairs never share a key: members contain no separator and neither
// start nor end with its first byte, so the first separator in a key always
// splits it back into the original pair.
func PartitionKey(a, b string) (string, error) {
	for _, id := range []string{a, b} {
		if err := validatePartitionMember(id); err != nil {
			return "", err
		}
	}

	pair := []string{a, b}
	sort.Strings(pair)

	return pair[0] + PartitionSeparator + pair[1], nil
}

// validatePartitionMember rejects identities that could make two different pairs
// produce the same key, e.g. ("A_", "q") and ("A", "_q") would both give "A___q"
func validatePartitionMember(id string) error {
	if err := validateIdentity(id); err != nil {
		return err
	}

	edge := PartitionSeparator[:1]
	if strings.HasPrefix(id, edge) || strings.HasSuffix(id, edge) {
		return fmt.Errorf("%w: %q starts or ends with %q", storage.ErrBadIdentity, id, edge)
	}
	return nil
}

// validateIdentity rejects identities that cannot safely be used as, or
// inside, a document file name
func validateIdentity(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", storage.ErrBadIdentity, id)
	case strings.Contains(id, PartitionSeparator):
		return fmt.Errorf("%w: %q contains %q", storage.ErrBadIdentity, id, PartitionSeparator)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", storage.ErrBadIdentity, id)
	}
	return nil
}
