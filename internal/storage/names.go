package storage

import "golang.org/x/text/cases"

// FoldName returns the key under which user names are compared.
// Two names are the same user when their keys are equal, in every Store.
func FoldName(name string) string {
	return cases.Fold().String(name)
}
