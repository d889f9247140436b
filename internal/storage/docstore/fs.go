package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"campusmarket/internal/storage"
)

const (
	itemsFile      = "items.json"
	usersFile      = "users.json"
	friendsFile    = "friends.json"
	publicChatFile = "publicChat.json"
	eventsFile     = "events.json"
	rsvpsFile      = "rsvps.json"

	messagesDir = "messages"
	dmsDir      = "dms"

	documentExt = ".json"
)

var collectionFiles = []string{itemsFile, usersFile, friendsFile, publicChatFile, eventsFile, rsvpsFile}

var emptyDocument = []byte("[]")

// EnsureLayout creates the data directory tree under root and every top-level
// collection file that does not exist yet. Existing files are never touched,
// so it is safe to call any number of times.
func EnsureLayout(root string) error {
	for _, dir := range []string{root, filepath.Join(root, messagesDir), filepath.Join(root, dmsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	for _, name := range collectionFiles {
		path := filepath.Join(root, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return fmt.Errorf("creating collection %s: %w", path, err)
		}

		_, err = f.Write(emptyDocument)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("initializing collection %s: %w", path, err)
		}
	}

	return nil
}

// readDocument returns the rows stored at path.
// A missing or blank file is an empty collection; a file that does not parse
// as a JSON array is reported as storage.ErrCorruptDocument.
func readDocument[T any](path string) ([]T, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return []T{}, nil
	}

	var rows []T
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptDocument, path, err)
	}
	if rows == nil {
		rows = []T{}
	}

	return rows, nil
}

// writeDocument replaces the content of path with rows, pretty-printed.
// The data goes to a temporary file in the same directory which is then
// renamed over path, so a reader sees either the old or the new document.
func writeDocument[T any](path string, rows []T) (err error) {
	if rows == nil {
		rows = []T{}
	}

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
