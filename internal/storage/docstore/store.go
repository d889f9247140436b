// Package docstore implements storage.Store on a tree of JSON documents:
//
//	<root>/items.json          items, newest first
//	<root>/users.json          users
//	<root>/friends.json        directed friend edges
//	<root>/publicChat.json     public chat log, oldest first
//	<root>/events.json         events, newest first
//	<root>/rsvps.json          event RSVPs
//	<root>/messages/<id>.json  one item thread, oldest first
//	<root>/dms/<a>__<b>.json   direct messages of the pair a < b, oldest first
//
// Every mutation is a read-modify-write of one whole document performed under
// that document's lock, so concurrent writers never lose each other's updates
// while writers of different documents run in parallel. Locks are shared by
// every Store of the process opened on the same directory; separate processes
// are not coordinated, so one data directory must be served by one process.
package docstore

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"campusmarket/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Config defines fields parsed from environment variables
type Config struct {
	DataDir string `env:"DATA_DIR" envDefault:"data"`
}

// Store is a file-backed storage.Store rooted at a data directory
type Store struct {
	logger *zap.SugaredLogger
	root   string
	locks  *lockRegistry
}

// New prepares the layout under root and returns a Store using it
func New(logger *zap.SugaredLogger, cfg Config) (*Store, error) {
	logger.Debugf("Preparing data layout in %s", cfg.DataDir)

	if err := EnsureLayout(cfg.DataDir); err != nil {
		return nil, err
	}

	root, err := canonicalRoot(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		root:   root,
		locks:  registryFor(root),
	}, nil
}

// canonicalRoot resolves dir to an absolute path without symlinks
func canonicalRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving data directory %s: %w", dir, err)
	}

	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving data directory %s: %w", dir, err)
	}
	return root, nil
}

// Root returns the absolute data directory
func (s *Store) Root() string {
	return s.root
}

// Close is a no-op: the store keeps no open files between operations
func (s *Store) Close() {}

func (s *Store) path(elem ...string) string {
	return filepath.Join(append([]string{s.root}, elem...)...)
}

func (s *Store) itemThreadPath(itemID string) (string, error) {
	if err := validateIdentity(itemID); err != nil {
		return "", err
	}
	return s.path(messagesDir, itemID+documentExt), nil
}

func (s *Store) directMessagesPath(a, b string) (string, error) {
	key, err := PartitionKey(a, b)
	if err != nil {
		return "", err
	}
	return s.path(dmsDir, key+documentExt), nil
}

// modify runs one read-modify-write cycle on the document at path while
// holding its lock. fn receives the current rows and returns the rows to
// persist; nothing is written when fn reports no change.
func modify[T any](ctx context.Context, s *Store, path string, fn func(rows []T) ([]T, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := s.locks.lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	rows, err := readDocument[T](path)
	if err != nil {
		return err
	}

	next, changed := fn(rows)
	if !changed {
		return nil
	}

	return writeDocument(path, next)
}

// read returns the rows of the document at path without taking its lock;
// writes replace documents atomically
func read[T any](ctx context.Context, path string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readDocument[T](path)
}
