package docstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"campusmarket/internal/storage"
)

// Snapshot holds the content of every document of a Store
type Snapshot struct {
	Items          []storage.Item
	Messages       []storage.Message
	Users          []storage.User
	Friends        []storage.Friend
	PublicChat     []storage.PublicChatMessage
	DirectMessages []storage.DirectMessage
	Events         []storage.Event
	RSVPs          []storage.EventRSVP
}

// Snapshot reads all collections, item threads and direct message partitions.
// Each document is read consistently, but documents are read one after another.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.logger.Debugf("Taking snapshot of %s", s.root)

	var snap Snapshot
	var err error

	if snap.Items, err = read[storage.Item](ctx, s.path(itemsFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.Users, err = read[storage.User](ctx, s.path(usersFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.Friends, err = read[storage.Friend](ctx, s.path(friendsFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.PublicChat, err = read[storage.PublicChatMessage](ctx, s.path(publicChatFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.Events, err = read[storage.Event](ctx, s.path(eventsFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.RSVPs, err = read[storage.EventRSVP](ctx, s.path(rsvpsFile)); err != nil {
		return Snapshot{}, err
	}
	if snap.Messages, err = readPartitions[storage.Message](ctx, s.path(messagesDir)); err != nil {
		return Snapshot{}, err
	}
	if snap.DirectMessages, err = readPartitions[storage.DirectMessage](ctx, s.path(dmsDir)); err != nil {
		return Snapshot{}, err
	}

	s.logger.Debugf("Snapshot has %d items, %d users, %d events, %d thread messages, %d direct messages",
		len(snap.Items), len(snap.Users), len(snap.Events), len(snap.Messages), len(snap.DirectMessages))

	return snap, nil
}

// readPartitions concatenates every document of dir in file name order
func readPartitions[T any](ctx context.Context, dir string) ([]T, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+documentExt))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)

	all := make([]T, 0)
	for _, path := range paths {
		rows, err := read[T](ctx, path)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	return all, nil
}
