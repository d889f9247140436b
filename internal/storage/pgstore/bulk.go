package pgstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v4"

	"campusmarket/internal/storage"
	"campusmarket/internal/storage/docstore"
)

// bulk adapts a slice of records to pgx.CopyFromSource
type bulk[T any] struct {
	rows   []T
	idx    int
	values func(T) ([]interface{}, error)
}

func copyFromBulk[T any](rows []T, values func(T) ([]interface{}, error)) pgx.CopyFromSource {
	return &bulk[T]{
		rows:   rows,
		idx:    -1,
		values: values,
	}
}

func (b *bulk[T]) Next() bool {
	b.idx++
	return b.idx < len(b.rows)
}

func (b *bulk[T]) Values() ([]interface{}, error) {
	return b.values(b.rows[b.idx])
}

func (b *bulk[T]) Err() error {
	return nil
}

// oldestFirst returns a reversed copy of a newest-first collection, so that
// seq grows with age the same way it does for rows inserted one by one
func oldestFirst[T any](rows []T) []T {
	reversed := slices.Clone(rows)
	slices.Reverse(reversed)
	return reversed
}

type copyJob struct {
	table   string
	columns []string
	source  pgx.CopyFromSource
	count   int
}

// Import copies every record of snap into the database in one transaction.
// It fails without writing anything when a record collides with an existing row.
func (s *Store) Import(ctx context.Context, snap docstore.Snapshot) error {
	s.logger.Debugf("Importing snapshot (%d items, %d users, %d events)", len(snap.Items), len(snap.Users), len(snap.Events))

	jobs := []copyJob{
		{
			table:   "items",
			columns: []string{"id", "title", "description", "price", "seller", "image_url", "created_at"},
			source: copyFromBulk(oldestFirst(snap.Items), func(it storage.Item) ([]interface{}, error) {
				return []interface{}{it.ID, it.Title, it.Description, it.Price, it.Seller, nullableText(it.ImageURL), it.CreatedAt.Time}, nil
			}),
			count: len(snap.Items),
		},
		{
			table:   "item_messages",
			columns: []string{"id", "item_id", "sender", "text", "created_at"},
			source: copyFromBulk(snap.Messages, func(m storage.Message) ([]interface{}, error) {
				return []interface{}{m.ID, m.ItemID, m.Sender, m.Text, m.CreatedAt.Time}, nil
			}),
			count: len(snap.Messages),
		},
		{
			table:   "users",
			columns: []string{"id", "name", "name_key", "created_at"},
			source: copyFromBulk(snap.Users, func(u storage.User) ([]interface{}, error) {
				return []interface{}{u.ID, u.Name, storage.FoldName(u.Name), u.CreatedAt.Time}, nil
			}),
			count: len(snap.Users),
		},
		{
			table:   "friends",
			columns: []string{"user_id", "friend_id", "created_at"},
			source: copyFromBulk(snap.Friends, func(f storage.Friend) ([]interface{}, error) {
				return []interface{}{f.User, f.Friend, f.CreatedAt.Time}, nil
			}),
			count: len(snap.Friends),
		},
		{
			table:   "public_chat",
			columns: []string{"id", "sender", "text", "created_at"},
			source: copyFromBulk(snap.PublicChat, func(m storage.PublicChatMessage) ([]interface{}, error) {
				return []interface{}{m.ID, m.Sender, m.Text, m.CreatedAt.Time}, nil
			}),
			count: len(snap.PublicChat),
		},
		{
			table:   "direct_messages",
			columns: []string{"id", "partition_key", "from_id", "to_id", "text", "created_at"},
			source: copyFromBulk(snap.DirectMessages, func(m storage.DirectMessage) ([]interface{}, error) {
				key, err := docstore.PartitionKey(m.From, m.To)
				if err != nil {
					return nil, err
				}
				return []interface{}{m.ID, key, m.From, m.To, m.Text, m.CreatedAt.Time}, nil
			}),
			count: len(snap.DirectMessages),
		},
		{
			table:   "events",
			columns: []string{"id", "title", "description", "date", "location", "organizer", "created_at"},
			source: copyFromBulk(oldestFirst(snap.Events), func(e storage.Event) ([]interface{}, error) {
				return []interface{}{e.ID, e.Title, e.Description, e.Date, e.Location, e.Organizer, e.CreatedAt.Time}, nil
			}),
			count: len(snap.Events),
		},
		{
			table:   "rsvps",
			columns: []string{"id", "event_id", "user_id", "created_at"},
			source: copyFromBulk(snap.RSVPs, func(r storage.EventRSVP) ([]interface{}, error) {
				return []interface{}{r.ID, r.EventID, r.UserID, r.CreatedAt.Time}, nil
			}),
			count: len(snap.RSVPs),
		},
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	// error handling can be omitted for rollback, it is a no-op after commit
	defer tx.Rollback(context.Background())

	for _, job := range jobs {
		if job.count == 0 {
			continue
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{job.table}, job.columns, job.source)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("importing %s: record already exists: %w", job.table, err)
			}
			return fmt.Errorf("importing %s: %w", job.table, err)
		}

		s.logger.Debugf("Imported %d rows into %s", n, job.table)
	}

	return tx.Commit(ctx)
}
