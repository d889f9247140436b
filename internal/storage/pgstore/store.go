// Package pgstore implements storage.Store on Postgres.
// Idempotent inserts rely on unique indexes: a unique violation resolves to
// the row that won, so concurrent writers never create duplicates.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"campusmarket/internal/storage"
	"campusmarket/internal/storage/docstore"
	"campusmarket/internal/storage/zapadapter"
)

var _ storage.Store = (*Store)(nil)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New connects to the database described by cfg
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	return Connect(ctx, logger, cfg.DSN(), opts...)
}

// Connect sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func Connect(ctx context.Context, logger *zap.SugaredLogger, dsn string, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func timestamp(t time.Time) storage.Timestamp {
	return storage.Timestamp{Time: t.UTC()}
}

func (s *Store) AllItems(ctx context.Context) ([]storage.Item, error) {
	sql := `select id, title, description, price, seller, image_url, created_at
			  from items
			 order by seq desc`
	return s.queryItems(ctx, sql)
}

func (s *Store) ItemByID(ctx context.Context, id string) (storage.Item, error) {
	sql := `select id, title, description, price, seller, image_url, created_at
			  from items
			 where id = $1`
	items, err := s.queryItems(ctx, sql, id)
	if err != nil {
		return storage.Item{}, err
	}
	if len(items) == 0 {
		return storage.Item{}, storage.ErrItemNotExist
	}
	return items[0], nil
}

func (s *Store) queryItems(ctx context.Context, sql string, args ...interface{}) ([]storage.Item, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]storage.Item, 0)
	for rows.Next() {
		var it storage.Item
		var imageURL pgtype.Text
		var createdAt time.Time
		err = rows.Scan(&it.ID, &it.Title, &it.Description, &it.Price, &it.Seller, &imageURL, &createdAt)
		if err != nil {
			return nil, err
		}
		if imageURL.Status == pgtype.Present {
			it.ImageURL = imageURL.String
		}
		it.CreatedAt = timestamp(createdAt)
		items = append(items, it)
	}

	return items, rows.Err()
}

func nullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Status: pgtype.Null}
	}
	return pgtype.Text{String: s, Status: pgtype.Present}
}

func (s *Store) AddItem(ctx context.Context, payload storage.NewItem) (storage.Item, error) {
	s.logger.Debugf("Creating item (%s) for seller (%s)", payload.Title, payload.Seller)

	item := storage.Item{
		ID:          storage.NewID(),
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Seller:      payload.Seller,
		ImageURL:    payload.ImageURL,
		CreatedAt:   storage.Now(),
	}

	sql := `insert into items (id, title, description, price, seller, image_url, created_at)
			values ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, sql, item.ID, item.Title, item.Description, item.Price, item.Seller,
		nullableText(item.ImageURL), item.CreatedAt.Time)
	if err != nil {
		return storage.Item{}, err
	}

	s.logger.Debugf("Created item (%s) with id %s", item.Title, item.ID)

	return item, nil
}

func (s *Store) Messages(ctx context.Context, itemID string) ([]storage.Message, error) {
	sql := `select id, item_id, sender, text, created_at
			  from item_messages
			 where item_id = $1
			 order by seq asc`
	rows, err := s.db.Query(ctx, sql, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]storage.Message, 0)
	for rows.Next() {
		var m storage.Message
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Sender, &m.Text, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = timestamp(createdAt)
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

func (s *Store) AddMessage(ctx context.Context, itemID, sender, text string) (storage.Message, error) {
	s.logger.Debugf("Creating message from (%s) on item (id: %s)", sender, itemID)

	msg := storage.Message{ID: storage.NewID(), ItemID: itemID, Sender: sender, Text: text, CreatedAt: storage.Now()}

	sql := "insert into item_messages (id, item_id, sender, text, created_at) values ($1, $2, $3, $4, $5)"
	if _, err := s.db.Exec(ctx, sql, msg.ID, msg.ItemID, msg.Sender, msg.Text, msg.CreatedAt.Time); err != nil {
		return storage.Message{}, err
	}

	return msg, nil
}

func (s *Store) Users(ctx context.Context) ([]storage.User, error) {
	return s.queryUsers(ctx, "select id, name, created_at from users order by seq asc")
}

func (s *Store) UserByID(ctx context.Context, id string) (storage.User, error) {
	return s.queryUser(ctx, "select id, name, created_at from users where id = $1", id)
}

func (s *Store) queryUser(ctx context.Context, sql string, args ...interface{}) (storage.User, error) {
	var u storage.User
	var createdAt time.Time
	err := s.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Name, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.User{}, storage.ErrUserNotExist
		}
		return storage.User{}, err
	}
	u.CreatedAt = timestamp(createdAt)
	return u, nil
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...interface{}) ([]storage.User, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]storage.User, 0)
	for rows.Next() {
		var u storage.User
		var createdAt time.Time
		if err := rows.Scan(&u.ID, &u.Name, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = timestamp(createdAt)
		users = append(users, u)
	}

	return users, rows.Err()
}

// CreateUser inserts a user; when the storage.FoldName key of name is taken the
// existing user is returned instead. Keys are computed in Go rather than with
// lower() so that every Store deduplicates names the same way.
func (s *Store) CreateUser(ctx context.Context, name string) (storage.User, error) {
	s.logger.Debugf("Creating user (%s)", name)

	user := storage.User{ID: storage.NewID(), Name: name, CreatedAt: storage.Now()}
	key := storage.FoldName(name)

	sql := "insert into users (id, name, name_key, created_at) values ($1, $2, $3, $4)"
	_, err := s.db.Exec(ctx, sql, user.ID, user.Name, key, user.CreatedAt.Time)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Debugf("User (%s) already exists", name)
			return s.queryUser(ctx, "select id, name, created_at from users where name_key = $1", key)
		}
		return storage.User{}, err
	}

	s.logger.Debugf("Created user (%s) with id %s", name, user.ID)

	return user, nil
}

// Friends returns users reachable through an outgoing edge of userID
func (s *Store) Friends(ctx context.Context, userID string) ([]storage.User, error) {
	sql := `select users.id, users.name, users.created_at
			  from friends
			  join users
				on users.id = friends.friend_id
			 where friends.user_id = $1
			 order by users.seq asc`
	return s.queryUsers(ctx, sql, userID)
}

func (s *Store) AddFriend(ctx context.Context, userID, friendID string) (storage.Friend, error) {
	s.logger.Debugf("Adding friend (id: %s) to user (id: %s)", friendID, userID)

	edge := storage.Friend{User: userID, Friend: friendID, CreatedAt: storage.Now()}

	sql := "insert into friends (user_id, friend_id, created_at) values ($1, $2, $3)"
	_, err := s.db.Exec(ctx, sql, edge.User, edge.Friend, edge.CreatedAt.Time)
	if err != nil {
		if !isUniqueViolation(err) {
			return storage.Friend{}, err
		}

		var createdAt time.Time
		sql = "select created_at from friends where user_id = $1 and friend_id = $2"
		if err := s.db.QueryRow(ctx, sql, userID, friendID).Scan(&createdAt); err != nil {
			return storage.Friend{}, err
		}
		edge.CreatedAt = timestamp(createdAt)
	}

	return edge, nil
}

func (s *Store) PublicChat(ctx context.Context) ([]storage.PublicChatMessage, error) {
	rows, err := s.db.Query(ctx, "select id, sender, text, created_at from public_chat order by seq asc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]storage.PublicChatMessage, 0)
	for rows.Next() {
		var m storage.PublicChatMessage
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.Sender, &m.Text, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = timestamp(createdAt)
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

func (s *Store) PostPublicChat(ctx context.Context, sender, text string) (storage.PublicChatMessage, error) {
	s.logger.Debugf("Posting public chat message from (%s)", sender)

	msg := storage.PublicChatMessage{ID: storage.NewID(), Sender: sender, Text: text, CreatedAt: storage.Now()}

	sql := "insert into public_chat (id, sender, text, created_at) values ($1, $2, $3, $4)"
	if _, err := s.db.Exec(ctx, sql, msg.ID, msg.Sender, msg.Text, msg.CreatedAt.Time); err != nil {
		return storage.PublicChatMessage{}, err
	}

	return msg, nil
}

// DirectMessages uses the same partition key as the file store, so a
// conversation is found whatever the argument order
func (s *Store) DirectMessages(ctx context.Context, a, b string) ([]storage.DirectMessage, error) {
	key, err := docstore.PartitionKey(a, b)
	if err != nil {
		return nil, err
	}

	sql := `select id, from_id, to_id, text, created_at
			  from direct_messages
			 where partition_key = $1
			 order by seq asc`
	rows, err := s.db.Query(ctx, sql, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]storage.DirectMessage, 0)
	for rows.Next() {
		var m storage.DirectMessage
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = timestamp(createdAt)
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

func (s *Store) PostDirectMessage(ctx context.Context, from, to, text string) (storage.DirectMessage, error) {
	s.logger.Debugf("Posting direct message from (id: %s) to (id: %s)", from, to)

	key, err := docstore.PartitionKey(from, to)
	if err != nil {
		return storage.DirectMessage{}, err
	}

	msg := storage.DirectMessage{ID: storage.NewID(), From: from, To: to, Text: text, CreatedAt: storage.Now()}

	sql := `insert into direct_messages (id, partition_key, from_id, to_id, text, created_at)
			values ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(ctx, sql, msg.ID, key, msg.From, msg.To, msg.Text, msg.CreatedAt.Time); err != nil {
		return storage.DirectMessage{}, err
	}

	return msg, nil
}

func (s *Store) Events(ctx context.Context) ([]storage.Event, error) {
	sql := `select id, title, description, date, location, organizer, created_at
			  from events
			 order by seq desc`
	return s.queryEvents(ctx, sql)
}

func (s *Store) EventByID(ctx context.Context, id string) (storage.Event, error) {
	sql := `select id, title, description, date, location, organizer, created_at
			  from events
			 where id = $1`
	events, err := s.queryEvents(ctx, sql, id)
	if err != nil {
		return storage.Event{}, err
	}
	if len(events) == 0 {
		return storage.Event{}, storage.ErrEventNotExist
	}
	return events[0], nil
}

func (s *Store) queryEvents(ctx context.Context, sql string, args ...interface{}) ([]storage.Event, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]storage.Event, 0)
	for rows.Next() {
		var e storage.Event
		var createdAt time.Time
		err = rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Organizer, &createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = timestamp(createdAt)
		events = append(events, e)
	}

	return events, rows.Err()
}

func (s *Store) CreateEvent(ctx context.Context, payload storage.NewEvent) (storage.Event, error) {
	s.logger.Debugf("Creating event (%s) organized by (%s)", payload.Title, payload.Organizer)

	event := storage.Event{
		ID:          storage.NewID(),
		Title:       payload.Title,
		Description: payload.Description,
		Date:        payload.Date,
		Location:    payload.Location,
		Organizer:   payload.Organizer,
		CreatedAt:   storage.Now(),
	}

	sql := `insert into events (id, title, description, date, location, organizer, created_at)
			values ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, sql, event.ID, event.Title, event.Description, event.Date, event.Location,
		event.Organizer, event.CreatedAt.Time)
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Debugf("Created event (%s) with id %s", event.Title, event.ID)

	return event, nil
}

func (s *Store) RSVPs(ctx context.Context, eventID string) ([]storage.EventRSVP, error) {
	sql := `select id, event_id, user_id, created_at
			  from rsvps
			 where event_id = $1
			 order by seq asc`
	rows, err := s.db.Query(ctx, sql, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rsvps := make([]storage.EventRSVP, 0)
	for rows.Next() {
		var r storage.EventRSVP
		var createdAt time.Time
		if err := rows.Scan(&r.ID, &r.EventID, &r.UserID, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = timestamp(createdAt)
		rsvps = append(rsvps, r)
	}

	return rsvps, rows.Err()
}

func (s *Store) HasRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	sql := "select exists (select 1 from rsvps where event_id = $1 and user_id = $2)"
	if err := s.db.QueryRow(ctx, sql, eventID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateRSVP inserts an RSVP; when the user already answered the event the
// existing RSVP is returned with false
func (s *Store) CreateRSVP(ctx context.Context, eventID, userID string) (storage.EventRSVP, bool, error) {
	s.logger.Debugf("Creating RSVP of user (id: %s) for event (id: %s)", userID, eventID)

	rsvp := storage.EventRSVP{ID: storage.NewID(), EventID: eventID, UserID: userID, CreatedAt: storage.Now()}

	sql := "insert into rsvps (id, event_id, user_id, created_at) values ($1, $2, $3, $4)"
	_, err := s.db.Exec(ctx, sql, rsvp.ID, rsvp.EventID, rsvp.UserID, rsvp.CreatedAt.Time)
	if err == nil {
		return rsvp, true, nil
	}
	if !isUniqueViolation(err) {
		return storage.EventRSVP{}, false, err
	}

	var createdAt time.Time
	sql = "select id, created_at from rsvps where event_id = $1 and user_id = $2"
	if err := s.db.QueryRow(ctx, sql, eventID, userID).Scan(&rsvp.ID, &createdAt); err != nil {
		return storage.EventRSVP{}, false, err
	}
	rsvp.CreatedAt = timestamp(createdAt)

	return rsvp, false, nil
}
