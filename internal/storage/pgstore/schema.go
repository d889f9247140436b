package pgstore

import "context"

// Each table carries a seq column so that listings keep insertion order
// even when created_at values collide.
const schema = `
create table if not exists items (
	seq         bigserial        not null,
	id          text             primary key,
	title       text             not null,
	description text             not null,
	price       double precision not null,
	seller      text             not null,
	image_url   text,
	created_at  timestamptz      not null
);

create table if not exists item_messages (
	seq        bigserial   not null,
	id         text        primary key,
	item_id    text        not null,
	sender     text        not null,
	text       text        not null,
	created_at timestamptz not null
);
create index if not exists item_messages_item_id_idx on item_messages (item_id, seq);

create table if not exists users (
	seq        bigserial   not null,
	id         text        primary key,
	name       text        not null,
	name_key   text        not null,
	created_at timestamptz not null
);
create unique index if not exists users_name_key_idx on users (name_key);

create table if not exists friends (
	seq        bigserial   not null,
	user_id    text        not null,
	friend_id  text        not null,
	created_at timestamptz not null,
	primary key (user_id, friend_id)
);

create table if not exists public_chat (
	seq        bigserial   not null,
	id         text        primary key,
	sender     text        not null,
	text       text        not null,
	created_at timestamptz not null
);

create table if not exists direct_messages (
	seq           bigserial   not null,
	id            text        primary key,
	partition_key text        not null,
	from_id       text        not null,
	to_id         text        not null,
	text          text        not null,
	created_at    timestamptz not null
);
create index if not exists direct_messages_partition_key_idx on direct_messages (partition_key, seq);

create table if not exists events (
	seq         bigserial   not null,
	id          text        primary key,
	title       text        not null,
	description text        not null,
	date        text        not null,
	location    text        not null,
	organizer   text        not null,
	created_at  timestamptz not null
);

create table if not exists rsvps (
	seq        bigserial   not null,
	id         text        primary key,
	event_id   text        not null,
	user_id    text        not null,
	created_at timestamptz not null,
	unique (event_id, user_id)
);
`

// Migrate creates missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("Migrating schema")

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return err
	}

	s.logger.Debug("Schema is up to date")
	return nil
}
