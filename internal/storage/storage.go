// Package storage defines the marketplace records and the Store contract shared by the
// file-backed (docstore) and Postgres-backed (pgstore) implementations.
package storage

import (
	"context"
	"errors"
)

var (
	ErrItemNotExist    = errors.New("item does not exist")
	ErrUserNotExist    = errors.New("user does not exist")
	ErrEventNotExist   = errors.New("event does not exist")
	ErrBadIdentity     = errors.New("bad identity")
	ErrCorruptDocument = errors.New("corrupt document")
)

// Store is the accessor surface consumed by request handlers.
//
// Listing operations return an empty slice, never an error, for an unknown scope
// (item, event or user pair). Create operations assign ID and CreatedAt.
// CreateUser, AddFriend and CreateRSVP are idempotent on their natural key and
// return the existing record on a repeat call. User names are compared by FoldName.
// CreateRSVP also reports whether the call inserted the RSVP.
type Store interface {
	AllItems(ctx context.Context) ([]Item, error)
	ItemByID(ctx context.Context, id string) (Item, error)
	AddItem(ctx context.Context, item NewItem) (Item, error)

	Messages(ctx context.Context, itemID string) ([]Message, error)
	AddMessage(ctx context.Context, itemID, sender, text string) (Message, error)

	Users(ctx context.Context) ([]User, error)
	UserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, name string) (User, error)

	Friends(ctx context.Context, userID string) ([]User, error)
	AddFriend(ctx context.Context, userID, friendID string) (Friend, error)

	PublicChat(ctx context.Context) ([]PublicChatMessage, error)
	PostPublicChat(ctx context.Context, sender, text string) (PublicChatMessage, error)

	DirectMessages(ctx context.Context, a, b string) ([]DirectMessage, error)
	PostDirectMessage(ctx context.Context, from, to, text string) (DirectMessage, error)

	Events(ctx context.Context) ([]Event, error)
	EventByID(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, event NewEvent) (Event, error)

	RSVPs(ctx context.Context, eventID string) ([]EventRSVP, error)
	HasRSVP(ctx context.Context, eventID, userID string) (bool, error)
	CreateRSVP(ctx context.Context, eventID, userID string) (EventRSVP, bool, error)

	Close()
}
