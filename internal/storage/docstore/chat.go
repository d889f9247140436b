package docstore

import (
	"context"

	"campusmarket/internal/storage"
)

// PublicChat returns the shared chat log, oldest first
func (s *Store) PublicChat(ctx context.Context) ([]storage.PublicChatMessage, error) {
	return read[storage.PublicChatMessage](ctx, s.path(publicChatFile))
}

func (s *Store) PostPublicChat(ctx context.Context, sender, text string) (storage.PublicChatMessage, error) {
	s.logger.Debugf("Posting public chat message from (%s)", sender)

	var msg storage.PublicChatMessage
	err := modify(ctx, s, s.path(publicChatFile), func(msgs []storage.PublicChatMessage) ([]storage.PublicChatMessage, bool) {
		msg = storage.PublicChatMessage{
			ID:        storage.NewID(),
			Sender:    sender,
			Text:      text,
			CreatedAt: storage.Now(),
		}
		return append(msgs, msg), true
	})
	if err != nil {
		return storage.PublicChatMessage{}, err
	}

	return msg, nil
}

// DirectMessages returns the conversation between a and b, oldest first.
// The order of a and b does not matter.
func (s *Store) DirectMessages(ctx context.Context, a, b string) ([]storage.DirectMessage, error) {
	path, err := s.directMessagesPath(a, b)
	if err != nil {
		return nil, err
	}

	return read[storage.DirectMessage](ctx, path)
}

func (s *Store) PostDirectMessage(ctx context.Context, from, to, text string) (storage.DirectMessage, error) {
	s.logger.Debugf("Posting direct message from (id: %s) to (id: %s)", from, to)

	path, err := s.directMessagesPath(from, to)
	if err != nil {
		return storage.DirectMessage{}, err
	}

	var msg storage.DirectMessage
	err = modify(ctx, s, path, func(msgs []storage.DirectMessage) ([]storage.DirectMessage, bool) {
		msg = storage.DirectMessage{
			ID:        storage.NewID(),
			From:      from,
			To:        to,
			Text:      text,
			CreatedAt: storage.Now(),
		}
		return append(msgs, msg), true
	})
	if err != nil {
		return storage.DirectMessage{}, err
	}

	return msg, nil
}
