package docstore

import (
	"context"

	"campusmarket/internal/storage"
)

// AllItems returns every item, newest first
func (s *Store) AllItems(ctx context.Context) ([]storage.Item, error) {
	return read[storage.Item](ctx, s.path(itemsFile))
}

// ItemByID returns storage.ErrItemNotExist when no item has the provided id
func (s *Store) ItemByID(ctx context.Context, id string) (storage.Item, error) {
	items, err := s.AllItems(ctx)
	if err != nil {
		return storage.Item{}, err
	}

	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}

	return storage.Item{}, storage.ErrItemNotExist
}

// AddItem creates an item and puts it in front of the listing
func (s *Store) AddItem(ctx context.Context, payload storage.NewItem) (storage.Item, error) {
	s.logger.Debugf("Creating item (%s) for seller (%s)", payload.Title, payload.Seller)

	var item storage.Item
	err := modify(ctx, s, s.path(itemsFile), func(items []storage.Item) ([]storage.Item, bool) {
		item = storage.Item{
			ID:          storage.NewID(),
			Title:       payload.Title,
			Description: payload.Description,
			Price:       payload.Price,
			Seller:      payload.Seller,
			ImageURL:    payload.ImageURL,
			CreatedAt:   storage.Now(),
		}
		return append([]storage.Item{item}, items...), true
	})
	if err != nil {
		return storage.Item{}, err
	}

	s.logger.Debugf("Created item (%s) with id %s", item.Title, item.ID)

	return item, nil
}

// Messages returns the thread of an item, oldest first.
// An item without messages, or an unknown item, has an empty thread.
func (s *Store) Messages(ctx context.Context, itemID string) ([]storage.Message, error) {
	path, err := s.itemThreadPath(itemID)
	if err != nil {
		return nil, err
	}

	return read[storage.Message](ctx, path)
}

// AddMessage appends a message to the thread of an item
func (s *Store) AddMessage(ctx context.Context, itemID, sender, text string) (storage.Message, error) {
	s.logger.Debugf("Creating message from (%s) on item (id: %s)", sender, itemID)

	path, err := s.itemThreadPath(itemID)
	if err != nil {
		return storage.Message{}, err
	}

	var msg storage.Message
	err = modify(ctx, s, path, func(msgs []storage.Message) ([]storage.Message, bool) {
		msg = storage.Message{
			ID:        storage.NewID(),
			ItemID:    itemID,
			Sender:    sender,
			Text:      text,
			CreatedAt: storage.Now(),
		}
		return append(msgs, msg), true
	})
	if err != nil {
		return storage.Message{}, err
	}

	return msg, nil
}
