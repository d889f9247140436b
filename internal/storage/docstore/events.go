package docstore

import (
	"context"

	"campusmarket/internal/storage"
)

// Events returns every event, newest first
func (s *Store) Events(ctx context.Context) ([]storage.Event, error) {
	return read[storage.Event](ctx, s.path(eventsFile))
}

// EventByID returns storage.ErrEventNotExist when no event has the provided id
func (s *Store) EventByID(ctx context.Context, id string) (storage.Event, error) {
	events, err := s.Events(ctx)
	if err != nil {
		return storage.Event{}, err
	}

	for _, e := range events {
		if e.ID == id {
			return e, nil
		}
	}

	return storage.Event{}, storage.ErrEventNotExist
}

func (s *Store) CreateEvent(ctx context.Context, payload storage.NewEvent) (storage.Event, error) {
	s.logger.Debugf("Creating event (%s) organized by (%s)", payload.Title, payload.Organizer)

	var event storage.Event
	err := modify(ctx, s, s.path(eventsFile), func(events []storage.Event) ([]storage.Event, bool) {
		event = storage.Event{
			ID:          storage.NewID(),
			Title:       payload.Title,
			Description: payload.Description,
			Date:        payload.Date,
			Location:    payload.Location,
			Organizer:   payload.Organizer,
			CreatedAt:   storage.Now(),
		}
		return append([]storage.Event{event}, events...), true
	})
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Debugf("Created event (%s) with id %s", event.Title, event.ID)

	return event, nil
}

// RSVPs returns the RSVPs of one event in the order they were made
func (s *Store) RSVPs(ctx context.Context, eventID string) ([]storage.EventRSVP, error) {
	all, err := read[storage.EventRSVP](ctx, s.path(rsvpsFile))
	if err != nil {
		return nil, err
	}

	rsvps := make([]storage.EventRSVP, 0)
	for _, r := range all {
		if r.EventID == eventID {
			rsvps = append(rsvps, r)
		}
	}

	return rsvps, nil
}

func (s *Store) HasRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	all, err := read[storage.EventRSVP](ctx, s.path(rsvpsFile))
	if err != nil {
		return false, err
	}

	for _, r := range all {
		if r.EventID == eventID && r.UserID == userID {
			return true, nil
		}
	}

	return false, nil
}

// CreateRSVP records that userID attends eventID. A repeat call returns the
// original RSVP unchanged and false.
func (s *Store) CreateRSVP(ctx context.Context, eventID, userID string) (storage.EventRSVP, bool, error) {
	s.logger.Debugf("Creating RSVP of user (id: %s) for event (id: %s)", userID, eventID)

	var rsvp storage.EventRSVP
	created := false
	err := modify(ctx, s, s.path(rsvpsFile), func(all []storage.EventRSVP) ([]storage.EventRSVP, bool) {
		for _, r := range all {
			if r.EventID == eventID && r.UserID == userID {
				rsvp = r
				return all, false
			}
		}

		rsvp = storage.EventRSVP{
			ID:        storage.NewID(),
			EventID:   eventID,
			UserID:    userID,
			CreatedAt: storage.Now(),
		}
		created = true
		return append(all, rsvp), true
	})
	if err != nil {
		return storage.EventRSVP{}, false, err
	}

	return rsvp, created, nil
}
