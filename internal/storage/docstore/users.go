package docstore

import (
	"context"

	"campusmarket/internal/storage"
)

func (s *Store) Users(ctx context.Context) ([]storage.User, error) {
	return read[storage.User](ctx, s.path(usersFile))
}

// UserByID returns storage.ErrUserNotExist when no user has the provided id
func (s *Store) UserByID(ctx context.Context, id string) (storage.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return storage.User{}, err
	}

	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}

	return storage.User{}, storage.ErrUserNotExist
}

// CreateUser creates a user named name, unless a user whose name has the same
// storage.FoldName key exists, in which case that user is returned
func (s *Store) CreateUser(ctx context.Context, name string) (storage.User, error) {
	s.logger.Debugf("Creating user (%s)", name)

	key := storage.FoldName(name)
	var user storage.User
	created := false
	err := modify(ctx, s, s.path(usersFile), func(users []storage.User) ([]storage.User, bool) {
		for _, u := range users {
			if storage.FoldName(u.Name) == key {
				user = u
				return users, false
			}
		}

		user = storage.User{ID: storage.NewID(), Name: name, CreatedAt: storage.Now()}
		created = true
		return append(users, user), true
	})
	if err != nil {
		return storage.User{}, err
	}

	if created {
		s.logger.Debugf("Created user (%s) with id %s", name, user.ID)
	} else {
		s.logger.Debugf("User (%s) already exists with id %s", name, user.ID)
	}

	return user, nil
}

// Friends returns the users reachable through an outgoing edge of userID, in
// user creation order. Edges are directed: an edge towards userID does not count.
func (s *Store) Friends(ctx context.Context, userID string) ([]storage.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := read[storage.Friend](ctx, s.path(friendsFile))
	if err != nil {
		return nil, err
	}

	friendIDs := make(map[string]struct{})
	for _, e := range edges {
		if e.User == userID {
			friendIDs[e.Friend] = struct{}{}
		}
	}

	friends := make([]storage.User, 0, len(friendIDs))
	for _, u := range users {
		if _, ok := friendIDs[u.ID]; ok {
			friends = append(friends, u)
		}
	}

	return friends, nil
}

// AddFriend records the edge userID -> friendID unless it already exists.
// The existing edge is returned on a repeat call.
func (s *Store) AddFriend(ctx context.Context, userID, friendID string) (storage.Friend, error) {
	s.logger.Debugf("Adding friend (id: %s) to user (id: %s)", friendID, userID)

	var edge storage.Friend
	err := modify(ctx, s, s.path(friendsFile), func(edges []storage.Friend) ([]storage.Friend, bool) {
		for _, e := range edges {
			if e.User == userID && e.Friend == friendID {
				edge = e
				return edges, false
			}
		}

		edge = storage.Friend{User: userID, Friend: friendID, CreatedAt: storage.Now()}
		return append(edges, edge), true
	})
	if err != nil {
		return storage.Friend{}, err
	}

	return edge, nil
}
