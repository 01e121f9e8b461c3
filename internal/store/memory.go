package store

import (
	"context"
	"slices"
	"sync"

	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/links"
)

// LinkMemoryStore is an in-memory, insertion-ordered implementation of links.Repository.
type LinkMemoryStore struct {
	mu    sync.RWMutex
	links map[string]*links.Link // id -> link
	order []string
}

// NewLinkMemoryStore creates an empty in-memory link store.
func NewLinkMemoryStore() *LinkMemoryStore {
	return &LinkMemoryStore{
		links: make(map[string]*links.Link),
	}
}

func (m *LinkMemoryStore) Insert(_ context.Context, link *links.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.ID]; ok {
		return errx.E("store.InsertLink", errx.Conflict, links.ErrIDTaken)
	}

	m.links[link.ID] = link.Clone()
	m.order = append(m.order, link.ID)

	return nil
}

func (m *LinkMemoryStore) Get(_ context.Context, id string) (*links.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[id]
	if !ok {
		return nil, errx.E("store.GetLink", errx.NotFound, links.ErrNotFound)
	}

	return link.Clone(), nil
}

func (m *LinkMemoryStore) UpdateLongURL(_ context.Context, id, longURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return errx.E("store.UpdateLink", errx.NotFound, links.ErrNotFound)
	}

	link.LongURL = longURL

	return nil
}

func (m *LinkMemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[id]; !ok {
		return errx.E("store.DeleteLink", errx.NotFound, links.ErrNotFound)
	}

	delete(m.links, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })

	return nil
}

func (m *LinkMemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*links.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []*links.Link

	for _, id := range m.order {
		if link := m.links[id]; link.OwnerID == ownerID {
			owned = append(owned, link.Clone())
		}
	}

	return owned, nil
}

func (m *LinkMemoryStore) RecordVisit(_ context.Context, id, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return errx.E("store.RecordVisit", errx.NotFound, links.ErrNotFound)
	}

	link.Visits[visitorID]++

	return nil
}

func (m *LinkMemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.links)), nil
}

// UserMemoryStore is an in-memory, insertion-ordered implementation of accounts.Repository.
type UserMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*accounts.User // id -> user
	order []string
}

// NewUserMemoryStore creates an empty in-memory user store.
func NewUserMemoryStore() *UserMemoryStore {
	return &UserMemoryStore{
		users: make(map[string]*accounts.User),
	}
}

func (m *UserMemoryStore) Insert(_ context.Context, user *accounts.User) error {
	const op = "store.InsertUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return errx.E(op, errx.Conflict, accounts.ErrIDTaken)
	}

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return errx.E(op, errx.Conflict, accounts.ErrEmailTaken)
		}
	}

	u := *user
	m.users[user.ID] = &u
	m.order = append(m.order, user.ID)

	return nil
}

func (m *UserMemoryStore) GetByID(_ context.Context, id string) (*accounts.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, errx.E("store.GetUser", errx.NotFound, accounts.ErrNotFound)
	}

	u := *user

	return &u, nil
}

func (m *UserMemoryStore) FindByEmail(_ context.Context, email string) (*accounts.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if user := m.users[id]; user.Email == email {
			u := *user

			return &u, nil
		}
	}

	return nil, errx.E("store.FindUserByEmail", errx.NotFound, accounts.ErrNotFound)
}

func (m *UserMemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.users)), nil
}
