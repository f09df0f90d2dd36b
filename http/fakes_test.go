package handler

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"people/db"
)

// memoryStore enforces nickname uniqueness under its lock, the way the
// unique index does in PostgreSQL.
type memoryStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]db.Person
	nicknames map[string]struct{}
	order     []uuid.UUID

	err     error
	inserts int
	gets    int
	queries int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID:      map[uuid.UUID]db.Person{},
		nicknames: map[string]struct{}{},
	}
}

func (s *memoryStore) Insert(_ context.Context, person db.Person) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts++
	if s.err != nil {
		return uuid.Nil, &db.StorageError{Op: "insert", Err: s.err}
	}
	if _, taken := s.nicknames[person.Nickname]; taken {
		return uuid.Nil, db.ErrDuplicateKey
	}

	person.ID = uuid.New()
	s.byID[person.ID] = person
	s.nicknames[person.Nickname] = struct{}{}
	s.order = append(s.order, person.ID)

	return person.ID, nil
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*db.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets++
	if s.err != nil {
		return nil, &db.StorageError{Op: "get_by_id", Err: s.err}
	}

	person, ok := s.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}

	return &person, nil
}

func (s *memoryStore) Search(_ context.Context, term string) ([]db.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries++
	if s.err != nil {
		return nil, &db.StorageError{Op: "search", Err: s.err}
	}

	people := []db.Person{}
	for _, id := range s.order {
		if len(people) == db.SearchLimit {
			break
		}
		if person := s.byID[id]; personMatches(person, term) {
			people = append(people, person)
		}
	}

	return people, nil
}

func (s *memoryStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries++
	if s.err != nil {
		return 0, &db.StorageError{Op: "count", Err: s.err}
	}

	return int64(len(s.byID)), nil
}

func personMatches(p db.Person, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Nickname), term) || strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	for _, tag := range p.Stack {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// mapCache is a synchronous cache; getErr and setErr simulate an unreachable backend.
type mapCache struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
	setErr error
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, false, c.getErr
	}

	value, found := c.values[key]
	return value, found, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}

	c.values[key] = value
	return nil
}

func (c *mapCache) Close() error { return nil }

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, found := c.values[key]
	return found
}

var errBackendDown = errors.New("backend down")
