// Package memory is an in-process implementation of the persistence ports with the same
// atomicity and version semantics as the postgres adapter.
package memory

import (
	"context"
	"sync"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

type state struct {
	sessions map[uuid.UUID]domain.TransferSession
	idemKeys map[string]uuid.UUID
	parts    map[uuid.UUID]map[int]domain.CompletedPart
	tasks    map[uuid.UUID]domain.DownloadTask
	outbox   map[uuid.UUID]domain.OutboxEntry
}

func newState() *state {
	return &state{
		sessions: map[uuid.UUID]domain.TransferSession{},
		idemKeys: map[string]uuid.UUID{},
		parts:    map[uuid.UUID]map[int]domain.CompletedPart{},
		tasks:    map[uuid.UUID]domain.DownloadTask{},
		outbox:   map[uuid.UUID]domain.OutboxEntry{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.idemKeys {
		c.idemKeys[k] = v
	}
	for k, v := range s.parts {
		m := make(map[int]domain.CompletedPart, len(v))
		for n, p := range v {
			m[n] = p
		}
		c.parts[k] = m
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return c
}

// Store holds the data shared by every unit of work built from it
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

type unitOfWork struct {
	store *Store
	tx    *state
}

// NewUnitOfWork returns a unit of work over the store
func NewUnitOfWork(store *Store) port.UnitOfWork {
	return &unitOfWork{store: store}
}

// Execute runs fn on a private copy of the store and publishes it only when fn succeeds.
// Transactions are serialized.
func (u *unitOfWork) Execute(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	tx := &unitOfWork{store: u.store, tx: u.store.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	u.store.state = tx.tx
	return nil
}

// run gives a repository access to the state it should work on
func (u *unitOfWork) run(fn func(s *state) error) error {
	if u.tx != nil {
		return fn(u.tx)
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	return fn(u.store.state)
}

func (u *unitOfWork) SessionRepo() port.SessionRepository {
	return &sessionRepository{uow: u}
}

func (u *unitOfWork) PartRepo() port.PartRepository {
	return &partRepository{uow: u}
}

func (u *unitOfWork) DownloadTaskRepo() port.DownloadTaskRepository {
	return &downloadTaskRepository{uow: u}
}

func (u *unitOfWork) OutboxRepo() port.OutboxRepository {
	return &outboxRepository{uow: u}
}
