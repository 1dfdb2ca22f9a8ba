// Package memory is a process-local RepositoryContainer used by tests and by
// STORAGE_TYPE=memory. It mirrors the Postgres semantics the services rely on:
// active-only lookups, listing order, the unique username, the venue delete
// restriction, cascading enrollment removal and the capacity guard.
package memory

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

type state struct {
	mu       sync.RWMutex
	venues   map[string]*venue.Venue
	events   map[string]*event.Event
	accounts map[string]*account.Account
}

// Store is an in-memory RepositoryContainer. Transactions are serialised by a
// single mutex; they are not rolled back on error, so callers must validate
// before writing.
type Store struct {
	st   *state
	txMu *sync.Mutex
	inTx bool
	log  *log.Logger

	venues   *VenueRepository
	events   *EventRepository
	accounts *AccountRepository
}

var _ postgres.RepositoryContainer = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	st := &state{
		venues:   make(map[string]*venue.Venue),
		events:   make(map[string]*event.Event),
		accounts: make(map[string]*account.Account),
	}
	return newStore(st, &sync.Mutex{}, false)
}

func newStore(st *state, txMu *sync.Mutex, inTx bool) *Store {
	return &Store{
		st:       st,
		txMu:     txMu,
		inTx:     inTx,
		log:      logger.Repository("memory_store"),
		venues:   &VenueRepository{st: st},
		events:   &EventRepository{st: st},
		accounts: &AccountRepository{st: st},
	}
}

func (s *Store) Venues() postgres.VenueRepository {
	return s.venues
}

func (s *Store) Events() postgres.EventRepository {
	return s.events
}

func (s *Store) Accounts() postgres.AccountRepository {
	return s.accounts
}

// WithinTransaction runs fn while holding the store-wide transaction lock.
// Nested calls reuse the held lock.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx postgres.RepositoryContainer) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	return fn(newStore(s.st, s.txMu, true))
}

func (s *Store) Health() error {
	return nil
}

func (s *Store) Close() error {
	s.log.Debug("Memory store closed")
	return nil
}
