package access

import (
	"context"
	"errors"
	"sync"

	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Contents are lost on restart.
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[string]Record),
	}
}

// Get returns a copy of the record so callers cannot mutate stored state.
func (r *InMemoryRepo) Get(_ context.Context, userID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return nil, relayerrors.ErrNotFound
	}
	return &record, nil
}

func (r *InMemoryRepo) Upsert(_ context.Context, record *Record) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if record.UserID == "" {
		return errors.New("userID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.UserID] = *record
	return nil
}
