package session

import (
	"errors"
	"time"
)

// ErrNotPersisted is returned by NullStore for any load.
var ErrNotPersisted = errors.New("session persistence disabled")

// Store abstracts session persistence.
type Store interface {
	Save(s *Session) error
	Load(id string) (*Session, error)
	List() ([]SessionInfo, error)
	Delete(id string) error
	Close() error
}

// SessionInfo is a lightweight summary of a saved session (for listing).
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int
	Tokens    int
}

// NullStore discards everything. Used when persistence is unavailable or
// unwanted (one-shot runs, tests).
type NullStore struct{}

func (NullStore) Save(*Session) error           { return nil }
func (NullStore) Load(string) (*Session, error) { return nil, ErrNotPersisted }
func (NullStore) List() ([]SessionInfo, error)  { return nil, nil }
func (NullStore) Delete(string) error           { return nil }
func (NullStore) Close() error                  { return nil }
