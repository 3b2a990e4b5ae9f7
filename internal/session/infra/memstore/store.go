package memstore

import (
	"context"
	"sync"

	"github.com/most4f4/chowhub/internal/session/app"
	"github.com/most4f4/chowhub/internal/session/domain"
)

// Store keeps the session only for the process lifetime, the
// sessionStorage analog of the sqlite store.
type Store struct {
	mu   sync.Mutex
	sess domain.Session
	set  bool
}

func New() *Store { return &Store{} }

func (s *Store) Load(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return domain.Session{}, app.ErrNoSession
	}
	return s.sess, nil
}

func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.set = true
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = domain.Session{}
	s.set = false
	return nil
}
