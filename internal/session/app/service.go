package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/most4f4/chowhub/internal/session/domain"
)

// Service owns the process-wide session: hydrated from the store at start,
// mutated by login/logout, cleared when any API call comes back 401. Every
// component reads the current session through it instead of an ambient
// global.
type Service struct {
	store Store
	log   *slog.Logger

	mu      sync.RWMutex
	current domain.Session

	subMu  sync.Mutex
	subs   map[int]chan domain.Session
	nextID int
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		log:   log,
		subs:  map[int]chan domain.Session{},
	}
}

// Hydrate loads the remembered session. A missing store entry leaves the
// service unauthenticated; an incomplete or expired one is wiped so no
// partial state survives.
func (s *Service) Hydrate(ctx context.Context) error {
	stored, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}

	if !stored.Authenticated() || tokenExpired(stored.Token) {
		s.log.Info("discarding stale stored session")
		return s.Clear(ctx)
	}

	s.mu.Lock()
	s.current = stored
	s.mu.Unlock()
	s.notify(stored)
	return nil
}

// Login installs a fresh session. remember controls whether it survives the
// process; either way a previously remembered session is replaced.
func (s *Service) Login(ctx context.Context, token string, user domain.User, remember bool) error {
	sess := domain.Session{Token: token, User: user}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	var err error
	if remember {
		err = s.store.Save(ctx, sess)
	} else {
		err = s.store.Clear(ctx)
	}
	if err != nil {
		return err
	}

	s.notify(sess)
	return nil
}

// Logout clears the session everywhere.
func (s *Service) Logout(ctx context.Context) error { return s.Clear(ctx) }

// Clear wipes in-memory and stored state and notifies subscribers. It is
// the 401 hook target.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = domain.Session{}
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.notify(domain.Session{})
	return nil
}

// Current returns the session as of now.
func (s *Service) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token is the bearer-token source handed to the API client.
func (s *Service) Token() string {
	return s.Current().Token
}

// Subscribe returns a channel receiving every session change and a cancel
// function. Slow subscribers miss intermediate states rather than blocking
// the writer.
func (s *Service) Subscribe() (<-chan domain.Session, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan domain.Session, 1)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Service) notify(sess domain.Session) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- sess:
		default:
			// Drop the stale value and keep only the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- sess:
			default:
			}
		}
	}
}

// tokenExpired decodes the JWT claims without verifying the signature (the
// client holds no signing secret; the backend is the authority) and checks
// the exp claim. Malformed tokens count as expired.
func tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
