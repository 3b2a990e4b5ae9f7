package app

import (
	"context"
	"errors"

	"github.com/most4f4/chowhub/internal/session/domain"
)

// ErrNoSession means the store holds no remembered session.
var ErrNoSession = errors.New("no stored session")

// Store persists the session across process restarts (the localStorage
// analog). Implementations: sqlitestore (on disk) and memstore (tests,
// deployments that never remember).
type Store interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context) error
}
