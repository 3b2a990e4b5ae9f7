package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var errUnauthorized = errors.New("notification handshake rejected")

// Notification is one dashboard notification pushed by the backend, e.g. a
// low-stock warning after an order consumed an ingredient.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed consumes the backend's notification websocket and fans the messages
// into a channel. It reconnects with backoff until its context ends.
type Feed struct {
	url       string
	token     func() string
	log       *slog.Logger
	ch        chan Notification
	retryWait time.Duration

	// onUnauthorized fires when the handshake is rejected with a 401,
	// the same teardown path as any other API call.
	onUnauthorized func()
}

func NewFeed(apiBaseURL string, token func() string, onUnauthorized func(), log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		url:            wsURL(apiBaseURL) + "/ws/notifications",
		token:          token,
		log:            log,
		ch:             make(chan Notification, 16),
		retryWait:      time.Second,
		onUnauthorized: onUnauthorized,
	}
}

// Notifications is the receive side of the feed.
func (f *Feed) Notifications() <-chan Notification { return f.ch }

// Run keeps one connection alive until ctx is done. Connection failures back
// off and retry; they are never fatal to the caller. A rejected handshake
// parks the loop until a new login supplies a token, so a dead session does
// not redial with no credentials forever.
func (f *Feed) Run(ctx context.Context) {
	backoff := f.retryWait
	for {
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.log.Warn("notification feed dropped", slog.Any("err", err))
		}

		if errors.Is(err, errUnauthorized) && f.token() == "" {
			if !f.waitForToken(ctx) {
				return
			}
			backoff = f.retryWait
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *Feed) waitForToken(ctx context.Context) bool {
	ticker := time.NewTicker(f.retryWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if f.token() != "" {
				return true
			}
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	header := http.Header{}
	if t := f.token(); t != "" {
		header.Set("Authorization", "Bearer "+t)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			if f.onUnauthorized != nil {
				f.onUnauthorized()
			}
			return fmt.Errorf("%w: %v", errUnauthorized, err)
		}
		return err
	}
	defer conn.Close()

	// Unblock ReadJSON when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	f.log.Debug("notification feed connected")
	for {
		var n Notification
		if err := conn.ReadJSON(&n); err != nil {
			return err
		}
		select {
		case f.ch <- n:
		default:
			// A full buffer drops the oldest rather than stalling reads.
			select {
			case <-f.ch:
			default:
			}
			select {
			case f.ch <- n:
			default:
			}
		}
	}
}

func wsURL(apiBaseURL string) string {
	u := strings.TrimRight(apiBaseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
