package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080/api":  "ws://localhost:8080/api",
		"https://api.chowhub.ca/api": "wss://api.chowhub.ca/api",
		"http://localhost:8080/api/": "ws://localhost:8080/api",
	}
	for in, want := range cases {
		if got := wsURL(in); got != want {
			t.Fatalf("wsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFeedReceivesNotifications(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range []Notification{
			{ID: "n1", Type: "low-stock", Message: "tomatoes running low"},
			{ID: "n2", Type: "order", Message: "order placed"},
		} {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(srv.URL, func() string { return "tok-1" }, nil, nil)
	go feed.Run(ctx)

	want := []string{"n1", "n2"}
	for _, id := range want {
		select {
		case n := <-feed.Notifications():
			if n.ID != id {
				t.Fatalf("expected %s, got %+v", id, n)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", id)
		}
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer header on handshake, got %q", gotAuth)
	}
}

func TestFeedUnauthorizedHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	fired := make(chan struct{}, 1)
	feed := NewFeed(srv.URL, func() string { return "" }, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, nil)

	if err := feed.consume(context.Background()); err == nil {
		t.Fatal("expected handshake error")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("unauthorized hook never fired")
	}
}

func TestFeedParksUntilNewLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	var token atomic.Value
	token.Store("stale")

	fired := make(chan struct{}, 8)
	feed := NewFeed(srv.URL, func() string { return token.Load().(string) }, func() {
		// Session teardown empties the token, like the real 401 hook.
		token.Store("")
		fired <- struct{}{}
	}, nil)
	feed.retryWait = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("unauthorized hook never fired")
	}

	// Logged out, the feed must park instead of redialing with no token.
	select {
	case <-fired:
		t.Fatal("hook fired again while logged out")
	case <-time.After(100 * time.Millisecond):
	}

	// A fresh token resumes the dial loop.
	token.Store("fresh")
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("feed never resumed after new login")
	}
}
