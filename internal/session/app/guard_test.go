package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/most4f4/chowhub/internal/session/app"
	"github.com/most4f4/chowhub/internal/session/domain"
	"github.com/most4f4/chowhub/internal/session/infra/memstore"
)

func loggedIn(t *testing.T, user domain.User) *app.Service {
	t.Helper()
	svc := app.NewService(memstore.New(), nil)
	if err := svc.Login(context.Background(), signedToken(t, time.Hour), user, false); err != nil {
		t.Fatalf("login: %v", err)
	}
	return svc
}

func TestGuardUnauthenticated(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := app.NewService(store, nil)
	guard := app.NewGuard(svc)

	d := guard.Check(ctx, "acme")
	if d.Kind != app.RedirectLogin || d.Target != "/login" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if _, err := store.Load(ctx); err != app.ErrNoSession {
		t.Fatalf("expected store cleared, got %v", err)
	}
}

func TestGuardSlugMismatchRedirectsOnce(t *testing.T) {
	ctx := context.Background()
	guard := app.NewGuard(loggedIn(t, manager("acme")))

	d := guard.Check(ctx, "other")
	if d.Kind != app.RedirectDashboard || d.Target != "/acme/dashboard" {
		t.Fatalf("unexpected decision: %+v", d)
	}

	// Following the redirect lands on the matching slug; no loop.
	d = guard.Check(ctx, "acme")
	if !d.Allowed() {
		t.Fatalf("expected allow after redirect, got %+v", d)
	}
}

func TestGuardManagerOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("manager allowed", func(t *testing.T) {
		guard := app.NewGuard(loggedIn(t, manager("acme")))
		if d := guard.CheckManager(ctx, "acme"); !d.Allowed() {
			t.Fatalf("expected allow, got %+v", d)
		}
	})

	t.Run("staff redirected to unauthorized", func(t *testing.T) {
		staff := manager("acme")
		staff.Role = domain.RoleStaff
		guard := app.NewGuard(loggedIn(t, staff))

		d := guard.CheckManager(ctx, "acme")
		if d.Kind != app.RedirectUnauthorized || d.Target != "/unauthorized" {
			t.Fatalf("unexpected decision: %+v", d)
		}
	})

	t.Run("slug mismatch wins over role check", func(t *testing.T) {
		guard := app.NewGuard(loggedIn(t, manager("acme")))
		d := guard.CheckManager(ctx, "other")
		if d.Kind != app.RedirectDashboard {
			t.Fatalf("unexpected decision: %+v", d)
		}
	})

	t.Run("re-evaluated after identity change", func(t *testing.T) {
		svc := loggedIn(t, manager("acme"))
		guard := app.NewGuard(svc)
		if d := guard.CheckManager(ctx, "acme"); !d.Allowed() {
			t.Fatalf("expected allow, got %+v", d)
		}

		staff := manager("acme")
		staff.Role = domain.RoleStaff
		if err := svc.Login(ctx, signedToken(t, time.Hour), staff, false); err != nil {
			t.Fatalf("login: %v", err)
		}
		if d := guard.CheckManager(ctx, "acme"); d.Kind != app.RedirectUnauthorized {
			t.Fatalf("expected unauthorized after demotion, got %+v", d)
		}
	})
}
