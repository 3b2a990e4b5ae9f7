package app

import "context"

type DecisionKind string

const (
	Allow                DecisionKind = "allow"
	RedirectLogin        DecisionKind = "redirect-login"
	RedirectDashboard    DecisionKind = "redirect-dashboard"
	RedirectUnauthorized DecisionKind = "redirect-unauthorized"
)

// Decision is what the guard wants done with a view request. Target is only
// set for redirects.
type Decision struct {
	Kind   DecisionKind
	Target string
}

func (d Decision) Allowed() bool { return d.Kind == Allow }

const (
	loginRoute        = "/login"
	unauthorizedRoute = "/unauthorized"
)

// Guard gates dashboard views on the current session and keeps the
// restaurant slug in the requested route consistent with the logged-in
// user.
type Guard struct {
	sessions *Service
}

func NewGuard(sessions *Service) *Guard {
	return &Guard{sessions: sessions}
}

// Check decides whether a view under the given restaurant slug may render.
// An unauthenticated or partial session is cleared before the login
// redirect so nothing stale survives. A slug mismatch redirects to the
// user's own dashboard root; re-checking with the corrected slug allows,
// so the redirect fires exactly once.
func (g *Guard) Check(ctx context.Context, restaurantSlug string) Decision {
	sess := g.sessions.Current()
	if !sess.Authenticated() {
		// Partial state (token without user or vice versa) is wiped here.
		_ = g.sessions.Clear(ctx)
		return Decision{Kind: RedirectLogin, Target: loginRoute}
	}

	if restaurantSlug != sess.User.RestaurantUsername {
		return Decision{
			Kind:   RedirectDashboard,
			Target: "/" + sess.User.RestaurantUsername + "/dashboard",
		}
	}

	return Decision{Kind: Allow}
}

// CheckManager additionally restricts the view to managers. It is
// re-evaluated whenever the user identity changes.
func (g *Guard) CheckManager(ctx context.Context, restaurantSlug string) Decision {
	d := g.Check(ctx, restaurantSlug)
	if !d.Allowed() {
		return d
	}
	if !g.sessions.Current().User.IsManager() {
		return Decision{Kind: RedirectUnauthorized, Target: unauthorizedRoute}
	}
	return d
}
