package domain

const (
	RoleManager = "manager"
	RoleStaff   = "staff"
)

type User struct {
	ID                 string
	FirstName          string
	LastName           string
	Username           string
	Role               string
	RestaurantID       string
	RestaurantUsername string
}

func (u User) IsManager() bool { return u.Role == RoleManager }

// Session pairs the bearer token with the user it was issued to. Both must
// be present for the session to count as authenticated.
type Session struct {
	Token string
	User  User
}

// Authenticated reports whether the token/user pair is complete.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User.ID != ""
}
