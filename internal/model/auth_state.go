package model

// AuthState is the client-local view of "who is logged in".
//
// INVARIANT:
// IsAuthenticated is true exactly when User is non-nil. The two fields are
// never assigned separately; build values with Anonymous or Authenticated.
type AuthState struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// Anonymous returns the state with no signed-in user.
func Anonymous() AuthState {
	return AuthState{}
}

// Authenticated returns the state for u. The user is deep-copied, so later
// changes to u do not leak into the state. A nil u yields Anonymous.
func Authenticated(u *User) AuthState {
	if u == nil {
		return Anonymous()
	}
	return AuthState{User: u.Clone(), IsAuthenticated: true}
}

// Clone returns a snapshot that shares no memory with s.
func (s AuthState) Clone() AuthState {
	return AuthState{User: s.User.Clone(), IsAuthenticated: s.IsAuthenticated}
}
