package auth

import (
	"context"
	"net/http"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
)

// contextKey is unexported so only this package can read or write the value.
type contextKey string

const userKey contextKey = "user"

// CurrentUserSource is satisfied by *session.Manager.
type CurrentUserSource interface {
	CurrentUser() *model.User
}

// RequireSession blocks requests while nobody is signed in.
//
// The signed-in user is read from the session manager at request time and
// stored in the request context; handlers get it with UserFromContext.
// Anonymous requests get 401 and the chain stops.
func RequireSession(sessions CurrentUserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessions.CurrentUser()
			if user == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"no user is signed in"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireSession.
// Returns (nil, false) for anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
