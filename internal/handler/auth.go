package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/service"
)

const stateCookie = "oauth_state"

// LoginURLer builds the provider's consent-page URL. *auth.GoogleProvider
// implements it.
type LoginURLer interface {
	AuthURL(state string) string
}

// SignInCompleter is implemented by *service.AuthService.
type SignInCompleter interface {
	CompleteSignIn(ctx context.Context, code string) (*service.SignInResult, error)
}

// AuthHandler runs the browser side of the Google sign-in:
//   - HandleGoogleLogin    → redirect to Google's consent page
//   - HandleGoogleCallback → receive the code, hand it to the sign-in service
type AuthHandler struct {
	provider LoginURLer
	signIn   SignInCompleter
	logger   *slog.Logger
}

func NewAuthHandler(provider LoginURLer, signIn SignInCompleter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		signIn:   signIn,
		logger:   logger,
	}
}

// HandleGoogleLogin redirects the browser to Google.
//
// HTTP: GET /auth/google/login
//
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL; the callback only proceeds when both match.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the sign-in.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
//  1. Check the state against the cookie
//  2. Bail out if the user declined
//  3. CompleteSignIn: code → identity → backend User → session login
//  4. Redirect to the app
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if q.Get("state") != c.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	result, err := h.signIn.CompleteSignIn(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if !result.Persist.OK() {
		h.logger.Warn("auth callback: signed in but session was not saved",
			slog.Int64("userID", result.User.ID),
		)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
