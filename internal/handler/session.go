package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/auth"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
)

// SessionSource is the read side of *session.Manager.
type SessionSource interface {
	State() model.AuthState
	Watch(ctx context.Context) <-chan model.AuthState
}

// SessionService is the write side, implemented by *service.AuthService.
type SessionService interface {
	SignOut(ctx context.Context) session.LogoutResult
	Refresh(ctx context.Context) (*model.User, error)
}

// SessionHandler exposes the auth state to a browser UI: a JSON snapshot
// for the first render and a Server-Sent-Events stream for every change
// after that.
type SessionHandler struct {
	sessions  SessionSource
	service   SessionService
	logger    *slog.Logger
	keepAlive time.Duration
}

func NewSessionHandler(sessions SessionSource, service SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		service:   service,
		logger:    logger,
		keepAlive: 25 * time.Second,
	}
}

// HandleSnapshot returns the current AuthState.
//
// HTTP: GET /api/session
func (h *SessionHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.State())
}

// HandleEvents streams transitions as Server-Sent Events.
//
// HTTP: GET /api/session/events
//
// The first event is "snapshot" with the state at connect time. Every
// login or logout after that is one "session" event, in order. A comment
// line goes out every keepAlive so proxies keep the connection open.
func (h *SessionHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the server's WriteTimeout would cut the stream otherwise
	_ = rc.SetWriteDeadline(time.Time{})

	ctx := r.Context()
	updates := h.sessions.Watch(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", h.sessions.State()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("session events: streaming unsupported", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "session", state); err != nil {
				h.logger.Debug("session events: client went away", slog.String("error", err.Error()))
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, state model.AuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// LogoutResponse is the body of POST /auth/logout. Logout always succeeds
// locally; Warnings lists the best-effort parts that did not.
type LogoutResponse struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// HandleLogout signs the user out.
//
// HTTP: POST /auth/logout
//
// Always 200: the local session is gone even when the provider could not be
// reached.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	res := h.service.SignOut(r.Context())

	resp := LogoutResponse{Message: "logged out"}
	if !res.Clear.OK() {
		resp.Warnings = append(resp.Warnings, "saved session could not be removed")
	}
	if !res.SignOut.OK() {
		resp.Warnings = append(resp.Warnings, "identity provider sign-out failed")
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRefresh re-reads the signed-in user from the backend.
//
// HTTP: POST /api/session/refresh
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("session refresh failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
// Auth: RequireSession has already rejected anonymous requests.
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "no user is signed in"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
