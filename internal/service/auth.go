// Package service holds sign-in orchestration.
//
// AuthService sits between the HTTP handlers and the collaborators that take
// part in a sign-in:
//
//	AuthHandler (HTTP) → AuthService → IdentityExchanger (Google OAuth)
//	                                 ↘ UserDirectory (backend API)
//	                                 ↘ session.Manager (state + storage)
//
// The manager trusts whatever User it is given. Deciding which User that is
// happens here, before Login is called.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/apperror"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/auth"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
)

// IdentityExchanger turns an OAuth authorization code into a federated
// identity. *auth.GoogleProvider implements it.
type IdentityExchanger interface {
	Exchange(ctx context.Context, code string) (*auth.FederatedIdentity, error)
}

// UserDirectory resolves users against the backend API.
// *backend.Client implements it.
type UserDirectory interface {
	ExchangeIdentity(ctx context.Context, identity *auth.FederatedIdentity) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// AuthService drives the manager from the outside world.
type AuthService struct {
	identities IdentityExchanger
	users      UserDirectory
	sessions   *session.Manager
	logger     *slog.Logger
}

// NewAuthService wires an AuthService. Call this once from the composition
// root alongside the manager it drives.
func NewAuthService(
	identities IdentityExchanger,
	users UserDirectory,
	sessions *session.Manager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		users:      users,
		sessions:   sessions,
		logger:     logger,
	}
}

// SignInResult is what CompleteSignIn hands back to the handler.
type SignInResult struct {
	User *model.User
	// Persist reports whether the snapshot reached durable storage. A failed
	// Persist still means the user is signed in for this process.
	Persist session.Outcome
}

// CompleteSignIn finishes the OAuth callback:
//
//  1. Exchange the code for a federated identity
//  2. Post the identity to the backend, which returns the canonical User
//  3. Log that User in with the session manager
//
// Nothing changes in the session if step 1 or 2 fails.
func (s *AuthService) CompleteSignIn(ctx context.Context, code string) (*SignInResult, error) {
	if code == "" {
		return nil, apperror.ValidationFailed("code", "OAuth code must not be empty")
	}

	identity, err := s.identities.Exchange(ctx, code)
	if err != nil {
		rejected := apperror.Unauthorized("identity provider rejected the sign-in")
		rejected.Cause = err
		return nil, fmt.Errorf("service/auth: %w", rejected)
	}

	user, err := s.users.ExchangeIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving user for uid %s: %w", identity.UID, err)
	}

	outcome := s.sessions.Login(ctx, user)

	s.logger.Info("user signed in",
		slog.Int64("userID", user.ID),
		slog.String("userType", string(user.UserType)),
		slog.Bool("persisted", outcome.OK()),
	)

	return &SignInResult{User: user, Persist: outcome}, nil
}

// SignOut logs the current user out. Logout never fails as a whole; the
// result says which best-effort parts did.
func (s *AuthService) SignOut(ctx context.Context) session.LogoutResult {
	return s.sessions.Logout(ctx)
}

// Refresh re-fetches the signed-in user from the backend and logs the fresh
// record in, so subscribers see profile changes made elsewhere.
//
// Returns apperror.ErrUnauthorized when nobody is signed in. If the backend
// says the user no longer exists the session is logged out. The fresh record
// is applied only if the same user is still signed in once the backend
// answers; otherwise Refresh returns apperror.ErrConflict and leaves the
// session alone.
func (s *AuthService) Refresh(ctx context.Context) (*model.User, error) {
	current := s.sessions.CurrentUser()
	if current == nil {
		return nil, apperror.Unauthorized("no user is signed in")
	}

	fresh, err := s.users.GetUser(ctx, current.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("signed-in user no longer exists, logging out",
				slog.Int64("userID", current.ID),
			)
			s.sessions.LogoutUser(ctx, current.ID)
			return nil, fmt.Errorf("service/auth: %w", apperror.Unauthorized("user no longer exists"))
		}
		return nil, fmt.Errorf("service/auth: refreshing user %d: %w", current.ID, err)
	}

	if _, applied := s.sessions.Replace(ctx, current.ID, fresh); !applied {
		return nil, fmt.Errorf("service/auth: %w", &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "session changed while refreshing",
		})
	}
	return fresh, nil
}
