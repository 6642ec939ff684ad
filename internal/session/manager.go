// Package session holds the client-side authentication state.
//
// A Manager is the single source of truth for "who is logged in". It is
// built once in main and passed to every consumer; there is no package-level
// instance.
//
// STATE MACHINE:
//
//	Anonymous ──Login(u)──▶ Authenticated(u) ──Login(u')──▶ Authenticated(u')
//	    ▲                          │
//	    └──────────Logout──────────┘
//
// Every transition does three things, in order, under one lock:
//  1. swap the in-memory state
//  2. write or delete the "user" key in durable storage (best effort)
//  3. notify subscribers synchronously, in subscription order
//
// Logout detaches the identity provider's session inside the lock and
// revokes it after the lock is released.
// Storage and sign-out failures are logged and returned as Outcome values,
// never as errors.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/apperror"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage"
)

// StorageKey is the durable-storage key holding the JSON user snapshot.
const StorageKey = "user"

// ErrNilUser is reported when Login is called without a user.
var ErrNilUser = errors.New("session: login called with nil user")

// IdentityProvider is the part of the federated identity bridge the manager
// needs: ending the provider-side session.
type IdentityProvider interface {
	SignOut(ctx context.Context) error
}

// Detacher is implemented by providers that can split sign-out in two:
// Detach forgets the current provider session at once and returns the call
// that revokes it. Logout detaches inside its transition and revokes after.
type Detacher interface {
	Detach() (revoke func(ctx context.Context) error)
}

// Manager owns the AuthState.
//
// LOCKING:
//   - transition serializes Login and the local half of Logout, so mutation,
//     persistence and notification of one call finish before the next starts.
//   - mu guards state. Listeners may call State or CurrentUser from inside a
//     notification; they must not call Login or Logout synchronously.
type Manager struct {
	store    storage.Store
	provider IdentityProvider
	logger   *slog.Logger

	transition sync.Mutex
	mu         sync.RWMutex
	state      model.AuthState

	subs Broadcaster
}

// New builds a Manager and restores the saved session from store.
//
// A missing, unreadable or unparsable snapshot yields the Anonymous state;
// New never fails because of what is (or is not) in storage. provider may be
// nil, in which case Logout skips the provider sign-out.
func New(ctx context.Context, store storage.Store, provider IdentityProvider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:    store,
		provider: provider,
		logger:   logger,
	}

	state, outcome := m.restore(ctx)
	outcome.Log(ctx, m.logger)
	m.state = state

	if state.IsAuthenticated {
		m.logger.Info("restored saved session",
			slog.Int64("userID", state.User.ID),
			slog.String("userType", string(state.User.UserType)),
		)
	}
	return m
}

func (m *Manager) restore(ctx context.Context) (model.AuthState, Outcome) {
	raw, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Anonymous(), attempt(OpRestore, nil)
		}
		return model.Anonymous(), attempt(OpRestore, fmt.Errorf("reading saved user: %w", err))
	}

	var u *model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return model.Anonymous(), attempt(OpRestore, fmt.Errorf("parsing saved user: %w", err))
	}
	return model.Authenticated(u), attempt(OpRestore, nil)
}

// State returns a deep copy of the current state.
func (m *Manager) State() model.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// CurrentUser returns a copy of the signed-in user, or nil when anonymous.
func (m *Manager) CurrentUser() *model.User {
	return m.State().User
}

// Subscribe registers fn for every future transition. fn is not called with
// the current state; call State for that. The returned function removes
// only this registration.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	return m.subs.Subscribe(fn)
}

// Login makes user the signed-in user, replacing any previous one.
//
// The user is taken as authoritative and is not validated. A storage write
// failure is logged and reported in the returned Outcome; the in-memory
// state still changes and subscribers are still notified.
func (m *Manager) Login(ctx context.Context, user *model.User) Outcome {
	if user == nil {
		o := attempt(OpLogin, ErrNilUser)
		o.Log(ctx, m.logger)
		return o
	}

	m.transition.Lock()
	defer m.transition.Unlock()
	return m.login(ctx, user)
}

// Replace swaps in a newer record of the signed-in user. It only applies
// while the user with expectedID is still signed in: after a logout, or a
// login as someone else, it does nothing and reports false.
func (m *Manager) Replace(ctx context.Context, expectedID int64, user *model.User) (Outcome, bool) {
	if user == nil {
		o := attempt(OpLogin, ErrNilUser)
		o.Log(ctx, m.logger)
		return o, false
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if !m.isCurrent(expectedID) {
		m.logger.Debug("stale user update dropped", slog.Int64("userID", expectedID))
		return Outcome{}, false
	}
	return m.login(ctx, user), true
}

// login runs a Login transition. The caller holds m.transition.
func (m *Manager) login(ctx context.Context, user *model.User) Outcome {
	next := model.Authenticated(user)
	m.set(next)

	outcome := attempt(OpPersist, m.persist(ctx, next.User))
	outcome.Log(ctx, m.logger)

	m.logger.Info("user logged in",
		slog.Int64("userID", next.User.ID),
		slog.String("name", next.User.DisplayName()),
		slog.String("email", next.User.Email),
	)

	m.subs.Publish(next)
	return outcome
}

func (m *Manager) isCurrent(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User != nil && m.state.User.ID == id
}

func (m *Manager) persist(ctx context.Context, u *model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := m.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// Logout clears the local session and then signs out of the identity
// provider.
//
// The local clear is unconditional and completes, subscribers included,
// before the provider is called. Logout blocks until SignOut returns; there
// is no timeout other than ctx. A SignOut failure is logged as a warning and
// reported in the result, never reverted.
func (m *Manager) Logout(ctx context.Context) LogoutResult {
	m.transition.Lock()
	res, revoke := m.logout(ctx)
	m.transition.Unlock()

	return m.finishSignOut(ctx, res, revoke)
}

// LogoutUser logs out only if the user with id is still signed in, and
// reports whether it did.
func (m *Manager) LogoutUser(ctx context.Context, id int64) (LogoutResult, bool) {
	m.transition.Lock()
	if !m.isCurrent(id) {
		m.transition.Unlock()
		return LogoutResult{}, false
	}
	res, revoke := m.logout(ctx)
	m.transition.Unlock()

	return m.finishSignOut(ctx, res, revoke), true
}

// logout runs the local half of a Logout and takes the provider session out
// of the provider. The caller holds m.transition.
func (m *Manager) logout(ctx context.Context) (LogoutResult, func(context.Context) error) {
	var res LogoutResult

	prev := m.State()
	m.set(model.Anonymous())

	res.Clear = attempt(OpClear, m.clear(ctx))
	res.Clear.Log(ctx, m.logger)

	if prev.IsAuthenticated {
		m.logger.Info("user logged out", slog.Int64("userID", prev.User.ID))
	}

	m.subs.Publish(model.Anonymous())
	return res, m.detach()
}

func (m *Manager) finishSignOut(ctx context.Context, res LogoutResult, revoke func(context.Context) error) LogoutResult {
	res.SignOut = attempt(OpSignOut, revoke(ctx))
	res.SignOut.Log(ctx, m.logger)
	return res
}

func (m *Manager) clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("removing saved user: %w", err)
	}
	return nil
}

// detach returns the call that ends the provider session being logged out.
// A Detacher hands over its session right away, so a sign-in that completes
// after this point is not revoked by the late call.
func (m *Manager) detach() func(context.Context) error {
	switch p := m.provider.(type) {
	case nil:
		return func(context.Context) error { return nil }
	case Detacher:
		return p.Detach()
	default:
		return p.SignOut
	}
}

func (m *Manager) set(s model.AuthState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
