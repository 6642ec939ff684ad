package session

import (
	"context"
	"log/slog"
)

// Op names a best-effort side effect of a transition.
type Op string

const (
	OpRestore Op = "restore"  // reading the saved snapshot at startup
	OpLogin   Op = "login"    // the login call itself
	OpPersist Op = "persist"  // writing the snapshot on login
	OpClear   Op = "clear"    // deleting the snapshot on logout
	OpSignOut Op = "sign_out" // identity-provider sign-out on logout
)

// Outcome is the result of a best-effort side effect.
//
// A failed Outcome never changes the in-memory state and is never returned
// as an error: the manager logs it and hands it back for callers that want
// to surface it (for example, "signed out locally, provider unreachable").
type Outcome struct {
	Op  Op
	Err error
}

func attempt(op Op, err error) Outcome {
	return Outcome{Op: op, Err: err}
}

// OK reports whether the side effect succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Log records a failed outcome. Sign-out failures and rejected logins are
// warnings; storage failures are errors because the session will not
// survive a restart.
func (o Outcome) Log(ctx context.Context, logger *slog.Logger) {
	if o.OK() {
		return
	}

	level := slog.LevelError
	msg := "session storage operation failed"
	switch o.Op {
	case OpSignOut:
		level = slog.LevelWarn
		msg = "identity provider sign-out failed, local session cleared anyway"
	case OpLogin:
		level = slog.LevelWarn
		msg = "login rejected"
	}

	logger.LogAttrs(ctx, level, msg,
		slog.String("op", string(o.Op)),
		slog.String("error", o.Err.Error()),
	)
}

// LogoutResult reports both best-effort parts of a logout.
type LogoutResult struct {
	Clear   Outcome
	SignOut Outcome
}
