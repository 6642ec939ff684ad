package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage/memory"
)

type published struct {
	subject string
	data    []byte
}

// fakeConn records publishes instead of talking to a NATS server.
type fakeConn struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakeConn) events(t *testing.T) []SessionEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SessionEvent, 0, len(f.msgs))
	for _, m := range f.msgs {
		var e SessionEvent
		require.NoError(t, json.Unmarshal(m.data, &e))
		assert.Equal(t, m.subject, e.EventType)
		out = append(out, e)
	}
	return out
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestPublisher(conn Conn) *NatsPublisher {
	p := NewPublisher(conn, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPublish_Login(t *testing.T) {
	conn := &fakeConn{}
	p := newTestPublisher(conn)

	user := &model.User{ID: 9, Email: "c@d.com", UserType: model.UserTypeContractor}
	require.NoError(t, p.Publish(model.Authenticated(user)))

	got := conn.events(t)
	require.Len(t, got, 1)
	assert.Equal(t, SessionEvent{
		EventType:       SubjectLogin,
		IsAuthenticated: true,
		UserID:          9,
		Email:           "c@d.com",
		UserType:        model.UserTypeContractor,
		OccurredAt:      fixedNow,
	}, got[0])
}

func TestPublish_Logout(t *testing.T) {
	conn := &fakeConn{}
	p := newTestPublisher(conn)

	require.NoError(t, p.Publish(model.Anonymous()))

	got := conn.events(t)
	require.Len(t, got, 1)
	assert.Equal(t, SubjectLogout, got[0].EventType)
	assert.False(t, got[0].IsAuthenticated)
	assert.Zero(t, got[0].UserID)
}

func TestPublish_ConnError(t *testing.T) {
	p := newTestPublisher(&fakeConn{err: errors.New("nats: connection closed")})

	err := p.Publish(model.Anonymous())
	require.Error(t, err)
	assert.Contains(t, err.Error(), SubjectLogout)
}

func TestAttach_FollowsManagerTransitions(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{}
	p := newTestPublisher(conn)

	mgr := session.New(ctx, memory.New(), nil, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	detach := p.Attach(mgr)

	mgr.Login(ctx, &model.User{ID: 1, Email: "a@b.com", UserType: model.UserTypeHomeowner})
	mgr.Logout(ctx)

	got := conn.events(t)
	require.Len(t, got, 2)
	assert.Equal(t, SubjectLogin, got[0].EventType)
	assert.Equal(t, int64(1), got[0].UserID)
	assert.Equal(t, SubjectLogout, got[1].EventType)

	detach()
	mgr.Login(ctx, &model.User{ID: 2})
	assert.Len(t, conn.events(t), 2, "detached publisher must not publish")
}

func TestAttach_PublishFailureDoesNotBreakManager(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(&fakeConn{err: errors.New("boom")})

	mgr := session.New(ctx, memory.New(), nil, nil)
	p.Attach(mgr)

	outcome := mgr.Login(ctx, &model.User{ID: 1})
	assert.True(t, outcome.OK())
	assert.True(t, mgr.State().IsAuthenticated)
}

func TestClose_WithoutOwnedConnection(t *testing.T) {
	p := newTestPublisher(&fakeConn{})
	assert.NotPanics(t, p.Close)
}
