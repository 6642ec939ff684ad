// Package events republishes session transitions on NATS so other processes
// (notification workers, analytics) can react to sign-ins and sign-outs.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
)

const (
	SubjectLogin  = "session.login"
	SubjectLogout = "session.logout"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Source is anything transitions can be subscribed to. *session.Manager
// implements it.
type Source interface {
	Subscribe(fn session.Listener) (unsubscribe func())
}

// SessionEvent is the payload published for every transition.
type SessionEvent struct {
	EventType       string         `json:"event_type"`
	IsAuthenticated bool           `json:"is_authenticated"`
	UserID          int64          `json:"user_id,omitempty"`
	Email           string         `json:"email,omitempty"`
	UserType        model.UserType `json:"user_type,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

type NatsPublisher struct {
	conn   Conn
	nc     *nats.Conn // nil when built from a plain Conn
	logger *slog.Logger
	now    func() time.Time
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("homerenovationhub-session"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connecting to %s: %w", url, err)
	}
	p := NewPublisher(nc, logger)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, logger *slog.Logger) *NatsPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NatsPublisher{conn: conn, logger: logger, now: time.Now}
}

// Attach subscribes the publisher to src. The returned function detaches it.
func (p *NatsPublisher) Attach(src Source) (detach func()) {
	return src.Subscribe(p.handle)
}

// handle is the session listener. Publish errors are logged; a listener has
// nowhere to return them.
func (p *NatsPublisher) handle(state model.AuthState) {
	if err := p.Publish(state); err != nil {
		p.logger.Error("publishing session event", slog.String("error", err.Error()))
	}
}

// Publish sends one event describing state.
func (p *NatsPublisher) Publish(state model.AuthState) error {
	event := SessionEvent{
		EventType:       SubjectLogout,
		IsAuthenticated: state.IsAuthenticated,
		OccurredAt:      p.now().UTC(),
	}
	if state.IsAuthenticated && state.User != nil {
		event.EventType = SubjectLogin
		event.UserID = state.User.ID
		event.Email = state.User.Email
		event.UserType = state.User.UserType
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encoding %s: %w", event.EventType, err)
	}

	if err := p.conn.Publish(event.EventType, payload); err != nil {
		return fmt.Errorf("events: publishing %s: %w", event.EventType, err)
	}

	p.logger.Debug("published session event",
		slog.String("subject", event.EventType),
		slog.Int64("userID", event.UserID),
	)
	return nil
}

// Close flushes pending messages and closes the connection if Connect
// opened it.
func (p *NatsPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("draining NATS connection", slog.String("error", err.Error()))
		p.nc.Close()
	}
}
