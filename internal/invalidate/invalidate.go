// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package invalidate drops cached reconciled lists when a record store
// announces a mutation for a user.
//
// Events are JSON objects published on a NATS subject:
//
//	{"user_id": "u1", "source": "artifact-store", "kind": "upload"}
//
// Only the user id is required; "userId" is accepted as an alias.
package invalidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNoUser is returned for events that do not name a user.
var ErrNoUser = errors.New("event has no user id")

// invalidateTimeout bounds a single cache invalidation.
const invalidateTimeout = 5 * time.Second

// Invalidator drops whatever is cached for a user.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Listener subscribes to mutation events and invalidates the affected
// user's cached list.
type Listener struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	target Invalidator
	log    *zap.Logger
}

// Listen connects to url and subscribes to subject.
func Listen(url, subject string, target Invalidator, log *zap.Logger) (*Listener, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := nats.Connect(url,
		nats.Name("adlibrary-invalidate"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	l := &Listener{conn: conn, target: target, log: log}
	sub, err := conn.Subscribe(subject, l.handle)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	l.sub = sub

	log.Info("listening for record mutations", zap.String("subject", subject))
	return l, nil
}

// Close unsubscribes and drains the connection.
func (l *Listener) Close() error {
	if l.sub != nil {
		if err := l.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			l.log.Warn("unsubscribing", zap.Error(err))
		}
	}
	if l.conn != nil {
		return l.conn.Drain()
	}
	return nil
}

func (l *Listener) handle(msg *nats.Msg) {
	userID, err := l.apply(msg.Data)
	if err != nil {
		l.log.Warn("ignoring mutation event",
			zap.String("subject", msg.Subject),
			zap.String("user", userID),
			zap.Error(err))
		return
	}
	l.log.Debug("cache invalidated", zap.String("user", userID))
}

// apply decodes one event and invalidates its user.
func (l *Listener) apply(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.New("event is not JSON")
	}
	ev := gjson.ParseBytes(data)
	userID := ev.Get("user_id").String()
	if userID == "" {
		userID = ev.Get("userId").String()
	}
	if userID == "" {
		return "", ErrNoUser
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := l.target.Invalidate(ctx, userID); err != nil {
		return userID, fmt.Errorf("invalidating: %w", err)
	}
	return userID, nil
}
