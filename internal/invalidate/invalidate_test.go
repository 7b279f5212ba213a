// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package invalidate

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingInvalidator struct {
	users []string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID string) error {
	r.users = append(r.users, userID)
	return r.err
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantUser string
		wantErr  string
	}{
		{"user_id", `{"user_id":"u1","source":"artifact-store"}`, "u1", ""},
		{"userId alias", `{"userId":"u2"}`, "u2", ""},
		{"missing user", `{"source":"legacy-files"}`, "", "no user id"},
		{"not json", `user u1 changed`, "", "not JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingInvalidator{}
			l := &Listener{target: target, log: zap.NewNop()}

			user, err := l.apply([]byte(tt.data))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, target.users)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, []string{tt.wantUser}, target.users)
		})
	}
}

func TestHandleLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	target := &recordingInvalidator{err: errors.New("db locked")}
	l := &Listener{target: target, log: zap.New(core)}

	l.handle(&nats.Msg{Subject: "adlibrary.records.mutated", Data: []byte(`{"user_id":"u1"}`)})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "ignoring mutation event", entry.Message)
	assert.Equal(t, "u1", entry.ContextMap()["user"])
	assert.Contains(t, entry.ContextMap()["error"], "db locked")
}

func TestHandleSuccessLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	target := &recordingInvalidator{}
	l := &Listener{target: target, log: zap.New(core)}

	l.handle(&nats.Msg{Data: []byte(`{"user_id":"u9"}`)})

	assert.Equal(t, []string{"u9"}, target.users)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "cache invalidated", logs.All()[0].Message)
}

func TestListenUnreachableServer(t *testing.T) {
	_, err := Listen("nats://127.0.0.1:1", "x", &recordingInvalidator{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to nats")
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, (&Listener{log: zap.NewNop()}).Close())
}
