package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncode_KeysByPrincipal(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := encode(Event{
		Type:        LoginSucceeded,
		PrincipalID: "7b0c",
		Kind:        "individual",
		IP:          "10.0.0.1",
		At:          at,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("7b0c"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "login_succeeded", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "login_succeeded", body["type"])
	assert.Equal(t, "individual", body["kind"])
	assert.NotContains(t, body, "reason")
}

func TestEncode_StampsMissingTime(t *testing.T) {
	t.Parallel()

	msg, err := encode(Event{Type: LoggedOut})
	require.NoError(t, err)
	assert.False(t, msg.Time.IsZero())
}

func TestNop(t *testing.T) {
	t.Parallel()

	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: LoggedOut}))
}

func TestNewProducer_AsyncWriter(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"localhost:9092"}, "auth_events", zap.NewNop())
	assert.True(t, p.w.Async)
	assert.Equal(t, "auth_events", p.w.Topic)
	assert.NotNil(t, p.w.Completion)
	require.NoError(t, p.Close())
}
