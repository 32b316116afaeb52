package handoff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/engine"
)

func TestNew_RequiresURLAndToken(t *testing.T) {
	assert.Nil(t, New("", ""))
	assert.Nil(t, New("https://example.test/rotate", ""))
	assert.Nil(t, New("", "token"))
	assert.NotNil(t, New("https://example.test/rotate", "token"))
}

func TestTrigger_NilNotifierIsUnavailable(t *testing.T) {
	var n *Notifier
	err := n.Trigger(context.Background(), 1, "test")
	assert.ErrorIs(t, err, engine.ErrHandoffUnavailable)
}

func TestTrigger_PostsPayload(t *testing.T) {
	var gotAuth string
	var gotBody rotationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := New(srv.URL, "tok-123")
	err := n.Trigger(context.Background(), 9, "context budget critical")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, 9, gotBody.Iteration)
	assert.Equal(t, "context budget critical", gotBody.Reason)
	assert.NotEmpty(t, gotBody.Timestamp)
}

func TestTrigger_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := New(srv.URL, "tok")
	err := n.Trigger(context.Background(), 1, "gutter risk high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestTrigger_Unreachable(t *testing.T) {
	n := New("http://127.0.0.1:1/rotate", "tok")
	err := n.Trigger(context.Background(), 1, "test")
	assert.Error(t, err)
}
