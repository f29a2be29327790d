package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cblog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = cblog.New(io.Discard)

func TestEnvelope(t *testing.T) {
	data, err := json.Marshal(Envelope("line one\nline two"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"`+"```json\\nline one\\nline two\\n```"+`"}`, string(data))
}

func TestSendDelivered(t *testing.T) {
	var got Payload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := NewWebhook(srv.URL, time.Second, discard).Send(context.Background(), "report")
	assert.Equal(t, Delivered, res)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "```json\nreport\n```", got.Content)
}

func TestSendFailures(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer rejecting.Close()

	// Deferred calls run in reverse, so the handler is released before Close
	// waits for it.
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer slow.Close()
	defer close(release)

	tests := []struct {
		name    string
		url     string
		timeout time.Duration
	}{
		{name: "unreachableEndpoint", url: unreachable, timeout: time.Second},
		{name: "invalidEndpoint", url: "://not-a-url", timeout: time.Second},
		{name: "rejectedPayload", url: rejecting.URL, timeout: time.Second},
		{name: "timeout", url: slow.URL, timeout: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Result
			assert.NotPanics(t, func() {
				res = NewWebhook(tt.url, tt.timeout, discard).Send(context.Background(), "report")
			})
			assert.Equal(t, Failed, res)
		})
	}
}

func TestSendSkipped(t *testing.T) {
	assert.Equal(t, Skipped, NewWebhook("", 0, discard).Send(context.Background(), "report"))

	var w *Webhook
	assert.False(t, w.Enabled())
	assert.Equal(t, Skipped, w.Send(context.Background(), "report"))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "delivered", Delivered.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Result(42).String())
}
