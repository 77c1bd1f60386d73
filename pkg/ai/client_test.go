package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

func TestNewWithoutKey(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrUnavailable.Code))
}

func TestGenerate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  ## Plan\n"}}]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "secret", BaseURL: srv.URL, Model: "test-model", Timeout: time.Second})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "be brief", "plan a lesson")
	require.NoError(t, err)
	assert.Equal(t, "## Plan", text)
	assert.Equal(t, "test-model", got["model"])
	assert.Len(t, got["messages"], 2)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "", "hi")
	assert.Error(t, err)
}
