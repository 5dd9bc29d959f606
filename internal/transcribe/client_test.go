package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transcriptions", r.URL.Path)

		var req transcribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "uploads/visit-7.wav", req.Path)
		assert.Equal(t, "base", req.Model)

		_ = json.NewEncoder(w).Encode(Result{
			Text:     "patient fine",
			Language: "fr",
			Segments: []Segment{{Start: 0, End: 2.4, Text: "patient fine"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	result, err := client.Transcribe(context.Background(), "uploads/visit-7.wav")
	require.NoError(t, err)
	assert.Equal(t, "patient fine", result.Text)
	assert.Equal(t, "fr", result.Language)
	assert.Len(t, result.Segments, 1)
}

func TestClientTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), "uploads/visit-7.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClientTranscribeEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{Text: ""})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), "uploads/visit-7.wav")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestClientTranscribeTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), "uploads/visit-7.wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: "http://localhost:9000"}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultModel, client.model)
	assert.Equal(t, defaultTimeout, client.timeout)
}
