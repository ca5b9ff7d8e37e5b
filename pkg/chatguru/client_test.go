package chatguru

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	retryDelay = 10 * time.Millisecond
	m.Run()
}

func TestAddAnnotation_PostsPayload(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/annotation", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	err := c.AddAnnotation(context.Background(), "chat-1", "551", "Tarefa: Não é uma atividade")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", got["chat_id"])
	assert.Equal(t, "551", got["phone"])
	assert.Equal(t, "Tarefa: Não é uma atividade", got["annotation_text"])
}

func TestSendMessage_PostsConfirmation(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	err := c.SendMessage(context.Background(), "551", "phone-1", "Ok ✅")
	require.NoError(t, err)
	assert.Equal(t, "Ok ✅", got["text"])
	assert.Equal(t, "phone-1", got["phone_id"])
}

func TestPost_RetriesOnceOn5xx(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	err := c.AddAnnotation(context.Background(), "chat-1", "551", "texto")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPost_GivesUpAfterOneRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	err := c.AddAnnotation(context.Background(), "chat-1", "551", "texto")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load(), "exactly one retry, no unbounded loop")
}

func TestPost_NoRetryOn4xx(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	err := c.AddAnnotation(context.Background(), "chat-1", "551", "texto")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestService_NilSafe(t *testing.T) {
	var s *Service
	// Must not panic.
	s.Annotate(context.Background(), "chat", "phone", "text")
	s.Confirm(context.Background(), "phone", "Ok ✅")

	assert.Nil(t, NewService("", "tok", "pid"))
}
