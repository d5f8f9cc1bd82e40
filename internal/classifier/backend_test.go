package classifier

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

func TestGemini_Generate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-lite:generateContent", r.URL.Path)
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  {\"urgency_level\":\"low\"}  "}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("k3y", "", srv.URL, time.Second)
	require.True(t, g.Available(context.Background()))
	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"urgency_level":"low"}`, out)
}

func TestGemini_ErrorsRedactKey(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini("s3cret", "m", srv.URL, time.Second)
	_, err := g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.NotContains(t, err.Error(), "s3cret")

	// closed server: transport error includes the URL
	srv.Close()
	_, err = g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestGemini_NoKey(t *testing.T) {
	t.Parallel()
	g := NewGemini("", "", "", 0)
	assert.False(t, g.Available(context.Background()))
	_, err := g.Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestOllama(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte("Ollama is running"))
		case "/api/generate":
			var req ollamaRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, DefaultOllamaModel, req.Model)
			assert.False(t, req.Stream)
			_ = json.NewEncoder(w).Encode(ollamaResponse{
				Response: "<think>\nhmm, a deploy\n</think>\n{\"urgency_level\":\"critical\"}",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "", time.Second)
	require.True(t, o.Available(context.Background()))
	out, err := o.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"urgency_level":"critical"}`, out)

	srv.Close()
	assert.False(t, o.Available(context.Background()))
}
