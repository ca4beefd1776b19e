package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(ollamaGenerateChunk{Response: "hello", Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	out, err := p.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOllamaProvider_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		enc := json.NewEncoder(w)
		_ = enc.Encode(ollamaGenerateChunk{Response: "hel"})
		flusher.Flush()
		_ = enc.Encode(ollamaGenerateChunk{Response: "lo", Done: true, Context: []int64{1, 2, 3}})
		flusher.Flush()
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	fragments, errc := p.GenerateStream(context.Background(), "sys", "prompt", nil)

	var got []Fragment
	for f := range fragments {
		got = append(got, f)
	}
	require.NoError(t, <-errc)

	require.Len(t, got, 2)
	assert.Equal(t, "hel", got[0].Text)
	assert.Nil(t, got[0].Context)
	assert.Equal(t, "lo", got[1].Text)
	assert.Equal(t, []int64{1, 2, 3}, got[1].Context)
}

func TestOllamaProvider_GenerateStream_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	fragments, errc := p.GenerateStream(context.Background(), "sys", "prompt", nil)

	for range fragments {
	}
	err := <-errc
	require.Error(t, err)
	require.ErrorIs(t, err, ErrModel)
}
