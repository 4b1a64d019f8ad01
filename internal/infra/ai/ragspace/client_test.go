package ragspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
)

type usageCall struct {
	name     string
	relevant bool
	preview  string
}

func chatBackend(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/workspace/ws-1/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestGenerate_ReportsCitedSources(t *testing.T) {
	srv := chatBackend(t, `{
		"textResponse": "{\"score\":5}",
		"sources": [
			{"title": "glossary.md", "text": "term definitions", "score": 0.8},
			{"title": "style-guide.md", "text": "formatting rules", "score": 0.1},
			{"title": "", "text": "unattributed chunk", "score": 0.9}
		]
	}`)
	defer srv.Close()

	var calls []usageCall
	gen := NewGenerator(NewClient(srv.URL, "", time.Second), "ws-1",
		func(name string, relevant bool, preview string) {
			calls = append(calls, usageCall{name, relevant, preview})
		})

	out, err := gen.Generate(context.Background(), "analyze this", domai.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"score":5}`, out)

	require.Len(t, calls, 2, "sources without a title carry no document to attribute")
	assert.Equal(t, "glossary.md", calls[0].name)
	assert.True(t, calls[0].relevant)
	assert.Equal(t, "term definitions", calls[0].preview)
	assert.Equal(t, "style-guide.md", calls[1].name)
	assert.False(t, calls[1].relevant, "a chunk cited below the similarity threshold is not a relevant hit")
}

func TestGenerate_NoUsageFuncStillWorks(t *testing.T) {
	srv := chatBackend(t, `{"textResponse": "ok", "sources": [{"title": "glossary.md", "score": 0.9}]}`)
	defer srv.Close()

	gen := NewGenerator(NewClient(srv.URL, "", time.Second), "ws-1", nil)
	out, err := gen.Generate(context.Background(), "analyze this", domai.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestChat_BackendError(t *testing.T) {
	srv := chatBackend(t, `{"error": "workspace not found"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Chat(context.Background(), "ws-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace not found")
}
