package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
)

const completionBody = `{
	"id": "cmpl-1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"score\":5}"}, "finish_reason": "stop"}]
}`

func TestGenerate_RepairPassDropsSampling(t *testing.T) {
	type chatRequest struct {
		Temperature *float64 `json:"temperature"`
	}
	var seen []chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "gpt-4o-mini")

	out, err := c.Generate(context.Background(), "analyze this", domai.GenerateOptions{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, `{"score":5}`, out)

	_, err = c.Generate(context.Background(), "fix this payload", domai.GenerateOptions{Temperature: 0.7, RepairPass: true})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	require.NotNil(t, seen[0].Temperature)
	assert.InDelta(t, 0.7, *seen[0].Temperature, 1e-6)
	// Zero temperature is omitted from the wire request.
	assert.True(t, seen[1].Temperature == nil || *seen[1].Temperature == 0,
		"repair retry must not sample")
}
