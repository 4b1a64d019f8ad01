package ragspace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/rag"
)

// Client talks JSON-over-HTTP to the workspace/document backend: document
// upload, workspace parameters, and retrieval-augmented chat.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domai.ErrBackendDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return domai.ErrQuotaExceeded
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("workspace backend %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Ping checks backend reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

// UploadDocuments pushes reference documents into the workspace embedding set.
func (c *Client) UploadDocuments(ctx context.Context, workspaceID string, docs []rag.ReferenceDocument) error {
	type doc struct {
		Name    string `json:"name"`
		Content string `json:"content"` // base64
	}
	payload := struct {
		Documents []doc `json:"documents"`
	}{}
	for _, d := range docs {
		payload.Documents = append(payload.Documents, doc{
			Name:    d.Name,
			Content: base64.StdEncoding.EncodeToString(d.Content),
		})
	}
	return c.do(ctx, http.MethodPost, "/api/workspace/"+workspaceID+"/documents", payload, nil)
}

// SetParameters applies generation parameters to the workspace.
func (c *Client) SetParameters(ctx context.Context, workspaceID string, params rag.WorkspaceParams) error {
	return c.do(ctx, http.MethodPost, "/api/workspace/"+workspaceID+"/update", params, nil)
}

// chatSource is one retrieved chunk cited by the workspace response.
type chatSource struct {
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type chatResponse struct {
	TextResponse string       `json:"textResponse"`
	Error        string       `json:"error"`
	Sources      []chatSource `json:"sources"`
}

func (c *Client) chat(ctx context.Context, workspaceID string, message string) (chatResponse, error) {
	var out chatResponse
	body := map[string]string{"message": message, "mode": "chat"}
	if err := c.do(ctx, http.MethodPost, "/api/workspace/"+workspaceID+"/chat", body, &out); err != nil {
		return chatResponse{}, err
	}
	if out.Error != "" {
		return chatResponse{}, fmt.Errorf("workspace chat: %s", out.Error)
	}
	return out, nil
}

// Chat sends one message through the workspace RAG pipeline.
func (c *Client) Chat(ctx context.Context, workspaceID string, message string) (string, error) {
	out, err := c.chat(ctx, workspaceID, message)
	if err != nil {
		return "", err
	}
	return out.TextResponse, nil
}

// UsageFunc receives one document-retrieval observation per cited source.
type UsageFunc func(documentName string, wasRelevant bool, contextPreview string)

// relevantScore matches the default similarity threshold: chunks cited below
// it count as retrievals but not as relevant hits.
const relevantScore = 0.25

const sourcePreviewLen = 120

// Generator adapts one workspace's chat endpoint to the ai.Generator port so
// the health monitor can treat the RAG path like any other backend. Source
// attributions on the chat response are reported through usage, feeding the
// document-usage statistics.
type Generator struct {
	client      *Client
	workspaceID string
	usage       UsageFunc
}

func NewGenerator(client *Client, workspaceID string, usage UsageFunc) *Generator {
	return &Generator{client: client, workspaceID: workspaceID, usage: usage}
}

func (*Generator) ID() string { return "rag" }

func (g *Generator) Probe(ctx context.Context) error {
	return g.client.Ping(ctx)
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts domai.GenerateOptions) (string, error) {
	out, err := g.client.chat(ctx, g.workspaceID, prompt)
	if err != nil {
		return "", err
	}
	if g.usage != nil {
		for _, s := range out.Sources {
			if s.Title == "" {
				continue
			}
			preview := s.Text
			if len(preview) > sourcePreviewLen {
				preview = preview[:sourcePreviewLen]
			}
			g.usage(s.Title, s.Score >= relevantScore, preview)
		}
	}
	return out.TextResponse, nil
}
