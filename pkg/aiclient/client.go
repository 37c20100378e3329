package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

const (
	defaultTimeout  = 60 * time.Second
	agentQueryPath  = "agentQuery"
	imageSearchPath = "imageSearch"
	queryTypeText   = "text"
	actionToolAgent = "toolagent"
	imageFormField  = "image"
	anonymousUID    = "anonymous"
)

const requestBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("ai base url is required")

// Client talks to the shopping assistant backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// TextContent carries a text query.
type TextContent struct {
	TextQuery string `json:"text_query"`
}

// AgentQuery is the request body of the agent endpoint.
type AgentQuery struct {
	QueryType       string                     `json:"query_type"`
	Content         TextContent                `json:"content"`
	UID             string                     `json:"uid"`
	Action          string                     `json:"action,omitempty"`
	Context         []assistant.Message        `json:"context,omitempty"`
	BrowsingContext *assistant.BrowsingContext `json:"browsingContext,omitempty"`
}

// NewTextQuery wraps an assembled payload for the agent endpoint. An empty uid
// is sent as "anonymous".
func NewTextQuery(uid string, payload assistant.Payload) AgentQuery {
	if strings.TrimSpace(uid) == "" {
		uid = anonymousUID
	}
	return AgentQuery{
		QueryType:       queryTypeText,
		Content:         TextContent{TextQuery: payload.Query},
		UID:             uid,
		Action:          actionToolAgent,
		Context:         payload.Context,
		BrowsingContext: payload.BrowsingContext,
	}
}

// AgentOutput is the nested output block of the backend.
type AgentOutput struct {
	LLMOutput json.RawMessage `json:"llm_output"`
	RawOutput json.RawMessage `json:"raw_output,omitempty"`
}

// AgentResponse accepts both the nested and the flat reply shapes.
type AgentResponse struct {
	AgentOutput *AgentOutput    `json:"agent_output,omitempty"`
	LLMOutput   json.RawMessage `json:"llm_output,omitempty"`
}

// Text returns the reply text, preferring agent_output.llm_output. Non-string
// outputs are returned as their JSON text. Empty when there is no output.
func (r AgentResponse) Text() string {
	if r.AgentOutput != nil {
		if text := rawText(r.AgentOutput.LLMOutput); text != "" {
			return text
		}
	}
	return rawText(r.LLMOutput)
}

// Raw returns the structured raw output, if any.
func (r AgentResponse) Raw() json.RawMessage {
	if r.AgentOutput == nil {
		return nil
	}
	return r.AgentOutput.RawOutput
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// AgentQuery forwards a text query to the agent endpoint.
func (c *Client) AgentQuery(ctx context.Context, q AgentQuery) (*AgentResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ai client not configured")
	}
	if strings.TrimSpace(q.Content.TextQuery) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal agent query")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(agentQueryPath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build agent query request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, "agent query")
}

// ImageSearch uploads an image as multipart field "image".
func (c *Client) ImageSearch(ctx context.Context, filename string, image io.Reader) (*AgentResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ai client not configured")
	}
	if image == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "upload.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(imageFormField, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build image form")
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copy image")
	}
	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close image form")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(imageSearchPath), &body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build image search request")
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(httpReq, "image search")
}

func (c *Client) do(httpReq *http.Request, op string) (*AgentResponse, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" request failed")
	}

	var out AgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return &out, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
