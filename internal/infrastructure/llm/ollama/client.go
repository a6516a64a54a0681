package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin REST client for a local Ollama server. Callers are
// expected to run it through the resilience executor; the HTTP client
// itself carries no timeout so the executor's deadline is the only one.
type Client struct {
	baseURL    string
	embedModel string
	genModel   string
	httpClient *http.Client
}

func NewClient(baseURL, embedModel, genModel string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("new ollama client: base url is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		genModel:   genModel,
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	body := map[string]any{"model": c.embedModel, "prompt": text}
	if err := c.postJSON(ctx, "/api/embeddings", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding from model %s", c.embedModel)
	}
	return resp.Embedding, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		Response string `json:"response"`
	}
	body := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	if err := c.postJSON(ctx, "/api/generate", body, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

// Healthy checks that the server responds at all. Used by readiness
// probes, not by the request path.
func (c *Client) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama health: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
