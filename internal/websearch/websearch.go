package websearch

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

// SearchError wraps a failed research call. Research is best-effort; callers
// log it and continue without context.
type SearchError struct {
	Err error
}

func (e *SearchError) Error() string { return fmt.Sprintf("web search failed: %v", e.Err) }
func (e *SearchError) Unwrap() error { return e.Err }

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher provides topical research context for content generation.
type Searcher interface {
	SearchNews(ctx context.Context, query string, days, maxResults int) ([]Result, error)
}

// Client calls the Tavily search API. A zero-key client is disabled and
// returns no results.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		baseURL:    "https://api.tavily.com",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// SetBaseURL redirects the client, for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Enabled reports whether a key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// SearchNews returns recent news results for query, newest window first.
func (c *Client) SearchNews(ctx context.Context, query string, days, maxResults int) ([]Result, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if days <= 0 {
		days = 7
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	body, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"topic":       "news",
		"days":        days,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SearchError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &SearchError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(b))}
	}
	var raw struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &SearchError{Err: err}
	}
	return raw.Results, nil
}

// FormatForPrompt renders results as a compact block for an LLM prompt,
// capped so research never crowds out the actual instructions.
func FormatForPrompt(results []Result, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 1500
	}
	var b strings.Builder
	for i, r := range results {
		entry := fmt.Sprintf("%d. %s\n%s\n", i+1, r.Title, r.Content)
		if b.Len()+len(entry) > maxChars {
			break
		}
		b.WriteString(entry)
	}
	return strings.TrimSpace(b.String())
}
