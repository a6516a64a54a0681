package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Client searches Wikipedia through the public MediaWiki API and turns
// matches into snippets the summarizer can work with.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

var _ ports.WebSearcher = (*Client)(nil)

func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = "https://es.wikipedia.org/w/api.php"
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Snippet, error) {
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")
	params.Set("utf8", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "web search", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "web search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, domain.WrapError(domain.ErrTemporary, "web search", fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "web search", err)
	}
	var parsed struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "decode web search response", err)
	}

	out := make([]domain.Snippet, 0, len(parsed.Query.Search))
	for _, r := range parsed.Query.Search {
		out = append(out, domain.Snippet{
			Title: r.Title,
			Text:  stripMarkup(r.Snippet),
			URL:   pageURL(c.apiURL, r.Title),
		})
	}
	return out, nil
}

// stripMarkup removes the search-highlight HTML the API embeds in
// snippet text.
func stripMarkup(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

func pageURL(apiURL, title string) string {
	base := strings.TrimSuffix(apiURL, "/w/api.php")
	return base + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}
