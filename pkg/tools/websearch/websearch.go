// Package websearch is a web-search tool backed by the Tavily search API.
package websearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"graddirector/pkg/config"
	"graddirector/pkg/tools"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToolName is the name the model calls the search by.
const ToolName = "web_search"

// Hit is one search result.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Tool calls POST {base}/search with bearer authentication.
type Tool struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// New returns nil when cfg carries no api key, so callers can skip
// registration.
func New(cfg config.WebSearchConfig, httpClient *http.Client) *Tool {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultSearchURL
	}
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = config.DefaultSearchMaxItems
	}
	return &Tool{apiKey: cfg.APIKey, baseURL: base, maxResults: limit, httpClient: httpClient}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Search the web for current information. Use for facts that need verification, such as deadlines, policies or announcements."
}

func (t *Tool) Schema() tools.ArgSchema {
	return tools.ArgSchema{
		{Name: "query", Type: tools.TypeString, Required: true, Description: "Search query"},
	}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := tools.StringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", tools.ErrInvalidArguments)
	}
	return t.Search(ctx, query)
}

// Search runs one query and returns at most maxResults hits.
func (t *Tool) Search(ctx context.Context, query string) ([]Hit, error) {
	body, err := json.Marshal(map[string]any{
		"query":       query,
		"max_results": t.maxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("web search read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("web search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Results []Hit `json:"results"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("web search returned malformed body: %w", err)
	}
	if len(parsed.Results) > t.maxResults {
		parsed.Results = parsed.Results[:t.maxResults]
	}
	if parsed.Results == nil {
		parsed.Results = []Hit{}
	}
	return parsed.Results, nil
}
