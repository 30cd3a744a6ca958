package websearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"graddirector/pkg/config"
	"graddirector/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutKeyIsNil(t *testing.T) {
	assert.Nil(t, New(config.WebSearchConfig{}, nil))
	assert.Nil(t, New(config.WebSearchConfig{APIKey: "  "}, nil))
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "vcu cs admission deadline", req["query"])
		assert.EqualValues(t, 2, req["max_results"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Admissions","url":"https://example.edu/a","content":"Apply by Jan 15","score":0.9},
			{"title":"FAQ","url":"https://example.edu/b","content":"..."},
			{"title":"Extra","url":"https://example.edu/c","content":"..."}]}`))
	}))
	defer srv.Close()

	tool := New(config.WebSearchConfig{APIKey: "tv-key", BaseURL: srv.URL + "/"}, srv.Client())
	require.NotNil(t, tool)

	hits, err := tool.Search(context.Background(), "vcu cs admission deadline")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, Hit{Title: "Admissions", URL: "https://example.edu/a", Content: "Apply by Jan 15"}, hits[0])
}

func TestServerErrorBecomesToolFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	reg, err := tools.NewRegistry(New(config.WebSearchConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client()))
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolName, `{"query":"deadlines"}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "429")
}

func TestNetworkFailureBecomesToolFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reg, err := tools.NewRegistry(New(config.WebSearchConfig{APIKey: "k", BaseURL: url}, nil))
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolName, `{"query":"deadlines"}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "web search request failed")
}

func TestMissingQueryIsRejected(t *testing.T) {
	reg, err := tools.NewRegistry(New(config.WebSearchConfig{APIKey: "k"}, nil))
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolName, `{}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "missing required field: query")
}
