package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions returns a test server answering every chat request
// with the given assistant content, and records the last request body.
func fakeCompletions(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	last := &chatRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(last))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.ModelName())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv)
	_, err := c.complete(context.Background(), []chatMessage{{Role: "user", Content: "hi"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv)
	_, err := c.complete(context.Background(), []chatMessage{{Role: "user", Content: "hi"}}, 0)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n[]\n```", `[]`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestMimeOf(t *testing.T) {
	assert.Equal(t, "application/pdf", mimeOf("a.PDF"))
	assert.Equal(t, "image/png", mimeOf("a.png"))
	assert.Equal(t, "image/jpeg", mimeOf("a.jpg"))
	assert.Equal(t, "image/tiff", mimeOf("a.tif"))
}
