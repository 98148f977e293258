package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("secret", WithBaseURL(srv.URL), WithRateLimit(0, 0))
}

func TestQueryDatabaseSendsFilterAndHeaders(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/databases/db1/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, APIVersion, r.Header.Get("Notion-Version"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		io.WriteString(w, `{"object":"list","results":[{"id":"p1","properties":{"Name":{"type":"title","title":[{"plain_text":"Hi"}]}}}],"has_more":false}`)
	})

	res, err := c.QueryDatabase(context.Background(), "db1", Query{
		Filter:   &Filter{And: []Filter{CheckboxEquals("Published", true), MultiSelectContains("Tags", "go")}},
		Sorts:    []Sort{{Property: "Date", Direction: Descending}},
		PageSize: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "p1", res.Results[0].ID)

	cell, ok := res.Results[0].Cell("Name")
	require.True(t, ok)
	assert.Equal(t, "Hi", cell.Title[0].PlainText)

	assert.EqualValues(t, 3, gotBody["page_size"])
	filter := gotBody["filter"].(map[string]any)
	and := filter["and"].([]any)
	require.Len(t, and, 2)
	assert.Equal(t, map[string]any{"property": "Published", "checkbox": map[string]any{"equals": true}}, and[0])
	assert.Equal(t, map[string]any{"property": "Tags", "multi_select": map[string]any{"contains": "go"}}, and[1])
}

func TestAPIErrorIsDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`)
	})

	_, err := c.RetrievePage(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Temporary())
	assert.Equal(t, "Could not find page", apiErr.Message)
}

func TestRateLimitedResponseIsTemporary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.ListBlockChildren(context.Background(), "p1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, http.StatusText(http.StatusTooManyRequests), apiErr.Message)
}

func TestListBlockChildrenKeepsRawBlocks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blocks/p1/children", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		io.WriteString(w, `{"results":[{"type":"paragraph","id":"b1"},{"type":"divider","id":"b2"}],"has_more":false}`)
	})

	blocks, err := c.ListBlockChildren(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.JSONEq(t, `{"type":"divider","id":"b2"}`, string(blocks[1]))
}

func TestMissingTokenRefusesToCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.QueryDatabase(context.Background(), "db1", Query{})
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, called)
}

func TestCellToleratesMalformedValues(t *testing.T) {
	p := Page{ID: "x", Properties: map[string]json.RawMessage{
		"Name": json.RawMessage(`{"title":"not-a-list"}`),
		"Date": json.RawMessage(`{"date":{"start":"2024-03-01"}}`),
	}}

	_, ok := p.Cell("Name")
	assert.False(t, ok)
	_, ok = p.Cell("Missing")
	assert.False(t, ok)

	date, ok := p.Cell("Date")
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", date.Date.Start)
}
