package zotxt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const doeItem = `{"publisher":"Cambridge University Press","publisher-place":"Cambridge","author":[{"given":"John","family":"Doe"}],"issued":{"date-parts":[["2005"]]},"title":"First Book","event-place":"Cambridge","type":"book","id":"doe:2005first","note":"bibtex: Doe2005"}`

// fakeZotxt serves /zotxt/items from a map of "keytype=key" to response body.
// Missing entries answer 400 like zotxt does for unknown keys.
func fakeZotxt(t *testing.T, items map[string]string) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zotxt/items" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		for kt, vals := range r.URL.Query() {
			if body, ok := items[kt+"="+vals[0]]; ok {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("No item found"))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), queries...)
	}
}

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithBaseURL(srv.URL + "/zotxt"), WithRateLimit(0)}, opts...)
	return NewClient(opts...)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()

	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.NotNil(t, c.limiter)
	assert.NotNil(t, c.logger)
}

func TestNewClient_WithOptions(t *testing.T) {
	hc := &http.Client{}
	c := NewClient(
		WithHTTPClient(hc),
		WithTimeout(3*time.Second),
		WithBaseURL("http://example:1/zotxt"),
	)

	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "http://example:1/zotxt", c.BaseURL())
}

func TestItemsURL(t *testing.T) {
	c := NewClient(WithBaseURL("http://localhost:23119/zotxt"))

	tests := []struct {
		keyType KeyType
		key     string
		want    string
	}{
		{KeyTypeEasyKey, "doe:2005first", "http://localhost:23119/zotxt/items?easykey=doe%3A2005first"},
		{KeyTypeBetterBibTeX, "Doe2005", "http://localhost:23119/zotxt/items?betterbibtexkey=Doe2005"},
		{KeyTypeEasyKey, "hüning:2012foo", "http://localhost:23119/zotxt/items?easykey=h%C3%BCning%3A2012foo"},
		{KeyTypeEasyKey, "a b&c", "http://localhost:23119/zotxt/items?easykey=a+b%26c"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, c.itemsURL(tt.keyType, tt.key))
		})
	}
}

func TestFetch_Match(t *testing.T) {
	srv, queries := fakeZotxt(t, map[string]string{
		"easykey=doe:2005first": "[" + doeItem + `,{"id":"other"}]`,
	})
	c := newTestClient(srv)

	rec, err := c.Fetch(context.Background(), KeyTypeEasyKey, "doe:2005first")
	require.NoError(t, err)
	assert.Equal(t, "First Book", rec["title"])
	assert.Equal(t, "doe:2005first", rec.ID())
	assert.Equal(t, []string{"easykey=doe%3A2005first"}, queries())
}

func TestFetch_NonASCIIKey(t *testing.T) {
	srv, _ := fakeZotxt(t, map[string]string{
		"easykey=hüning:2012foo": `[{"id":"hüning:2012foo","title":"Wortbildung im niederländisch-deutschen Sprachvergleich"}]`,
	})
	c := newTestClient(srv)

	rec, err := c.Fetch(context.Background(), KeyTypeEasyKey, "hüning:2012foo")
	require.NoError(t, err)
	assert.Equal(t, "Wortbildung im niederländisch-deutschen Sprachvergleich", rec["title"])
}

func TestFetch_PreservesNumbers(t *testing.T) {
	srv, _ := fakeZotxt(t, map[string]string{
		"easykey=roe": `[{"id":"x","issued":{"date-parts":[[2005,3]]}}]`,
	})
	c := newTestClient(srv)

	rec, err := c.Fetch(context.Background(), KeyTypeEasyKey, "roe")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(rec["issued"]))
	assert.JSONEq(t, `{"date-parts":[[2005,3]]}`, buf.String())
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"empty array", http.StatusOK, `[]`, ErrNotFound},
		{"null", http.StatusOK, `null`, ErrNotFound},
		{"bad request", http.StatusBadRequest, `no item`, ErrNotFound},
		{"not found", http.StatusNotFound, ``, ErrNotFound},
		{"not json", http.StatusOK, `<html>`, ErrInvalidResponse},
		{"object instead of array", http.StatusOK, `{"id":"x"}`, ErrInvalidResponse},
		{"array of strings", http.StatusOK, `["ABCD1234"]`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Fetch(context.Background(), KeyTypeEasyKey, "k")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Fetch(context.Background(), KeyTypeEasyKey, "k")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "error = %v, want *APIError", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "boom")
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(base+"/zotxt"), WithRateLimit(0))
	_, err := c.Fetch(context.Background(), KeyTypeEasyKey, "k")
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestFetch_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := newTestClient(srv, WithTimeout(50*time.Millisecond))
	_, err := c.Fetch(context.Background(), KeyTypeEasyKey, "k")
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestLookup_CollapsesFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("easykey") {
		case "missing":
			w.Write([]byte(`[]`))
		case "broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.Write([]byte(`[` + doeItem + `]`))
		}
	}))
	defer srv.Close()
	c := newTestClient(srv, WithLogger(zap.New(core)))
	ctx := context.Background()

	got := c.Lookup(ctx, KeyTypeEasyKey, "doe:2005first")
	require.True(t, got.Found())
	assert.Equal(t, "First Book", got.Record()["title"])

	missing := c.Lookup(ctx, KeyTypeEasyKey, "missing")
	assert.False(t, missing.Found())
	assert.Nil(t, missing.Record())

	broken := c.Lookup(ctx, KeyTypeEasyKey, "broken")
	assert.False(t, broken.Found())

	warnings := logs.FilterMessage("lookup failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "broken", warnings[0].ContextMap()["key"])
	assert.Equal(t, "easykey", warnings[0].ContextMap()["key_type"])
	assert.Equal(t, 1, logs.FilterMessage("no match").Len())
}

func TestLookup_CancelledContext(t *testing.T) {
	srv, _ := fakeZotxt(t, map[string]string{"easykey=a": "[" + doeItem + "]"})
	c := newTestClient(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, c.Lookup(ctx, KeyTypeEasyKey, "a").Found())
}

func TestParseKeyType(t *testing.T) {
	tests := []struct {
		input   string
		want    KeyType
		wantErr bool
	}{
		{"easykey", KeyTypeEasyKey, false},
		{"betterbibtexkey", KeyTypeBetterBibTeX, false},
		{"alternate-key", KeyTypeBetterBibTeX, false},
		{"betterbibtex", KeyTypeBetterBibTeX, false},
		{"key", KeyTypeItemKey, false},
		{"doi", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKeyType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_WithID(t *testing.T) {
	orig := Record{"id": "Doe2005-alt", "title": "First Book"}

	stamped := orig.WithID("Doe2005")
	assert.Equal(t, "Doe2005", stamped.ID())
	assert.Equal(t, "First Book", stamped["title"])
	assert.Equal(t, "Doe2005-alt", orig.ID(), "original record must not change")

	assert.Equal(t, "", Record{"id": 7}.ID())
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 503, Message: "busy"}
	assert.True(t, strings.Contains(err.Error(), "503"))
	assert.False(t, IsNotFound(err))
}
