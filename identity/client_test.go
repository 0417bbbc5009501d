package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/attrgen/errors"
)

type fakeCatalog struct {
	identities []identityDocument
	tokens     atomic.Int32
	searches   atomic.Int32
	afters     [][]string
}

func (f *fakeCatalog) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v3/search", func(w http.ResponseWriter, r *http.Request) {
		f.searches.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"identities"}, req.Indices)
		f.afters = append(f.afters, req.SearchAfter)

		var page []identityDocument
		for _, d := range f.identities {
			if len(req.SearchAfter) == 1 && d.ID <= req.SearchAfter[0] {
				continue
			}
			if q, _ := req.Query["query"].(string); q == "id:"+d.ID || q == "*" {
				page = append(page, d)
			}
			if len(page) == 2 {
				break
			}
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/v3/public-identities-config", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attributes":[]}`))
	})
	mux.HandleFunc("/v3/sources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"src-9","name":"Generator","connectorAttributes":{"spConnectorInstanceId":"inst-1"}}]`))
	})
	return mux
}

func newTestClient(t *testing.T, catalog *fakeCatalog) *Client {
	t.Helper()
	server := httptest.NewServer(catalog.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), ClientConfig{
		BaseURL:      server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		PageSize:     2,
		AllowPrivate: true,
	})
	require.NoError(t, err)
	return client
}

func doc(id, name string, attrs map[string]any) identityDocument {
	return identityDocument{ID: id, Name: name, Attributes: attrs}
}

func TestClient_SearchPaginates(t *testing.T) {
	catalog := &fakeCatalog{identities: []identityDocument{
		doc("1", "a", map[string]any{"first": "A"}),
		doc("2", "b", nil),
		doc("3", "c", nil),
	}}
	client := newTestClient(t, catalog)

	found, err := client.Search(context.Background(), "*")
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "A", found[0].Attributes["first"])
	assert.Equal(t, "3", found[2].ID)

	assert.Equal(t, int32(2), catalog.searches.Load())
	assert.Equal(t, int32(1), catalog.tokens.Load(), "token is reused across pages")
	assert.Nil(t, catalog.afters[0])
	assert.Equal(t, []string{"2"}, catalog.afters[1])
}

func TestClient_Get(t *testing.T) {
	d := doc("7", "seven", map[string]any{"first": "S"})
	acct := accountDocument{AccountAttributes: map[string]any{"login": "s"}}
	acct.Source.ID = "src-9"
	d.Accounts = []accountDocument{acct}

	client := newTestClient(t, &fakeCatalog{identities: []identityDocument{d}})

	got, err := client.Get(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "seven", got.Name)
	assert.Equal(t, map[string]any{"login": "s"}, got.AccountOn("src-9"))
	assert.Nil(t, got.AccountOn("other"))

	_, err = client.Get(context.Background(), "8")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestClient_PingAndResolveSource(t *testing.T) {
	client := newTestClient(t, &fakeCatalog{})

	require.NoError(t, client.Ping(context.Background()))

	id, err := client.ResolveSourceID(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "src-9", id)

	_, err = client.ResolveSourceID(context.Background(), "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), ClientConfig{BaseURL: server.URL, AllowPrivate: true})
	require.NoError(t, err)

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{BaseURL: "ftp://example.com"})
	require.Error(t, err)
	assert.NotEmpty(t, errors.FlattenHints(err))
}
