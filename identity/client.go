package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/internal/httpclient"
	"github.com/teranos/attrgen/logger"
)

const (
	// TokenPath is appended to the origin of the base URL.
	TokenPath = "/oauth/token"

	searchPath       = "/v3/search"
	sourcesPath      = "/v3/sources"
	publicConfigPath = "/v3/public-identities-config"

	identitiesIndex = "identities"

	DefaultPageSize = 250
)

// ClientConfig configures the HTTP catalog client.
type ClientConfig struct {
	BaseURL           string
	ClientID          string
	ClientSecret      string
	RequestsPerMinute int
	Timeout           time.Duration
	PageSize          int

	// AllowPrivate lets the client reach loopback or private hosts.
	AllowPrivate bool
}

// Client talks to the identity catalog API with client-credentials auth.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	pageSize int
	logger   *zap.SugaredLogger
}

// NewClient builds a catalog client. The token endpoint is derived from the
// origin of cfg.BaseURL.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	base, err := httpclient.CheckURL(cfg.BaseURL, cfg.AllowPrivate)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "invalid source.base_url"),
			"set source.base_url to the API base, e.g. https://tenant.api.example.com",
		)
	}

	transport := httpclient.New(httpclient.Options{
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		AllowPrivate:      cfg.AllowPrivate,
	})

	origin := base.Scheme + "://" + base.Host
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     origin + TokenPath,
	}
	authed := creds.Client(context.WithValue(ctx, oauth2.HTTPClient, transport))
	authed.Timeout = transport.Timeout

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		baseURL:  base,
		http:     authed,
		pageSize: pageSize,
		logger:   logger.ComponentLogger("identity.client"),
	}, nil
}

type searchRequest struct {
	Indices       []string       `json:"indices"`
	Query         map[string]any `json:"query"`
	Sort          []string       `json:"sort"`
	IncludeNested bool           `json:"includeNested"`
	SearchAfter   []string       `json:"searchAfter,omitempty"`
}

type identityDocument struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]any    `json:"attributes"`
	Accounts   []accountDocument `json:"accounts"`
}

type accountDocument struct {
	Source struct {
		ID string `json:"id"`
	} `json:"source"`
	AccountAttributes map[string]any `json:"accountAttributes"`
}

func (d identityDocument) toIdentity() Identity {
	id := Identity{ID: d.ID, Name: d.Name, Attributes: d.Attributes}
	for _, a := range d.Accounts {
		id.Accounts = append(id.Accounts, AccountRef{SourceID: a.Source.ID, Attributes: a.AccountAttributes})
	}
	return id
}

// Search runs query against the identities index, following searchAfter
// pagination until a short page is returned.
func (c *Client) Search(ctx context.Context, query string) ([]Identity, error) {
	var out []Identity
	var after []string

	for page := 0; ; page++ {
		body := searchRequest{
			Indices:       []string{identitiesIndex},
			Query:         map[string]any{"query": query},
			Sort:          []string{"id"},
			IncludeNested: true,
			SearchAfter:   after,
		}

		params := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
		var docs []identityDocument
		if err := c.do(ctx, http.MethodPost, searchPath, params, body, &docs); err != nil {
			return nil, errors.Wrapf(err, "search %q (page %d)", query, page)
		}

		for _, d := range docs {
			out = append(out, d.toIdentity())
		}
		if len(docs) < c.pageSize {
			break
		}
		after = []string{docs[len(docs)-1].ID}
	}

	c.logger.Debugw("Search complete", "query", query, logger.FieldCount, len(out))
	return out, nil
}

// Get looks an identity up by id through the search index.
func (c *Client) Get(ctx context.Context, id string) (*Identity, error) {
	found, err := c.Search(ctx, "id:"+id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.NewNotFoundError("identity %s", id)
	}
	return &found[0], nil
}

// Ping fetches the public identity configuration, which needs a valid token.
func (c *Client) Ping(ctx context.Context) error {
	var cfg map[string]any
	if err := c.do(ctx, http.MethodGet, publicConfigPath, nil, nil, &cfg); err != nil {
		return errors.Wrap(err, "identity catalog unreachable")
	}
	return nil
}

type sourceDocument struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	ConnectorAttributes map[string]any `json:"connectorAttributes"`
}

// ResolveSourceID finds the source whose connector instance id matches
// instanceID. Accounts held on that source are the ones this connector owns.
func (c *Client) ResolveSourceID(ctx context.Context, instanceID string) (string, error) {
	for offset := 0; ; offset += c.pageSize {
		params := url.Values{
			"limit":  {strconv.Itoa(c.pageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		var sources []sourceDocument
		if err := c.do(ctx, http.MethodGet, sourcesPath, params, nil, &sources); err != nil {
			return "", errors.Wrap(err, "list sources")
		}
		for _, s := range sources {
			if v, _ := s.ConnectorAttributes["spConnectorInstanceId"].(string); v == instanceID {
				c.logger.Debugw("Resolved source", "source_id", s.ID, "source_name", s.Name)
				return s.ID, nil
			}
		}
		if len(sources) < c.pageSize {
			break
		}
	}
	return "", errors.NewNotFoundError("no source with connector instance %s", instanceID)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	u := c.baseURL.JoinPath(path)
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrServiceUnavailable), "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.Debugw("Catalog request",
		"method", method,
		logger.FieldPath, path,
		"status", resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewNotFoundError("%s %s", method, path)
	}
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WithDetail(
			errors.Newf("%s %s: unexpected status %d", method, path, resp.StatusCode),
			strings.TrimSpace(string(snippet)),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
