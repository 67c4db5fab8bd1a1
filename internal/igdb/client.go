package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the root of the upstream resource endpoints.
const DefaultBaseURL = "https://api.igdb.com/v4"

// Upstream collections used by this service.
const (
	ResourceGames    = "games"
	ResourceKeywords = "keywords"
)

// CatalogFields is the projection requested for catalog collections.
var CatalogFields = []string{"id", "name", "slug"}

// GameFields is the projection requested for game searches.
var GameFields = []string{
	"name", "cover", "genres", "summary", "rating",
	"first_release_date", "platforms", "language_supports",
}

// CredentialSource supplies the bearer credential and client identifier sent
// with every resource request.
type CredentialSource interface {
	GetToken(ctx context.Context) (Credential, error)
	ClientID() string
}

// ClientConfig holds configuration for the resource client.
type ClientConfig struct {
	// BaseURL is the upstream API root. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient performs requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client issues queries against upstream resource endpoints.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	creds   CredentialSource
}

// NewClient creates a new resource client.
func NewClient(creds CredentialSource, config ClientConfig) (*Client, error) {
	if creds == nil {
		return nil, errors.New("credential source is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", config.BaseURL)
	}

	return &Client{
		baseURL: u,
		client:  config.HTTPClient,
		creds:   creds,
	}, nil
}

// FetchPage fetches one page of a catalog collection. An empty result means
// there are no more pages. Ordering is not requested.
func (c *Client) FetchPage(ctx context.Context, resource string, offset, pageSize int) ([]CatalogItem, error) {
	q := Query{
		Fields: CatalogFields,
		Limit:  pageSize,
		Offset: offset,
	}

	var items []CatalogItem
	if err := c.Do(ctx, resource, q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Games runs a query against the games collection.
func (c *Client) Games(ctx context.Context, q Query) ([]Game, error) {
	var games []Game
	if err := c.Do(ctx, ResourceGames, q, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// Count returns the number of records in resource matching the where clause.
func (c *Client) Count(ctx context.Context, resource, where string) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.Do(ctx, resource+"/count", Query{Where: []string{where}}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Do posts the query to endpoint and decodes the JSON response into out.
// Credential failures are returned as *AuthError, everything else as
// *RequestError. Do does not retry.
func (c *Client) Do(ctx context.Context, endpoint string, q Query, out interface{}) error {
	cred, err := c.creds.GetToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(q.String()))
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Client-ID", c.creds.ClientID())
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Err: bodyError(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func bodyError(body []byte) error {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return errors.New("empty response body")
	}
	return errors.New(text)
}
