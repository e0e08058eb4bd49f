package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/cache"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/metrics"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
	"golang.org/x/oauth2"
)

const (
	acceptHeader  = "application/vnd.github+json"
	versionHeader = "X-GitHub-Api-Version"
)

// StatusError is returned for any non-2xx answer from the API other than a
// missing gist on read.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL    string
	APIVersion string
	Token      string
	GistID     string
	// HTTPClient is the transport the bearer token is layered on. Nil means
	// a fresh client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	Cache      *cache.Cache
	CacheTTL   time.Duration
}

// Client reads and writes the files of a single gist. Gists have no
// conditional write, so updates are last-writer-wins.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	id         string
	cache      *cache.Cache
	cacheTTL   time.Duration
}

type gistResponse struct {
	ID      string               `json:"id"`
	Files   map[string]*gistFile `json:"files"`
	History []gistHistory        `json:"history"`
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistHistory struct {
	Version string `json:"version"`
}

type updateRequest struct {
	Files map[string]updateFile `json:"files"`
}

type updateFile struct {
	Content string `json:"content"`
}

func New(ctx context.Context, cfg Config) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	httpClient := base
	if cfg.Token != "" {
		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(tokenCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
		httpClient.Timeout = base.Timeout
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		id:         cfg.GistID,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
	}
}

func (c *Client) GetContent(ctx context.Context, fileName string) (storage.Document, error) {
	start := time.Now()
	document, err := c.getContent(ctx, fileName)
	metrics.ObserveStore(storage.TypeGist, metrics.StoreOperationGet, time.Since(start).Seconds(), err)
	return document, err
}

func (c *Client) getContent(ctx context.Context, fileName string) (storage.Document, error) {
	gist, err := c.get(ctx)
	if err != nil {
		return storage.Document{}, err
	}
	if gist == nil || gist.Files == nil {
		return storage.Document{}, nil
	}

	file, exists := gist.Files[fileName]
	if !exists || file == nil {
		return storage.Document{}, nil
	}

	if file.Truncated && file.RawURL != "" {
		content, err := c.raw(ctx, file.RawURL)
		if err != nil {
			return storage.Document{}, err
		}
		return storage.Document{Content: content}, nil
	}

	return storage.Document{Content: file.Content}, nil
}

func (c *Client) UpdateContent(ctx context.Context, fileName string, content string) (storage.Ack, error) {
	start := time.Now()
	ack, err := c.updateContent(ctx, fileName, content)
	metrics.ObserveStore(storage.TypeGist, metrics.StoreOperationUpdate, time.Since(start).Seconds(), err)
	return ack, err
}

func (c *Client) updateContent(ctx context.Context, fileName string, content string) (storage.Ack, error) {
	body, err := json.Marshal(updateRequest{
		Files: map[string]updateFile{fileName: {Content: content}},
	})
	if err != nil {
		return storage.Ack{}, fmt.Errorf("failed to marshal gist update: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.gistURL(), bytes.NewReader(body))
	if err != nil {
		return storage.Ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storage.Ack{}, fmt.Errorf("failed to update gist %v: %w", c.id, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.Ack{}, fmt.Errorf("failed to read gist %v update response: %w", c.id, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return storage.Ack{}, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if c.cache != nil {
		c.cache.Delete(c.gistURL())
	}

	var gist gistResponse
	if err := json.Unmarshal(respBody, &gist); err != nil {
		return storage.Ack{}, fmt.Errorf("error parsing JSON response: %w", err)
	}

	var ack storage.Ack
	if len(gist.History) > 0 {
		ack.Version = gist.History[0].Version
	}
	log.Debugf("Gist %v file %v updated, version %v", c.id, fileName, ack.Version)
	return ack, nil
}

// get fetches the gist. A nil response with a nil error means the gist does
// not exist.
func (c *Client) get(ctx context.Context) (*gistResponse, error) {
	endpoint := c.gistURL()

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	cached, hasCached := c.cached(endpoint)
	if hasCached {
		req.Header.Set("If-None-Match", cached.ETag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get gist %v: %w", c.id, err)
	}
	defer resp.Body.Close()

	var body []byte
	switch {
	case resp.StatusCode == http.StatusNotModified && hasCached:
		log.Debugf("Gist %v not modified, using cached body", c.id)
		body = cached.Body
	case resp.StatusCode == http.StatusNotFound:
		log.Debugf("Gist %v not found", c.id)
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read gist %v: %w", c.id, err)
		}
		if etag := resp.Header.Get("ETag"); etag != "" && c.cache != nil {
			c.cache.Set(endpoint, cache.ConditionalRecord{ETag: etag, Body: body}, c.cacheTTL)
		}
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gist gistResponse
	if err := json.Unmarshal(body, &gist); err != nil {
		return nil, fmt.Errorf("error parsing JSON response: %w", err)
	}

	return &gist, nil
}

func (c *Client) raw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create raw request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get raw gist file: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read raw gist file: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}

func (c *Client) cached(endpoint string) (cache.ConditionalRecord, bool) {
	if c.cache == nil {
		return cache.ConditionalRecord{}, false
	}

	value, exists := c.cache.Get(endpoint)
	if !exists {
		return cache.ConditionalRecord{}, false
	}

	record, ok := value.(cache.ConditionalRecord)
	return record, ok
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set(versionHeader, c.apiVersion)
	return req, nil
}

func (c *Client) gistURL() string {
	return c.baseURL + "/gists/" + url.PathEscape(c.id)
}
