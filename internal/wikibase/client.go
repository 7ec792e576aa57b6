// Package wikibase is a small client for the MediaWiki Action API as exposed
// by Wikimedia Commons and Wikidata: depiction search, structured-data edits,
// captions, thumbnails and category search.
//
// Responses are read with gjson rather than full struct decoding because the
// API nests results under dynamic keys (entity IDs, language codes).
package wikibase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	apiPath = "/w/api.php"

	// DefaultUserAgent identifies the client as Wikimedia's API etiquette asks.
	DefaultUserAgent = "commons-depicts/1.0 (https://commons.wikimedia.org)"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// APIError is returned when the API answers with a non-2xx status or with an
// {"error": {...}} body.
type APIError struct {
	Status int
	Code   string
	Info   string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("wikibase: %s: %s", e.Code, e.Info)
	default:
		return fmt.Sprintf("wikibase: unexpected HTTP status %d", e.Status)
	}
}

// Client talks to a Commons and a Wikidata API endpoint.
// It is safe for concurrent use.
type Client struct {
	commonsURL  string
	wikidataURL string
	http        *http.Client
	userAgent   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (15s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// New returns a Client for the given site roots, e.g.
// "https://commons.wikimedia.org" and "https://www.wikidata.org".
func New(commonsURL, wikidataURL string, opts ...Option) *Client {
	c := &Client{
		commonsURL:  strings.TrimRight(commonsURL, "/"),
		wikidataURL: strings.TrimRight(wikidataURL, "/"),
		http:        &http.Client{Timeout: 15 * time.Second},
		userAgent:   DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a GET against site's api.php with params plus format=json.
func (c *Client) get(ctx context.Context, site string, params url.Values) (gjson.Result, error) {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site+apiPath+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.do(req)
}

// postForm issues a form-encoded POST against site's api.php.
func (c *Client) postForm(ctx context.Context, site string, form url.Values) (gjson.Result, error) {
	form.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, site+apiPath, strings.NewReader(form.Encode()))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (gjson.Result, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return gjson.Result{}, &APIError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON response from %s", req.URL.Host)
	}

	res := gjson.ParseBytes(body)
	if apiErr := res.Get("error"); apiErr.Exists() {
		return gjson.Result{}, &APIError{
			Status: resp.StatusCode,
			Code:   apiErr.Get("code").String(),
			Info:   apiErr.Get("info").String(),
		}
	}
	return res, nil
}

// fileTitle returns name in the File: namespace.
func fileTitle(name string) string {
	if strings.HasPrefix(name, "File:") {
		return name
	}
	return "File:" + name
}
