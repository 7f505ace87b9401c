// Package youtube is the upstream gateway to the YouTube Data API and the
// response types the rest of the service decodes.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// DefaultBaseURL is the YouTube Data API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// credentialParam is the query parameter carrying the API key.
const credentialParam = "key"

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && raw != "" {
			c.baseURL = u
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: api key required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    http.DefaultClient,
		baseURL: u,
		apiKey:  apiKey,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Response is a successful upstream answer. NotModified responses carry no
// body; the caller reuses what it already holds.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	ETag        string
	NotModified bool
}

// url builds the upstream URL. params must already be stripped of anything
// that should not leave the proxy; the credential is always set last.
func (c *Client) url(endpoint string, params url.Values) string {
	u := *c.baseURL
	u.Path = path.Join(u.Path, endpoint)
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(credentialParam, c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch issues GET <base>/<endpoint>?<params>&key=<apiKey>. When validator
// is set the request is conditional and a 304 is reported as NotModified.
// Any other non-2xx answer is returned as *UpstreamError carrying the
// upstream status, content type and body verbatim.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, validator string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if validator != "" {
		req.Header.Set("If-None-Match", validator)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, API key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("youtube: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && validator != "" {
		return &Response{
			StatusCode:  resp.StatusCode,
			ETag:        resp.Header.Get("ETag"),
			NotModified: true,
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube: read %s response: %w", endpoint, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Endpoint:    endpoint,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Body:        body,
		}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: contentType,
		ETag:        resp.Header.Get("ETag"),
	}, nil
}
