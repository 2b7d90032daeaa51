package remote

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends key in the request body as api_key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithSourceLanguage fixes the source language instead of "auto".
func WithSourceLanguage(lang string) Option {
	return func(c *Client) {
		if code := targetCode(lang); code != "" {
			c.source = code
		}
	}
}

// WithFormat selects "text" or "html".
func WithFormat(format string) Option {
	return func(c *Client) {
		switch format {
		case "text", "html":
			c.format = format
		}
	}
}

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each attempt. Zero disables the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithRetries sets how many times a temporary failure is retried.
func WithRetries(retries int, backoff time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[name] = value
	}
}

// WithLogger routes retry logs.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
