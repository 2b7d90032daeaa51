// Package remote is an HTTP client for LibreTranslate-compatible machine
// translation endpoints. *Client satisfies translate.Translator.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/internal/logging"
)

const (
	defaultTimeout = 10 * time.Second
	defaultBackoff = 250 * time.Millisecond
	maxResponse    = 1 << 20
)

// StatusError reports a non-2xx answer from the translation endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Code, msg)
}

// StatusCode returns the HTTP status.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Temporary reports whether the request may succeed when retried.
func (e StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Client posts {q, source, target, format} to {base}/translate and reads
// {translatedText}.
type Client struct {
	endpoint   string
	apiKey     string
	source     string
	format     string
	headers    map[string]string
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	logger     logrus.FieldLogger
}

// New builds a Client for baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("remote: base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", parsed.Scheme)
	}

	c := &Client{
		endpoint:   strings.TrimRight(parsed.String(), "/") + "/translate",
		source:     "auto",
		format:     "text",
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		backoff:    defaultBackoff,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.Or(c.logger)
	return c, nil
}

// Translate sends text to the endpoint. Responses with status 429 or 5xx are
// retried up to the configured count, waiting backoff*attempt between tries.
func (c *Client) Translate(ctx context.Context, text, lang string) (string, error) {
	target := targetCode(lang)
	if target == "" {
		return "", errors.New("remote: target language is required")
	}
	payload, err := json.Marshal(request{
		Q:      text,
		Source: c.source,
		Target: target,
		Format: c.format,
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("remote: encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(attempt)
			c.logger.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).
				WithError(lastErr).
				Debug("remote: retrying translation")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		out, err := c.do(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var status StatusError
		if !errors.As(err, &status) || !status.Temporary() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote: send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return "", fmt.Errorf("remote: read response: %w", err)
	}

	var decoded response
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decoded.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("remote: decode response: %w", decodeErr)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("remote: %s", decoded.Error)
	}
	return decoded.TranslatedText, nil
}

// targetCode reduces a BCP 47 tag to what LibreTranslate expects: the base
// language, keeping a script subtag ("zh-Hant") when present.
func targetCode(lang string) string {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return ""
	}
	parts := strings.Split(lang, "-")
	base := strings.ToLower(parts[0])
	if len(parts) > 1 && len(parts[1]) == 4 {
		script := strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
		return base + "-" + script
	}
	return base
}
