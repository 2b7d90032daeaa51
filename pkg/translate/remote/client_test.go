package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/translate/remote"
)

type captured struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key"`
}

func TestClient_Translate(t *testing.T) {
	t.Parallel()

	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/translate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "regform", r.Header.Get("X-Client"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"Purpose of visit"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL+"/v1/",
		remote.WithAPIKey("secret"),
		remote.WithSourceLanguage("vi"),
		remote.WithHeader("X-Client", "regform"),
		remote.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	out, err := client.Translate(context.Background(), "Mục đích tham quan", "en-US")
	require.NoError(t, err)
	require.Equal(t, "Purpose of visit", out)
	require.Equal(t, captured{
		Q:      "Mục đích tham quan",
		Source: "vi",
		Target: "en",
		Format: "text",
		APIKey: "secret",
	}, got)
}

func TestClient_RetriesTemporaryFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"translatedText":"Other"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL,
		remote.WithRetries(2, time.Millisecond),
		remote.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	out, err := client.Translate(context.Background(), "Khác", "en")
	require.NoError(t, err)
	require.Equal(t, "Other", out)
	require.EqualValues(t, 3, attempts.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"xx is not supported"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL, remote.WithRetries(3, time.Millisecond), remote.WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = client.Translate(context.Background(), "Khác", "xx")
	require.Error(t, err)

	var status remote.StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusBadRequest, status.StatusCode())
	require.Contains(t, status.Error(), "xx is not supported")
	require.False(t, status.Temporary())
	require.EqualValues(t, 1, attempts.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL, remote.WithRetries(1, time.Millisecond), remote.WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = client.Translate(context.Background(), "Khác", "en")
	var status remote.StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusBadGateway, status.Code)
	require.True(t, status.Temporary())
}

func TestClient_HonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL, remote.WithTimeout(20*time.Millisecond), remote.WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = client.Translate(context.Background(), "Khác", "en")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RejectsBadURLs(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "ftp://example.com", "://bad"} {
		_, err := remote.New(raw)
		require.Error(t, err, raw)
	}
}
