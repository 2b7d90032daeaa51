package httpapi_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsxcorp/go-regform/internal/httpapi"
	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/testsupport"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/translate/store"
)

func newServer(t *testing.T, fns ...httpapi.OptionFn) (*httptest.Server, *testsupport.RecordingTranslator) {
	t.Helper()
	tr := &testsupport.RecordingTranslator{}
	svc := translate.New(
		translate.WithTranslator(tr),
		translate.WithStore(store.NewMemory(nil)),
		translate.WithLogger(logging.Discard()),
	)
	options := append([]httpapi.OptionFn{
		httpapi.WithEvent(testsupport.AW2025(t)),
		httpapi.WithLogger(logging.Discard()),
	}, fns...)
	handler, err := httpapi.NewRouter(svc, options...)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, tr
}

func do(t *testing.T, method, target string, body any, header ...string) (*http.Response, []byte) {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

type translated struct {
	Event struct {
		Name     string `json:"name"`
		Language string `json:"language"`
		Fields   []struct {
			FieldID string `json:"field_id"`
			Label   string `json:"label"`
		} `json:"form_fields"`
	} `json:"event"`
	Report translate.Report `json:"report"`
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestEvent_Translated(t *testing.T) {
	t.Parallel()
	srv, tr := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/event?lang=en", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got translated
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "en", got.Event.Language)
	assert.Equal(t, "[en] Automation World 2025", got.Event.Name)
	assert.Equal(t, "Full name", got.Event.Fields[0].Label)
	assert.Equal(t, "en", got.Report.Language)
	assert.Equal(t, 1, tr.Calls("Automation World 2025", "en"))

	resp, body = do(t, http.MethodGet, srv.URL+"/api/event", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Report.SameLanguage)
	assert.Equal(t, "Họ và tên", got.Event.Fields[0].Label)
}

func TestTranslate_Errors(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/translate", map[string]string{"language": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/translate", strings.NewReader("{not json"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/translate/text", map[string]string{"text": "Khác", "language": "en"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"text":"[en] Khác","origin":"remote"}`, string(body))
}

func TestTranslate_BodyLimit(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, httpapi.WithMaxBodyBytes(64))

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/translate/text", map[string]string{
		"text":     strings.Repeat("x", 256),
		"language": "en",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestVisibility(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	type result struct {
		Fields   map[string]bool `json:"fields"`
		Sections map[string]bool `json:"sections"`
		Visible  []string        `json:"visible"`
		Hidden   []string        `json:"hidden"`
		Unbound  []string        `json:"unbound"`
	}

	for name, body := range map[string]any{
		"by id":    map[string]any{"answers": map[string]any{"aw2025_purpose": "Khác"}},
		"by label": map[string]any{"label_answers": map[string]any{"Mục đích tham quan": "Khác", "Ghost": "x"}},
	} {
		resp, raw := do(t, http.MethodPost, srv.URL+"/api/visibility", body)
		require.Equal(t, http.StatusOK, resp.StatusCode, name)

		var got result
		require.NoError(t, json.Unmarshal(raw, &got), name)
		assert.True(t, got.Fields["aw2025_purpose_other"], name)
		assert.False(t, got.Fields["aw2025_group_size"], name)
		assert.False(t, got.Sections["Kết nối giao thương"], name)
		assert.Contains(t, got.Visible, "full_name", name)
		assert.Contains(t, got.Hidden, "company_name", name)
	}

	resp, raw := do(t, http.MethodPost, srv.URL+"/api/visibility", map[string]any{
		"label_answers": map[string]any{"Ghost": "x"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got result
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"Ghost"}, got.Unbound)
}

func TestMigrate(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	resp, raw := do(t, http.MethodPost, srv.URL+"/api/migrate", map[string]any{
		"old_fields": []map[string]string{{"field_id": "full_name", "label": "Họ và tên"}, {"field_id": "gone", "label": "Cũ"}},
		"new_fields": []map[string]string{{"field_id": "full_name", "label": "Full name"}},
		"answers":    map[string]any{"Họ và tên": "An", "Cũ": "x"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Answers map[string]any `json:"answers"`
		Report  struct {
			Moved   []map[string]string `json:"moved"`
			Dropped []map[string]any    `json:"dropped"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{"Full name": "An"}, got.Answers)
	assert.Len(t, got.Report.Moved, 1)
	assert.Len(t, got.Report.Dropped, 1)
}

func TestCustomTranslations(t *testing.T) {
	t.Parallel()
	guard := httpapi.WithGuard(func(r *http.Request) error {
		if r.Header.Get("X-Admin") != "yes" {
			return httpapi.StatusError{Code: http.StatusUnauthorized}
		}
		return nil
	})
	srv, _ := newServer(t, guard)
	entry := map[string]string{"text": "Khác", "language": "EN", "value": "<i>Other</i>"}

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/translations/custom", entry)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := do(t, http.MethodPost, srv.URL+"/api/translations/custom", entry, "X-Admin", "yes")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"text":"Khác","lang":"en","value":"Other"}`, string(raw))

	resp, raw = do(t, http.MethodGet, srv.URL+"/api/translations/custom", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":[{"text":"Khác","lang":"en","value":"Other"}]}`, string(raw))

	query := url.Values{"text": {"Khác"}, "lang": {"en"}}.Encode()
	resp, raw = do(t, http.MethodGet, srv.URL+"/api/translations/suggestions?"+query, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var suggestions struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &suggestions))
	require.NotEmpty(t, suggestions.Data)
	assert.Equal(t, "Other", suggestions.Data[0])

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/translations/custom?"+query, nil, "X-Admin", "yes")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/translations/custom?"+query, nil, "X-Admin", "yes")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/translations/suggestions?text=Kh%C3%A1c", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCache(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/event?lang=en", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := do(t, http.MethodGet, srv.URL+"/api/translations/cache", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats translate.Stats
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Greater(t, stats.Entries, 0)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/translations/cache", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, raw = do(t, http.MethodGet, srv.URL+"/api/translations/cache", nil)
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Zero(t, stats.Entries)
}

func TestMountPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/", httpapi.MountPath(""))
	assert.Equal(t, "/", httpapi.MountPath("/"))
	assert.Equal(t, "/v1/forms", httpapi.MountPath("v1/forms/"))
}

func TestBearerGuard(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, httpapi.WithGuard(httpapi.BearerGuard("s3cret")))
	target := srv.URL + "/api/translations/cache"

	for name, header := range map[string]string{
		"missing":   "",
		"wrong":     "Bearer s3cre",
		"no scheme": "s3cret",
		"longer":    "Bearer s3cret-and-more",
	} {
		resp, _ := do(t, http.MethodDelete, target, nil, "Authorization", header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}

	resp, _ := do(t, http.MethodDelete, target, nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
