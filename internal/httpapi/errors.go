package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/translate"
)

// HTTPError is an error that carries its response status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError pairs an error with the status it should be reported as.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

func badRequest(err error) error {
	return StatusError{Code: http.StatusBadRequest, Err: err}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// statusFor maps service errors onto response codes.
func statusFor(err error) int {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	case errors.Is(err, translate.ErrNilSchema),
		errors.Is(err, translate.ErrNoLanguage),
		errors.Is(err, translate.ErrEmptyText),
		errors.Is(err, translate.ErrEmptyTranslation):
		return http.StatusBadRequest
	case errors.Is(err, translate.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		logging.Warnf("httpapi: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		logging.Errorf("httpapi: %v", err)
		message = http.StatusText(code)
	}
	writeJSON(w, code, errorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	if r.Body == nil {
		return badRequest(errors.New("httpapi: missing request body"))
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return StatusError{Code: http.StatusRequestEntityTooLarge, Err: err}
		}
		return badRequest(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return badRequest(fmt.Errorf("httpapi: decode request: %w", err))
	}
	return nil
}
