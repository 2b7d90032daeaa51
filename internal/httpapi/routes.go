// Package httpapi exposes translation, visibility and migration over HTTP.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/pkg/translate"
)

// NewRouter builds the full HTTP surface with the API mounted under the
// configured base path.
func NewRouter(svc *translate.Service, fns ...OptionFn) (http.Handler, error) {
	opts := NewOptions(fns...)

	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, requestLogger(opts.Logger), middleware.Recoverer)
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if _, err := RegisterRoutesWithOptions(root, svc, opts); err != nil {
		return nil, err
	}
	return root, nil
}

// RegisterRoutes mounts the API on r and returns the mount path.
func RegisterRoutes(r chi.Router, svc *translate.Service, fns ...OptionFn) (string, error) {
	return RegisterRoutesWithOptions(r, svc, NewOptions(fns...))
}

// RegisterRoutesWithOptions mounts the API using a pre-built Options value.
// Callers are expected to pass an Options value produced by NewOptions so
// defaults apply.
func RegisterRoutesWithOptions(r chi.Router, svc *translate.Service, opts Options) (string, error) {
	if r == nil {
		return "", fmt.Errorf("httpapi: missing router")
	}
	if svc == nil {
		return "", fmt.Errorf("httpapi: missing translation service")
	}
	opts = NewOptions(func(o *Options) { *o = opts })
	a := &api{svc: svc, opts: opts}

	sub := chi.NewRouter()
	sub.Get("/event", a.event)
	sub.Post("/translate", a.translateEvent)
	sub.Post("/translate/text", a.translateText)
	sub.Post("/visibility", a.visibility)
	sub.Post("/migrate", a.migrate)
	sub.Route("/translations", func(tr chi.Router) {
		tr.Get("/suggestions", a.suggestions)
		tr.Get("/custom", a.listCustom)
		tr.Get("/cache", a.cacheStats)
		tr.Group(func(admin chi.Router) {
			admin.Use(a.guard)
			admin.Post("/custom", a.addCustom)
			admin.Delete("/custom", a.removeCustom)
			admin.Delete("/cache", a.clearCache)
		})
	})

	pattern := MountPath(opts.BasePath)
	r.Mount(pattern, sub)
	return pattern, nil
}

// MountPath normalizes a base path into a chi mount pattern.
func MountPath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/")
}

func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Debug("httpapi: request")
		})
	}
}
