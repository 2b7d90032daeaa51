package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tsxcorp/go-regform/internal/app"
	"github.com/tsxcorp/go-regform/internal/config"
	"github.com/tsxcorp/go-regform/internal/httpapi"
	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

func main() {
	fs := flag.NewFlagSet("regform-server", flag.ExitOnError)
	adminToken := fs.String("admin-token", os.Getenv("REGFORM_ADMIN_TOKEN"), "bearer token required for override and cache administration")
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		logging.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		logging.Fatalf("startup: %v", err)
	}
	defer a.Close()

	var event *schema.EventSchema
	if strings.TrimSpace(cfg.Schema) != "" {
		event, err = a.LoadEvent(ctx, "")
		if err != nil {
			logging.Fatalf("startup: %v", err)
		}
	}

	options := []httpapi.OptionFn{
		httpapi.WithEvent(event),
		httpapi.WithLogger(logging.Logger),
	}
	if token := strings.TrimSpace(*adminToken); token != "" {
		options = append(options, httpapi.WithGuard(httpapi.BearerGuard(token)))
	} else {
		logging.Warnf("no admin token set, override administration is open")
	}
	handler, err := httpapi.NewRouter(a.Translator, options...)
	if err != nil {
		logging.Fatalf("startup: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logging.Errorf("shutdown: %v", err)
		}
	}()

	logging.Infof("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatalf("serve: %v", err)
	}
}
