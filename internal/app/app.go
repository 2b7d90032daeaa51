// Package app wires configuration into the running components shared by the
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	regform "github.com/tsxcorp/go-regform"
	"github.com/tsxcorp/go-regform/internal/config"
	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/translate/remote"
	"github.com/tsxcorp/go-regform/pkg/translate/store"
)

// SamplePrefix selects a bundled sample schema instead of a path or URL.
const SamplePrefix = "sample:"

// App holds the wired components.
type App struct {
	Config     config.Config
	Translator *translate.Service
	Logger     logrus.FieldLogger

	store translate.OverrideStore
}

// New builds the translation stack from cfg: the remote client when a URL is
// configured and the override store named by cfg.Overrides.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*App, error) {
	logger = logging.Or(logger)

	overrides, err := store.Open(ctx, cfg.Overrides)
	if err != nil {
		return nil, fmt.Errorf("app: open override store: %w", err)
	}

	options := []translate.Option{
		translate.WithStore(overrides),
		translate.WithLogger(logger),
		translate.WithWorkers(cfg.Workers),
		translate.WithPersistRemote(cfg.PersistRemote),
	}
	if strings.TrimSpace(cfg.TranslateURL) != "" {
		client, err := remote.New(cfg.TranslateURL,
			remote.WithAPIKey(cfg.TranslateKey),
			remote.WithTimeout(cfg.TranslateTimeout),
			remote.WithRetries(cfg.TranslateRetries, 0),
			remote.WithLogger(logger),
		)
		if err != nil {
			closeStore(overrides)
			return nil, fmt.Errorf("app: translation client: %w", err)
		}
		options = append(options, translate.WithTranslator(client))
	} else {
		logger.Info("app: no translation endpoint configured, untranslated strings keep the source language")
	}

	return &App{
		Config:     cfg,
		Translator: translate.New(options...),
		Logger:     logger,
		store:      overrides,
	}, nil
}

// LoadEvent loads the configured schema, or location when non-empty.
// "sample:<name>" reads a bundled sample.
func (a *App) LoadEvent(ctx context.Context, location string) (*schema.EventSchema, error) {
	if strings.TrimSpace(location) == "" {
		location = a.Config.Schema
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("app: no schema configured")
	}
	var (
		event *schema.EventSchema
		err   error
	)
	if name, ok := strings.CutPrefix(location, SamplePrefix); ok {
		event, err = regform.LoadSample(ctx, name)
	} else {
		event, err = regform.LoadEvent(ctx, location, schema.WithHTTPFallback(a.Config.TranslateTimeout))
	}
	if err != nil {
		return nil, fmt.Errorf("app: load schema %s: %w", location, err)
	}
	a.Translator.LearnEvent(event)
	a.Logger.WithFields(logrus.Fields{
		"event":  event.ID,
		"fields": len(event.Fields),
	}).Debug("app: schema loaded")
	return event, nil
}

// Close releases the override store.
func (a *App) Close() error {
	if closer, ok := a.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func closeStore(s translate.OverrideStore) {
	if closer, ok := s.(io.Closer); ok {
		_ = closer.Close()
	}
}
