package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/migrate"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/validation"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

type api struct {
	svc  *translate.Service
	opts Options
}

type translateRequest struct {
	Event    *schema.EventSchema `json:"event,omitempty"`
	Language string              `json:"language"`
}

type translateResponse struct {
	Event  *schema.EventSchema `json:"event"`
	Report translate.Report    `json:"report"`
}

type textRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type textResponse struct {
	Text   string           `json:"text"`
	Origin translate.Origin `json:"origin"`
}

type visibilityRequest struct {
	Event        *schema.EventSchema `json:"event,omitempty"`
	Answers      schema.Answers      `json:"answers,omitempty"`
	LabelAnswers schema.LabelAnswers `json:"label_answers,omitempty"`
}

type visibilityResponse struct {
	visibility.Decisions
	Validation validation.Result `json:"validation"`
	Visible    []string          `json:"visible"`
	Hidden     []string          `json:"hidden"`
	Unbound    []string          `json:"unbound,omitempty"`
}

type migrateRequest struct {
	OldFields []schema.FieldSchema `json:"old_fields"`
	NewFields []schema.FieldSchema `json:"new_fields"`
	Answers   schema.LabelAnswers  `json:"answers"`
}

type migrateResponse struct {
	Answers schema.LabelAnswers `json:"answers"`
	Report  migrate.Report      `json:"report"`
}

type customRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Value    string `json:"value"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func (a *api) event(w http.ResponseWriter, r *http.Request) {
	if a.opts.Event == nil {
		writeError(w, StatusError{Code: http.StatusNotFound, Err: errors.New("httpapi: no event configured")})
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = a.opts.Event.Language
	}
	out, report, err := a.svc.TranslateEventData(r.Context(), a.opts.Event, lang)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Event: out, Report: report})
}

func (a *api) translateEvent(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, a.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	event := req.Event
	if event == nil {
		event = a.opts.Event
	}
	out, report, err := a.svc.TranslateEventData(r.Context(), event, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	if report.Degraded() {
		a.opts.Logger.WithField("language", report.Language).
			Warnf("httpapi: %d strings kept in the source language", report.Fallbacks)
	}
	writeJSON(w, http.StatusOK, translateResponse{Event: out, Report: report})
}

func (a *api) translateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, a.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	text, origin, err := a.svc.TranslateText(r.Context(), req.Text, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text, Origin: origin})
}

func (a *api) visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, a.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	event := req.Event
	if event == nil {
		event = a.opts.Event
	}
	if event == nil {
		writeError(w, badRequest(translate.ErrNilSchema))
		return
	}

	reg := registry.Build(event)
	answers, unbound := reg.Bind(req.LabelAnswers)
	if answers == nil {
		answers = schema.Answers{}
	}
	for id, value := range req.Answers {
		answers[strings.TrimSpace(id)] = value
	}

	decisions := a.opts.Resolver.Resolve(reg, answers)
	visible := decisions.VisibleFields()
	hidden := decisions.HiddenFields()
	if visible == nil {
		visible = []string{}
	}
	if hidden == nil {
		hidden = []string{}
	}
	writeJSON(w, http.StatusOK, visibilityResponse{
		Decisions:  decisions,
		Validation: validation.Validate(reg, answers, decisions),
		Visible:    visible,
		Hidden:     hidden,
		Unbound:    unbound,
	})
}

func (a *api) migrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decodeJSON(w, r, a.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	out, report := migrate.Migrate(req.OldFields, req.NewFields, req.Answers, migrate.WithLogger(a.opts.Logger))
	if out == nil {
		out = schema.LabelAnswers{}
	}
	writeJSON(w, http.StatusOK, migrateResponse{Answers: out, Report: report})
}

func (a *api) suggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text, lang := query.Get("text"), query.Get("lang")
	if strings.TrimSpace(text) == "" || strings.TrimSpace(lang) == "" {
		writeError(w, badRequest(errors.New("httpapi: text and lang are required")))
		return
	}
	data := a.svc.GetTranslationSuggestions(r.Context(), text, lang)
	if data == nil {
		data = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse[string]{Data: data})
}

func (a *api) listCustom(w http.ResponseWriter, r *http.Request) {
	overrides, err := a.svc.CustomTranslations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	data := overrides.Entries()
	if data == nil {
		data = []translate.Entry{}
	}
	writeJSON(w, http.StatusOK, listResponse[translate.Entry]{Data: data})
}

func (a *api) addCustom(w http.ResponseWriter, r *http.Request) {
	var req customRequest
	if err := decodeJSON(w, r, a.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.AddCustomTranslation(r.Context(), req.Text, req.Language, req.Value); err != nil {
		writeError(w, err)
		return
	}
	value, _ := a.svc.CustomTranslations(r.Context())
	stored, _ := value.Get(req.Text, req.Language)
	writeJSON(w, http.StatusCreated, translate.Entry{
		Text:  strings.TrimSpace(req.Text),
		Lang:  strings.ToLower(textnorm.Lang(req.Language)),
		Value: stored,
	})
}

func (a *api) removeCustom(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := a.svc.RemoveCustomTranslation(r.Context(), query.Get("text"), query.Get("lang")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.GetCacheStats())
}

func (a *api) clearCache(w http.ResponseWriter, _ *http.Request) {
	a.svc.ClearTranslationCache()
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.opts.Guard != nil {
			if err := a.opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if c := httpErr.StatusCode(); c > 0 {
			code = c
		}
	}
	writeJSON(w, code, errorResponse{Error: http.StatusText(code), Code: code})
}
