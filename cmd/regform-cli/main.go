package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tsxcorp/go-regform/internal/app"
	"github.com/tsxcorp/go-regform/internal/config"
	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/internal/prompt"
	"github.com/tsxcorp/go-regform/pkg/session"
)

const usage = `usage: regform-cli <command> [flags]

commands:
  fill       fill the registration form interactively (type ":lang xx" to switch language)
  translate  print the schema localized into -lang
  review     walk untranslated strings for -lang and save custom translations
  check      report malformed or dangling visibility rules
  override   manage custom translations (list, add, rm)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "fill":
		err = runFill(ctx, args)
	case "translate":
		err = runTranslate(ctx, args)
	case "review":
		err = runReview(ctx, args)
	case "check":
		var problems int
		problems, err = runCheck(ctx, args, os.Stdout)
		if err == nil && problems > 0 {
			os.Exit(1)
		}
	case "override":
		err = runOverride(ctx, args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logging.Fatalf("%v", err)
	}
}

func setup(ctx context.Context, name string, args []string, extra func(*flag.FlagSet)) (*app.App, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if extra != nil {
		extra(fs)
	}
	cfg, err := config.Load(fs, args)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		return nil, nil, err
	}
	return a, fs, nil
}

func runFill(ctx context.Context, args []string) error {
	a, _, err := setup(ctx, "fill", args, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.LoadEvent(ctx, "")
	if err != nil {
		return err
	}
	s, err := session.New(event, session.WithLocalizer(a.Translator), session.WithLogger(a.Logger))
	if err != nil {
		return err
	}
	if lang := strings.TrimSpace(a.Config.Language); lang != "" {
		sw, err := s.SwitchLanguage(ctx, lang)
		if err != nil {
			return err
		}
		if sw.Translation.Degraded() {
			logging.Warnf("%d strings could not be translated to %s", sw.Translation.Fallbacks, lang)
		}
	}

	if err := prompt.Fill(ctx, s, prompt.NewSurveyDriver(os.Stderr), prompt.DefaultMessages()); err != nil {
		return err
	}
	submission := s.Submission()
	return writeJSON(os.Stdout, map[string]any{
		"session":  s.ID(),
		"language": s.Language(),
		"answers":  submission,
		"labels":   s.Registry().Project(submission),
	})
}

func runTranslate(ctx context.Context, args []string) error {
	a, _, err := setup(ctx, "translate", args, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.LoadEvent(ctx, "")
	if err != nil {
		return err
	}
	lang := a.Config.Language
	if strings.TrimSpace(lang) == "" {
		lang = event.Language
	}
	out, report, err := a.Translator.TranslateEventData(ctx, event, lang)
	if err != nil {
		return err
	}
	if failures := report.Err(); failures != nil {
		logging.Warnf("translate: %v", failures)
	}
	return writeJSON(os.Stdout, map[string]any{"event": out, "report": report})
}

func runReview(ctx context.Context, args []string) error {
	a, _, err := setup(ctx, "review", args, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	lang := strings.TrimSpace(a.Config.Language)
	if lang == "" {
		return fmt.Errorf("review: -lang is required")
	}
	event, err := a.LoadEvent(ctx, "")
	if err != nil {
		return err
	}
	result, err := prompt.Review(ctx, a.Translator, event, lang, prompt.NewSurveyDriver(os.Stderr))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "reviewed %d strings: %d saved, %d skipped\n", result.Reviewed, result.Saved, result.Skipped)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
