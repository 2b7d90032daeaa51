package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

func runOverride(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("override: expected list, add or rm")
	}
	action, rest := args[0], args[1:]

	var text, value string
	a, _, err := setup(ctx, "override "+action, rest, func(fs *flag.FlagSet) {
		fs.StringVar(&text, "text", "", "source text")
		fs.StringVar(&value, "value", "", "translated text")
	})
	if err != nil {
		return err
	}
	defer a.Close()
	lang := a.Config.Language

	switch action {
	case "list":
		overrides, err := a.Translator.CustomTranslations(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, entry := range overrides.Entries() {
			if lang != "" && !textnorm.SameLang(entry.Lang, lang) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Lang, entry.Text, entry.Value)
		}
		return tw.Flush()
	case "add":
		if err := a.Translator.AddCustomTranslation(ctx, text, lang, value); err != nil {
			return fmt.Errorf("override add: %w", err)
		}
		fmt.Fprintf(w, "saved %s override for %q\n", lang, text)
		return nil
	case "rm":
		if err := a.Translator.RemoveCustomTranslation(ctx, text, lang); err != nil {
			return fmt.Errorf("override rm: %w", err)
		}
		fmt.Fprintf(w, "removed %s override for %q\n", lang, text)
		return nil
	default:
		return fmt.Errorf("override: unknown action %q", action)
	}
}
