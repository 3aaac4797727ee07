package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/lookup"
)

func newLookupCommand() *cobra.Command {
	var (
		language    string
		contextText string
		timeout     time.Duration
	)
	command := &cobra.Command{
		Use:   "lookup <word>",
		Short: "Look up a word in the installed language packs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			components, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = components.Close()
			}()

			response := components.Resolver.LookupWord(ctx, lookup.Request{
				Word:           args[0],
				SourceLanguage: language,
				Timeout:        timeout,
			})
			var contextResponse *lookup.ContextResponse
			if contextText != "" {
				translated := components.Resolver.TranslateContext(ctx, lookup.ContextRequest{
					Text:           contextText,
					SourceLanguage: response.SourceLanguage,
					Timeout:        timeout,
				})
				contextResponse = &translated
			}

			w := cmd.OutOrStdout()
			if outputFormat == FormatJSON {
				return printJSON(w, struct {
					Lookup  lookup.Response         `json:"lookup"`
					Context *lookup.ContextResponse `json:"context,omitempty"`
				}{response, contextResponse})
			}
			printLookupResponse(w, response)
			if contextResponse != nil {
				fmt.Fprintln(w)
				printContextResponse(w, *contextResponse)
			}
			return nil
		},
	}
	flags := command.Flags()
	flags.StringVar(&language, "lang", "", "source language of the word. Defaults to the first target language of the profile")
	flags.StringVar(&contextText, "context", "", "passage around the word to translate as well")
	flags.DurationVar(&timeout, "timeout", 0, "timeout of the online fallback")
	return command
}

func newSuggestCommand() *cobra.Command {
	var (
		language string
		limit    int
	)
	command := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Complete a word prefix from the installed language packs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			components, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = components.Close()
			}()

			suggestions, err := components.Resolver.Suggest(ctx, args[0], language, limit)
			if err != nil {
				return fmt.Errorf("Resolver.Suggest > %w", err)
			}
			w := cmd.OutOrStdout()
			if outputFormat == FormatJSON {
				return printJSON(w, suggestions)
			}
			for _, suggestion := range suggestions {
				fmt.Fprintln(w, suggestion)
			}
			return nil
		},
	}
	flags := command.Flags()
	flags.StringVar(&language, "lang", "", "language of the prefix")
	flags.IntVar(&limit, "limit", 10, "maximum number of suggestions")
	return command
}

func newTranslateCommand() *cobra.Command {
	var (
		sourceLanguage string
		targetLanguage string
		timeout        time.Duration
	)
	command := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate a passage with the configured translator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			components, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = components.Close()
			}()

			response := components.Resolver.TranslateContext(ctx, lookup.ContextRequest{
				Text:           args[0],
				SourceLanguage: sourceLanguage,
				TargetLanguage: targetLanguage,
				Timeout:        timeout,
			})
			w := cmd.OutOrStdout()
			if outputFormat == FormatJSON {
				return printJSON(w, response)
			}
			printContextResponse(w, response)
			return nil
		},
	}
	flags := command.Flags()
	flags.StringVar(&sourceLanguage, "from", "", "language of the text")
	flags.StringVar(&targetLanguage, "to", "", "language to translate into")
	flags.DurationVar(&timeout, "timeout", 0, "timeout of the translation")
	return command
}

func printLookupResponse(w io.Writer, response lookup.Response) {
	if !response.Success {
		fmt.Fprintf(w, "%s: %s\n", response.Word, color.RedString(string(response.Error)))
		if len(response.MissingLanguages) > 0 {
			fmt.Fprintf(w, "missing language packs: %s\n", strings.Join(response.MissingLanguages, ", "))
		}
		if len(response.Suggestions) > 0 {
			fmt.Fprintf(w, "did you mean: %s\n", strings.Join(response.Suggestions, ", "))
		}
		return
	}

	printDefinition(w, *response.PrimaryDefinition, response.Source)
	for _, alternative := range response.Alternatives {
		fmt.Fprintln(w)
		printDefinition(w, alternative, response.Source)
	}
}

func printDefinition(w io.Writer, definition lookup.Definition, source lookup.Source) {
	header := bold.Sprint(definition.Lemma)
	if definition.Pronunciation != "" {
		header += " " + definition.Pronunciation
	}
	origin := definition.PackID
	if origin == "" {
		origin = string(source)
	}
	fmt.Fprintf(w, "%s (%s, %s)\n", header, definition.Language, origin)

	for _, group := range definition.MeaningGroups {
		line := fmt.Sprintf("  %s %s", group.Icon, group.Tag)
		if group.Definition != "" {
			line += ": " + group.Definition
		}
		fmt.Fprintln(w, line)
		if group.Example != "" {
			fmt.Fprintf(w, "    %s\n", italic.Sprint(group.Example))
		}
		if len(group.Synonyms) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(group.Synonyms, ", "))
		}
	}
	if len(definition.MeaningGroups) == 0 && len(definition.Translations) > 0 {
		words := make([]string, 0, len(definition.Translations))
		for _, translation := range definition.Translations {
			words = append(words, translation.Word)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(words, ", "))
	}
}

func printContextResponse(w io.Writer, response lookup.ContextResponse) {
	switch {
	case response.Skipped:
		fmt.Fprintf(w, "translation skipped: %s\n", response.Reason)
	case !response.Success:
		fmt.Fprintf(w, "translation failed: %s\n", color.RedString(string(response.Error)))
	default:
		fmt.Fprintf(w, "%s → %s\n", response.SourceLanguage, response.TargetLanguage)
		fmt.Fprintln(w, response.Translation)
	}
}
