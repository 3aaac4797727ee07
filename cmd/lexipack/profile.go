package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/app"
	"github.com/at-ishikawa/lexipack/internal/profile"
)

func newProfileCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the language profile",
	}

	command.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the language profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				got, err := components.Profiles.Get(ctx)
				if err != nil {
					return fmt.Errorf("Profiles.Get > %w", err)
				}
				return printProfile(w, got)
			})
		},
	})
	command.AddCommand(newProfileSetCommand())
	return command
}

func newProfileSetCommand() *cobra.Command {
	var (
		native            string
		targets           []string
		definition        string
		levels            map[string]string
		showPronunciation bool
		showExamples      bool
		showEtymology     bool
	)
	command := &cobra.Command{
		Use:   "set",
		Short: "Change fields of the language profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var update profile.Update
			if flags.Changed("native") {
				update.NativeLanguage = &native
			}
			if flags.Changed("targets") {
				update.TargetLanguages = targets
			}
			if flags.Changed("definition-language") {
				update.PreferredDefinitionLanguage = &definition
			}
			if flags.Changed("level") {
				update.ProficiencyLevels = make(map[string]profile.ProficiencyLevel, len(levels))
				for language, level := range levels {
					update.ProficiencyLevels[language] = profile.ProficiencyLevel(level)
				}
			}
			if flags.Changed("show-pronunciation") {
				update.ShowPronunciation = &showPronunciation
			}
			if flags.Changed("show-examples") {
				update.ShowExamples = &showExamples
			}
			if flags.Changed("show-etymology") {
				update.ShowEtymology = &showEtymology
			}

			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				updated, err := components.Profiles.Update(ctx, update)
				if err != nil {
					return fmt.Errorf("Profiles.Update > %w", err)
				}
				return printProfile(w, updated)
			})
		},
	}
	flags := command.Flags()
	flags.StringVar(&native, "native", "", "native language")
	flags.StringSliceVar(&targets, "targets", nil, "target languages in order of preference")
	flags.StringVar(&definition, "definition-language", "", "language definitions are shown in")
	flags.StringToStringVar(&levels, "level", nil, "proficiency level per language, e.g. en=advanced")
	flags.BoolVar(&showPronunciation, "show-pronunciation", true, "show pronunciations")
	flags.BoolVar(&showExamples, "show-examples", true, "show example sentences")
	flags.BoolVar(&showEtymology, "show-etymology", false, "show etymology")
	return command
}

func printProfile(w io.Writer, p profile.Profile) error {
	if outputFormat == FormatJSON {
		return printJSON(w, p)
	}
	tbl := newTable(w, "Field", "Value")
	tbl.AddRow("native language", p.NativeLanguage)
	tbl.AddRow("target languages", strings.Join(p.TargetLanguages, ", "))
	tbl.AddRow("definition language", p.PreferredDefinitionLanguage)

	languages := make([]string, 0, len(p.ProficiencyLevels))
	for language := range p.ProficiencyLevels {
		languages = append(languages, language)
	}
	sort.Strings(languages)
	for _, language := range languages {
		tbl.AddRow("level "+language, p.ProficiencyLevels[language])
	}

	tbl.AddRow("show pronunciation", p.ShowPronunciation)
	tbl.AddRow("show examples", p.ShowExamples)
	tbl.AddRow("show etymology", p.ShowEtymology)
	tbl.AddRow("total lookups", p.TotalLookups)
	tbl.Print()
	return nil
}
