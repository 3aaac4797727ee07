package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/packbuild"
)

func newRegistryCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "registry",
		Short: "Build language packs and the registry catalog",
	}
	command.AddCommand(newRegistryBuildCommand(), newRegistryGenerateCommand())
	return command
}

func newRegistryBuildCommand() *cobra.Command {
	var (
		id              string
		name            string
		sourceLanguage  string
		targetLanguage  string
		version         string
		outputDirectory string
	)
	command := &cobra.Command{
		Use:   "build <stardict.ifo>",
		Short: "Build a language pack from a StarDict dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, info, err := packbuild.FromStarDict(args[0], sourceLanguage, targetLanguage)
			if err != nil {
				return fmt.Errorf("packbuild.FromStarDict > %w", err)
			}
			if id == "" {
				id = sourceLanguage + "-" + targetLanguage
			}
			if name == "" {
				name = info.BookName
			}

			pack, err := packbuild.Build(cmd.Context(), packbuild.Options{
				ID:              id,
				Name:            name,
				SourceLanguage:  sourceLanguage,
				TargetLanguage:  targetLanguage,
				Version:         version,
				Source:          filepath.Base(args[0]),
				Description:     info.Description,
				Entries:         entries,
				OutputDirectory: outputDirectory,
			})
			if err != nil {
				return fmt.Errorf("packbuild.Build > %w", err)
			}

			w := cmd.OutOrStdout()
			if outputFormat == FormatJSON {
				return printJSON(w, pack)
			}
			tbl := newTable(w, "ID", "Archive", "Entries", "Size", "Checksum")
			tbl.AddRow(pack.ID, pack.Dictionary.Filename, pack.Dictionary.Entries, formatBytes(pack.Dictionary.SizeBytes), pack.Dictionary.Checksum)
			tbl.Print()
			return nil
		},
	}
	flags := command.Flags()
	flags.StringVar(&id, "id", "", "pack id. Defaults to <source>-<target>")
	flags.StringVar(&name, "name", "", "display name. Defaults to the bookname of the dictionary")
	flags.StringVar(&sourceLanguage, "source", "", "language of the headwords")
	flags.StringVar(&targetLanguage, "target", "", "language of the articles")
	flags.StringVar(&version, "version", "", "pack version")
	flags.StringVar(&outputDirectory, "output", ".", "directory the archive and its metadata are written to")
	_ = command.MarkFlagRequired("source")
	_ = command.MarkFlagRequired("target")
	return command
}

func newRegistryGenerateCommand() *cobra.Command {
	var (
		baseURL string
		output  string
	)
	command := &cobra.Command{
		Use:   "generate <directory>",
		Short: "Generate the catalog of the packs built in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := packbuild.GenerateCatalog(args[0], baseURL, time.Now())
			if err != nil {
				return fmt.Errorf("packbuild.GenerateCatalog > %w", err)
			}
			if output == "" {
				output = filepath.Join(args[0], "catalog.json")
			}
			if err := packbuild.WriteCatalog(output, catalog); err != nil {
				return fmt.Errorf("packbuild.WriteCatalog > %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d packs to %s\n", len(catalog.Packs), output)
			return nil
		},
	}
	flags := command.Flags()
	flags.StringVar(&baseURL, "base-url", "", "URL the archives are served from. Defaults to paths relative to the catalog")
	flags.StringVar(&output, "output", "", "catalog path. Defaults to <directory>/catalog.json")
	return command
}
