package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/app"
	"github.com/at-ishikawa/lexipack/internal/languagepack"
)

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, components *app.App, w io.Writer) error) error {
	ctx := cmd.Context()
	components, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = components.Close()
	}()
	return fn(ctx, components, cmd.OutOrStdout())
}

func newPacksCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "packs",
		Short: "Manage language packs",
	}

	command.AddCommand(&cobra.Command{
		Use:   "available",
		Short: "List the packs of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				packs := components.Packs.ListAvailable()
				if outputFormat == FormatJSON {
					return printJSON(w, packs)
				}
				tbl := newTable(w, "ID", "Name", "Source", "Target", "Size", "Companion", "State")
				for _, pack := range packs {
					state, err := components.Packs.InstallState(ctx, pack.ID)
					if err != nil {
						return fmt.Errorf("Packs.InstallState > %w", err)
					}
					tbl.AddRow(pack.ID, pack.Name, pack.SourceLanguage, pack.TargetLanguage,
						formatBytes(pack.Dictionary.SizeBytes), pack.CompanionPackID, state)
				}
				tbl.Print()
				return nil
			})
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "installed",
		Short: "List the installed packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				packs, err := components.Packs.ListInstalled(ctx)
				if err != nil {
					return fmt.Errorf("Packs.ListInstalled > %w", err)
				}
				if outputFormat == FormatJSON {
					return printJSON(w, packs)
				}
				tbl := newTable(w, "ID", "Source", "Target", "Installed At", "Lookups")
				for _, pack := range packs {
					tbl.AddRow(pack.ID, pack.Manifest.SourceLanguage, pack.Manifest.TargetLanguage,
						pack.InstalledAt.Local().Format("2006-01-02 15:04"), pack.DictionaryLookups)
				}
				tbl.Print()
				return nil
			})
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics of the installed packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				stats, err := components.Packs.StorageStats(ctx)
				if err != nil {
					return fmt.Errorf("Packs.StorageStats > %w", err)
				}
				if outputFormat == FormatJSON {
					return printJSON(w, stats)
				}
				tbl := newTable(w, "Installed", "Size", "Dictionary Lookups", "Translations")
				tbl.AddRow(stats.TotalInstalled, formatBytes(stats.TotalSize), stats.TotalDictionaryLookups, stats.TotalTranslations)
				tbl.Print()
				return nil
			})
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "check <pack-id>",
		Short: "Check whether a pack fits on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				check, err := components.Packs.CheckStorageSpace(ctx, args[0])
				if err != nil {
					return fmt.Errorf("Packs.CheckStorageSpace > %w", err)
				}
				if outputFormat == FormatJSON {
					return printJSON(w, check)
				}
				verdict := color.GreenString("enough space")
				if !check.HasSpace {
					verdict = color.RedString("not enough space")
				}
				fmt.Fprintf(w, "%s: %s (required %s, available %s)\n",
					args[0], verdict, formatBytes(check.RequiredBytes), formatBytes(check.AvailableBytes))
				return nil
			})
		},
	})

	command.AddCommand(newPacksInstallCommand())

	var includeCompanion bool
	deleteCommand := &cobra.Command{
		Use:   "delete <pack-id>",
		Short: "Delete an installed pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				result, err := components.Packs.DeletePack(ctx, args[0], languagepack.DeleteOptions{IncludeCompanion: includeCompanion})
				if err != nil {
					return fmt.Errorf("Packs.DeletePack > %w", err)
				}
				if outputFormat == FormatJSON {
					return printJSON(w, result)
				}
				for _, id := range result.Deleted {
					fmt.Fprintf(w, "deleted %s\n", id)
				}
				for _, id := range result.Surviving {
					fmt.Fprintf(w, "%s is kept because its language is in use\n", id)
				}
				return nil
			})
		},
	}
	deleteCommand.Flags().BoolVar(&includeCompanion, "include-companion", false, "delete the companion pack as well")
	command.AddCommand(deleteCommand)

	command.AddCommand(&cobra.Command{
		Use:   "cancel <pack-id>",
		Short: "Cancel the download of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				if err := components.Packs.CancelDownload(args[0]); err != nil {
					return fmt.Errorf("Packs.CancelDownload > %w", err)
				}
				fmt.Fprintf(w, "cancelled %s\n", args[0])
				return nil
			})
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "state <pack-id>",
		Short: "Show the install state of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				state, err := components.Packs.InstallState(ctx, args[0])
				if err != nil {
					return fmt.Errorf("Packs.InstallState > %w", err)
				}
				if outputFormat == FormatJSON {
					return printJSON(w, map[string]languagepack.InstallState{"install_state": state})
				}
				fmt.Fprintln(w, state)
				return nil
			})
		},
	})
	return command
}

func newPacksInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <pack-id>",
		Short: "Download and install a pack and its companion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, components *app.App, w io.Writer) error {
				progress := newProgressPrinter(w)
				handle, err := components.Packs.StartDownload(ctx, args[0], progress.print)
				if err != nil {
					return fmt.Errorf("Packs.StartDownload > %w", err)
				}
				if _, err := handle.Wait(ctx); err != nil {
					return fmt.Errorf("DownloadHandle.Wait > %w", err)
				}
				progress.print(handle.Snapshot())
				if companion := handle.Companion(); companion != nil {
					if _, err := companion.Wait(ctx); err != nil {
						return fmt.Errorf("companion DownloadHandle.Wait > %w", err)
					}
					progress.print(companion.Snapshot())
				}
				return nil
			})
		},
	}
}

// progressPrinter prints a line per status change and per 10% of progress.
// The companion download reports through the same callbacks.
type progressPrinter struct {
	w    io.Writer
	mu   sync.Mutex
	last map[string]languagepack.LanguagePackDownload
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: make(map[string]languagepack.LanguagePackDownload)}
}

func (p *progressPrinter) print(download languagepack.LanguagePackDownload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, seen := p.last[download.ID]
	if seen && last.Status == download.Status && download.Progress/10 == last.Progress/10 {
		return
	}
	p.last[download.ID] = download

	switch download.Status {
	case languagepack.StatusCompleted:
		fmt.Fprintf(p.w, "%s: %s\n", download.PackID, color.GreenString("installed"))
	case languagepack.StatusFailed:
		fmt.Fprintf(p.w, "%s: %s %s\n", download.PackID, color.RedString("failed"), download.Error)
	case languagepack.StatusDownloading:
		fmt.Fprintf(p.w, "%s: downloading %3d%% (%s/%s)\n", download.PackID, download.Progress,
			formatBytes(download.DownloadedBytes), formatBytes(download.TotalBytes))
	default:
		fmt.Fprintf(p.w, "%s: %s\n", download.PackID, download.Status)
	}
}
