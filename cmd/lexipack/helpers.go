package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/lexipack/internal/app"
	"github.com/at-ishikawa/lexipack/internal/config"
)

type Format string

func (f *Format) Set(val string) error {
	for _, format := range allFormats {
		if val == string(format) {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s", val)
}

func (f Format) String() string {
	return string(f)
}

func (f *Format) Type() string {
	return "Format"
}

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

var (
	_          pflag.Value = (*Format)(nil)
	allFormats             = []Format{FormatTable, FormatJSON}

	headerColor = color.New(color.FgGreen, color.Underline)
	columnColor = color.New(color.FgYellow)
	bold        = color.New(color.Bold)
	italic      = color.New(color.Italic)
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openApp loads the configuration and wires every component. The caller
// closes the returned app.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loadConfig > %w", err)
	}
	logger := app.NewLogger(cfg.Log, debugMode, os.Stderr)
	components, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app.New > %w", err)
	}
	return components, nil
}

func newTable(w io.Writer, headers ...interface{}) table.Table {
	return table.New(headers...).
		WithWriter(w).
		WithHeaderFormatter(headerColor.SprintfFunc()).
		WithFirstColumnFormatter(columnColor.SprintfFunc())
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("json.Encode > %w", err)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
