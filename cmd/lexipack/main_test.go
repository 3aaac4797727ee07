package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	outputFormat = FormatTable

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "lexipack", cmd.Use)
	for _, name := range []string{"config", "debug", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"lookup", "suggest", "translate", "packs", "profile", "registry", "state"})
}

func TestNewPacksCommand(t *testing.T) {
	cmd := newPacksCommand()

	assert.Equal(t, "packs", cmd.Use)
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"available", "installed", "stats", "check", "install", "delete", "cancel", "state"}, names)
}

func TestFormat_Set(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Format
		wantErr bool
	}{
		{
			name:  "table",
			value: "table",
			want:  FormatTable,
		},
		{
			name:  "json",
			value: "json",
			want:  FormatJSON,
		},
		{
			name:    "invalid format",
			value:   "yaml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var format Format
			err := format.Set(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid format")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, format)
		})
	}
}

func TestFormat_StringAndType(t *testing.T) {
	format := FormatJSON
	assert.Equal(t, "json", format.String())
	assert.Equal(t, "Format", format.Type())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0 B"},
		{in: 1023, want: "1023 B"},
		{in: 1024, want: "1.0 KiB"},
		{in: 1536, want: "1.5 KiB"},
		{in: 5 * 1024 * 1024, want: "5.0 MiB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.in))
		})
	}
}
