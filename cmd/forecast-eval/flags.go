package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrInvalidFlag = errors.New("invalid flag value")

// GlobalFlags holds global flags available to all commands
type GlobalFlags struct {
	LogLevel  string
	LogFormat string
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", FormatText, "Log format (text|json)")
}

// Logger builds a structured logger writing to w
func (f *GlobalFlags) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return nil, fmt.Errorf("--log-level %q, %w", f.LogLevel, ErrInvalidFlag)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(f.LogFormat) {
	case FormatText:
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("--log-format %q, %w", f.LogFormat, ErrInvalidFlag)
	}
}
