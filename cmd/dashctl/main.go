package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

type Globals struct {
	LogLevel  string `name:"log-level" enum:"debug,info,warn,error" default:"info" env:"QUERYDASH_LOG_LEVEL" help:"Log level (debug, info, warn, error)."`
	LogFormat string `name:"log-format" enum:"text,json" default:"text" env:"QUERYDASH_LOG_FORMAT" help:"Log output format."`
}

type cli struct {
	Globals

	Fix    fixCmd    `cmd:"" help:"Reconcile a dashboard specification against its data and print the corrected JSON."`
	View   viewCmd   `cmd:"" help:"Compute the dashboard view of a specification, optionally filtered."`
	Export exportCmd `cmd:"" help:"Export a chart or the whole dashboard as static HTML."`
	Policy policyCmd `cmd:"" help:"Print or check a field policy file."`
	Serve  serveCmd  `cmd:"" help:"Serve the dashboard API over HTTP."`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("dashctl"),
		kong.Description("Query dashboard utility: fix specifications, preview views, export charts and serve the API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}

func (g *Globals) logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(g.LogLevel)}
	if g.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openInput returns stdin for "-" or an empty path.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashctl: open %s: %w", path, err)
	}
	return f, nil
}

// createOutput returns stdout for "-" or an empty path.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashctl: create %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
