// Package main is an offline lookup tool. It loads the configured dataset
// and prints the normalized program for an identifier as JSON.
//
// Usage:
//
//	lookup [-file path] <identifier>
//	lookup [-file path] -stats
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garyellow/program-lookup/internal/app"
	"github.com/garyellow/program-lookup/internal/config"
	"github.com/garyellow/program-lookup/internal/dataset"
	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/program"
)

// Exit codes
const (
	exitOK       = 0
	exitNotFound = 1
	exitError    = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fileFlag := fs.String("file", "", "Dataset file (.xlsx or .csv); overrides DATA_DIR/DATASET_FILE and R2")
	statsFlag := fs.Bool("stats", false, "Print row count and header columns instead of looking up")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if !*statsFlag && fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: lookup [-file path] <identifier> | lookup [-file path] -stats")
		return exitError
	}

	log := logger.NewWithWriter(os.Getenv(config.EnvLogLevel), stderr)
	source, err := resolveSource(ctx, *fileFlag)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to configure dataset source: %v\n", err)
		return exitError
	}
	loader := dataset.NewLoader(source, log, nil)

	if *statsFlag {
		return printStats(ctx, loader, stdout, stderr)
	}

	p, err := program.NewService(loader, log, nil).FindProgram(ctx, fs.Arg(0))
	switch {
	case err == nil:
	case domerrors.IsNotFound(err):
		_, _ = fmt.Fprintln(stderr, "Program not found.")
		return exitNotFound
	default:
		_, _ = fmt.Fprintf(stderr, "Lookup failed: %v\n", err)
		return exitError
	}

	if err := writeJSON(stdout, p); err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func resolveSource(ctx context.Context, file string) (dataset.Source, error) {
	if file != "" {
		return dataset.NewFileSource(file), nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.NewSource(ctx, cfg)
}

type stats struct {
	Source  string   `json:"source"`
	Records int      `json:"records"`
	Columns []string `json:"columns"`
}

func printStats(ctx context.Context, loader *dataset.Loader, stdout, stderr io.Writer) int {
	ds, err := loader.Load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
		return exitError
	}
	if err := writeJSON(stdout, stats{
		Source:  ds.Source(),
		Records: ds.Len(),
		Columns: ds.Headers(),
	}); err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
