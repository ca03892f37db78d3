// Package main checks a dataset file for problems that make programs
// unreachable or ambiguous through the lookup service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/garyellow/program-lookup/internal/app"
	"github.com/garyellow/program-lookup/internal/config"
	"github.com/garyellow/program-lookup/internal/dataset"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/program"
	"github.com/garyellow/program-lookup/internal/stringutil"
)

// Verification results
type verifyResult struct {
	name    string
	passed  bool
	message string
}

// maxListed caps how many offending rows a message names.
const maxListed = 5

func main() {
	fileFlag := flag.String("file", "", "Dataset file to verify (default: the configured source)")
	flag.Parse()

	ctx := context.Background()
	var source dataset.Source
	if *fileFlag != "" {
		source = dataset.NewFileSource(*fileFlag)
	} else {
		cfg, err := config.Load()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(2)
		}
		if source, err = app.NewSource(ctx, cfg); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to configure dataset source: %v\n", err)
			os.Exit(2)
		}
	}

	log := logger.NewWithWriter("error", os.Stderr)
	ds, err := dataset.NewLoader(source, log, nil).Load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load dataset: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Program Lookup - Dataset Verification (%s, %d rows)\n", ds.Source(), ds.Len())
	if failed := report(os.Stdout, verify(ds)); failed > 0 {
		os.Exit(1)
	}
}

func verify(ds *dataset.Dataset) []verifyResult {
	var results []verifyResult
	results = append(results, verifyColumns(ds)...)
	results = append(results, verifyIdentifiable(ds))
	results = append(results, verifyUnique(ds, program.ColumnCourseCode, "Course Codes Unique"))
	results = append(results, verifyUnique(ds, program.ColumnProgramName, "Program Names Unique"))
	results = append(results, verifyCrossKey(ds))
	return results
}

// report prints results and returns the number of failures.
func report(w io.Writer, results []verifyResult) int {
	passedCount, failedCount := 0, 0
	for _, result := range results {
		status := "FAIL"
		if result.passed {
			status = "PASS"
			passedCount++
		} else {
			failedCount++
		}
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", status, result.name, result.message)
	}
	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d failed\n", passedCount, failedCount)
	return failedCount
}

// verifyColumns checks the header row. Only the two match columns are
// required; the rest fall back to aliases or defaults.
func verifyColumns(ds *dataset.Dataset) []verifyResult {
	headers := make(map[string]bool)
	for _, h := range ds.Headers() {
		headers[h] = true
	}

	var results []verifyResult
	for _, col := range []string{program.ColumnCourseCode, program.ColumnProgramName} {
		results = append(results, verifyResult{
			name:    fmt.Sprintf("Column %q Present", col),
			passed:  headers[col],
			message: fmt.Sprintf("required for lookup, present=%t", headers[col]),
		})
	}

	var missing []string
	for _, col := range []string{
		program.ColumnDegreeName,
		program.ColumnDescription,
		program.ColumnAreaOfStudy,
		program.ColumnPrerequisites,
		program.ColumnWebsiteLink,
	} {
		if !headers[col] {
			missing = append(missing, col)
		}
	}
	msg := "all optional columns present"
	if len(missing) > 0 {
		msg = "missing (aliases or defaults used): " + strings.Join(missing, ", ")
	}
	results = append(results, verifyResult{name: "Optional Columns", passed: true, message: msg})
	return results
}

// verifyIdentifiable finds rows with neither a course code nor a program name.
func verifyIdentifiable(ds *dataset.Dataset) verifyResult {
	var rows []int
	for i, rec := range ds.All() {
		if rec.Value(program.ColumnCourseCode) == "" && rec.Value(program.ColumnProgramName) == "" {
			rows = append(rows, rowNumber(i))
		}
	}
	return verifyResult{
		name:    "Rows Identifiable",
		passed:  len(rows) == 0,
		message: describeRows(rows, "rows without course code or program name"),
	}
}

// verifyUnique finds rows shadowed by an earlier row with the same value
// in column, compared the way lookups compare.
func verifyUnique(ds *dataset.Dataset, column, name string) verifyResult {
	seen := make(map[string]int)
	var rows []int
	for i, rec := range ds.All() {
		v := rec.Value(column)
		if v == "" {
			continue
		}
		key := stringutil.Fold(v)
		if _, dup := seen[key]; dup {
			rows = append(rows, rowNumber(i))
			continue
		}
		seen[key] = i
	}
	return verifyResult{
		name:    name,
		passed:  len(rows) == 0,
		message: describeRows(rows, "rows shadowed by an earlier duplicate"),
	}
}

// verifyCrossKey finds program names equal to a different row's course code.
// Such rows are unreachable by name since course codes match first.
func verifyCrossKey(ds *dataset.Dataset) verifyResult {
	codes := make(map[string]int)
	for i, rec := range ds.All() {
		if v := rec.Value(program.ColumnCourseCode); v != "" {
			if _, ok := codes[stringutil.Fold(v)]; !ok {
				codes[stringutil.Fold(v)] = i
			}
		}
	}

	var rows []int
	for i, rec := range ds.All() {
		v := rec.Value(program.ColumnProgramName)
		if v == "" {
			continue
		}
		if j, ok := codes[stringutil.Fold(v)]; ok && j != i {
			rows = append(rows, rowNumber(i))
		}
	}
	return verifyResult{
		name:    "No Name/Code Collisions",
		passed:  len(rows) == 0,
		message: describeRows(rows, "rows whose program name is another row's course code"),
	}
}

// rowNumber converts a record index to its spreadsheet row, counting the header.
func rowNumber(i int) int {
	return i + 2
}

func describeRows(rows []int, what string) string {
	if len(rows) == 0 {
		return "none found"
	}
	listed := rows
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	parts := make([]string, len(listed))
	for i, r := range listed {
		parts[i] = fmt.Sprint(r)
	}
	msg := fmt.Sprintf("%d %s (row %s", len(rows), what, strings.Join(parts, ", "))
	if len(rows) > maxListed {
		msg += ", ..."
	}
	return msg + ")"
}
