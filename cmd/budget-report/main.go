package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"budgetboard/internal/core"
	"budgetboard/internal/engine"
	"budgetboard/internal/ledger/csvfile"
	"budgetboard/internal/view"
)

// budget-report computes the dashboard once from a CSV ledger and prints it
// as JSON.
func main() {
	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "budget-report: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("budget-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	csvPath := fs.String("csv", "./data/ledger.csv", "ledger CSV file (use - for stdin)")
	ideal := fs.String("ideal", "8000", "ideal budget")
	maximum := fs.String("max", "11429", "max budget")
	skip := fs.Bool("skip-malformed", false, "drop malformed rows instead of failing")
	pretty := fs.Bool("pretty", false, "indent the JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	budget, err := core.NewBudget(*ideal, *maximum)
	if err == nil {
		err = budget.Validate()
	}
	if err != nil {
		return err
	}

	var records []core.RawRecord
	if *csvPath == "-" {
		records, err = csvfile.Read(ctx, stdin)
	} else {
		records, err = csvfile.New(*csvPath).Snapshot(ctx)
	}
	if err != nil {
		return err
	}

	bundle, err := engine.ComputeWithOptions(records, budget, engine.Options{SkipMalformed: *skip})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(view.FromBundle(bundle))
}

// exitCode separates bad input (2) from everything else (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrMalformedRecord), errors.Is(err, core.ErrInvalidBudgetConfig):
		return 2
	default:
		return 1
	}
}
