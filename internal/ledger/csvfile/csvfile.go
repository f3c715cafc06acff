// Package csvfile reads a ledger exported as CSV.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
)

// Source re-reads the file on every snapshot so edits show up on the next
// refresh.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

// Path returns the file backing the source.
func (s *Source) Path() string { return s.path }

// Snapshot implements ledger.Source.
func (s *Source) Snapshot(ctx context.Context) ([]core.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger csv: %w", err)
	}
	defer f.Close()

	recs, err := Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return recs, nil
}

// Read parses a CSV ledger with a header row. Row numbers are the line the
// record starts on, so the header is line 1.
func Read(ctx context.Context, r io.Reader) ([]core.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []core.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := ledger.MapHeader(header)
	if err != nil {
		return nil, err
	}

	out := []core.RawRecord{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if ledger.BlankRow(fields) {
			continue
		}
		line, _ := cr.FieldPos(0)
		out = append(out, cols.Record(line, fields))
	}
	return out, nil
}
