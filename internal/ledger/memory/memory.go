package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
)

// Store keeps raw records in memory. Snapshot copies under the lock so a
// concurrent Append never shows up half-way through a recomputation.
type Store struct {
	mu    sync.Mutex
	items []core.RawRecord
}

// New seeds the store. Seed rows keep their Row when set.
func New(seed ...core.RawRecord) *Store {
	s := &Store{items: make([]core.RawRecord, 0, len(seed))}
	for i, r := range seed {
		if r.Row == 0 {
			r.Row = i + 1
		}
		s.items = append(s.items, r)
	}
	return s
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := len(s.items) + 1
	s.items = append(s.items, ledger.ToRaw(row, tx))
	return fmt.Sprintf("mem:%d", row), nil
}

// Replace swaps the whole ledger, as an upload would.
func (s *Store) Replace(records []core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.RawRecord(nil), records...)
}

// Snapshot implements ledger.Source.
func (s *Store) Snapshot(ctx context.Context) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.RawRecord, 0, len(s.items)), s.items...), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Import appends a batch under one lock.
func (s *Store) Import(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.items = append(s.items, ledger.ToRaw(len(s.items)+1, tx))
	}
	return len(txs), nil
}
