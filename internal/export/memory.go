package export

import (
	"context"
	"fmt"
	"sync"

	"wishtrack/internal/core"
)

// MemoryWriter keeps exported rows in memory. Used in tests and when no
// spreadsheet is configured.
type MemoryWriter struct {
	mu   sync.Mutex
	rows [][]any
}

var _ LedgerWriter = (*MemoryWriter)(nil)

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) AppendMonth(_ context.Context, m core.MonthlyExpense) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := len(w.rows) + 1
	rows := monthRows(m)
	w.rows = append(w.rows, rows...)
	return fmt.Sprintf("memory!A%d:F%d", start, len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *MemoryWriter) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([][]any, len(w.rows))
	copy(out, w.rows)
	return out
}
