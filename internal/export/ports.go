package export

import (
	"context"

	"wishtrack/internal/core"
)

// LedgerWriter appends one monthly expense record, expanded into per-line-item
// rows, to an external ledger.
type LedgerWriter interface {
	AppendMonth(ctx context.Context, m core.MonthlyExpense) (rowRef string, err error)
}
