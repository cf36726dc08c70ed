// Package sheets defines the outbound port for mirroring ledger rows to a
// spreadsheet.
package sheets

import (
	"context"

	"financaspro/internal/core"
)

// TransactionWriter appends one transaction row to an external sheet and
// returns a reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
