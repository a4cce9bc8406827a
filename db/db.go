// Persistent storage for parsed accounting rows and the incremental-sync watermark.
//
// Two backends: SQLite (the default, including :memory: for tests) and PostgreSQL when
// the target looks like a postgres URI.  Both present the same narrow Store interface;
// everything above this package is backend-agnostic.

package db

import (
	"strings"

	"slurm2sql/registry"
)

// The job table and the watermark live side by side in the same database so that a
// watermark can never describe rows that went somewhere else.
const (
	JobTable  = "slurm"
	metaTable = "slurm2sql_meta"

	watermarkKey = "last_timestamp"
)

type Store interface {
	// EnsureSchema creates the job table with exactly the variant's columns, and the
	// metadata table, if they do not exist.
	EnsureSchema(variant *registry.Variant) error

	// InsertRows writes all rows in one transaction, upserting on JobIDSlurm so that
	// re-processing an already-loaded window changes nothing.  No partial writes: an
	// error means the transaction rolled back.
	InsertRows(variant *registry.Variant, rows []registry.Row) error

	// GetLastTimestamp reads the watermark; ok is false if no run has ever recorded one.
	GetLastTimestamp() (t int64, ok bool, err error)

	// SetLastTimestamp unconditionally overwrites the watermark.  Call it only after the
	// rows of the current run are durably written.
	SetLastTimestamp(t int64) error

	Close() error
}

// Open connects to the store named by target: a postgres:// (or postgresql://) URI, a
// SQLite file path, or ":memory:".
func Open(target string) (Store, error) {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return openPostgres(target)
	}
	return openSqlite(target)
}

func columnValues(variant *registry.Variant, row registry.Row) []any {
	vals := make([]any, len(variant.Columns))
	for i, col := range variant.Columns {
		vals[i] = row[col.Name]
	}
	return vals
}
