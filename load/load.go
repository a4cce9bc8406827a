// The sync orchestrator: one run, start to finish.
//
// Fixed order per run: resolve the Slurm version, select the registry variant, make sure
// the schema exists, compute the time filter, pull raw records, parse, write all rows in
// one transaction, and only then advance the watermark.  Any failure up to and including
// the row write leaves the watermark untouched, so the next resume re-covers the same
// window; the upsert keyed on JobIDSlurm makes that re-coverage harmless.

package load

import (
	"fmt"
	"time"

	. "slurm2sql/common"
	"slurm2sql/db"
	"slurm2sql/history"
	"slurm2sql/parse"
	"slurm2sql/registry"
	"slurm2sql/sacct"
)

type Options struct {
	Spec     history.Spec
	JobsOnly bool
	Verbose  bool
}

type Stats struct {
	Variant string
	Rows    int
	Dropped int
	Newest  int64 // max Time across inserted rows, 0 if none
}

func Sync(store db.Store, src sacct.Source, opts Options) (Stats, error) {
	now := time.Now()

	major, minor, _, err := src.Version()
	if err != nil {
		return Stats{}, fmt.Errorf("Failed to detect Slurm version: %w", err)
	}
	variant := registry.SelectVariant(major, minor)
	if opts.Verbose {
		Log.Infof("Slurm %d.%d, using %s columns", major, minor, variant.Name)
	}

	if err := store.EnsureSchema(variant); err != nil {
		return Stats{}, err
	}

	filter, err := history.ComputeFilter(opts.Spec, store, now)
	if err != nil {
		return Stats{}, err
	}
	if opts.Verbose {
		Log.Infof("Querying sacct with %v", filter.SacctArgs())
	}

	input, err := src.Query(variant.UpstreamFields(), filter)
	if err != nil {
		return Stats{}, err
	}
	defer input.Close()

	rows, dropped, err := parse.Records(input, variant, now, opts.Verbose)
	if err != nil {
		return Stats{}, fmt.Errorf("Failed to read sacct output: %w", err)
	}
	if opts.JobsOnly {
		rows = parse.JobsOnly(rows)
	}

	if err := store.InsertRows(variant, rows); err != nil {
		return Stats{}, err
	}

	var newest int64
	for _, row := range rows {
		if t, ok := row["Time"].(int64); ok && t > newest {
			newest = t
		}
	}
	if err := history.Advance(store, opts.Spec, newest, now); err != nil {
		return Stats{}, fmt.Errorf("Failed to advance watermark: %w", err)
	}

	stats := Stats{Variant: variant.Name, Rows: len(rows), Dropped: dropped, Newest: newest}
	if opts.Verbose {
		Log.Infof("Inserted %d rows (%d dropped) as of %s",
			stats.Rows, stats.Dropped, now.Format("2006-01-02 15:04:05"))
	}
	return stats, nil
}
