// `slurm2sql sync` - one ingestion run: query sacct, load the rows, move the watermark.

package sync

import (
	"flag"
	"fmt"
	"io"

	"slurm2sql/cmd"
	"slurm2sql/load"
)

type SyncCommand struct {
	cmd.VerboseArgs
	cmd.DatabaseArgs
	cmd.SourceArgs
	cmd.HistoryArgs

	JobsOnly bool
}

var _ = cmd.Command((*SyncCommand)(nil))

func (_ *SyncCommand) Summary() []string {
	return []string{
		"Load accounting records into the database, full or incremental",
	}
}

func (sc *SyncCommand) Add(fs *flag.FlagSet) {
	sc.VerboseArgs.Add(fs)
	sc.DatabaseArgs.Add(fs)
	sc.SourceArgs.Add(fs)
	sc.HistoryArgs.Add(fs)
	fs.BoolVar(&sc.JobsOnly, "jobs-only", false, "Load only jobs, not their steps")
}

func (sc *SyncCommand) Validate() error {
	if err := sc.VerboseArgs.Validate(); err != nil {
		return err
	}
	if err := sc.DatabaseArgs.Validate(); err != nil {
		return err
	}
	if err := sc.SourceArgs.Validate(); err != nil {
		return err
	}
	return sc.HistoryArgs.Validate()
}

func (sc *SyncCommand) Perform(stdout, _ io.Writer) error {
	store, err := sc.DatabaseArgs.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	src, err := sc.SourceArgs.Open()
	if err != nil {
		return err
	}

	stats, err := load.Sync(store, src, load.Options{
		Spec:     sc.Spec,
		JobsOnly: sc.JobsOnly,
		Verbose:  sc.Verbose,
	})
	if err != nil {
		return err
	}
	if !sc.Quiet {
		fmt.Fprintf(stdout, "%d rows loaded (%d dropped), %s columns\n",
			stats.Rows, stats.Dropped, stats.Variant)
	}
	return nil
}
