// Argument structs shared by the verbs.  Each verb's command embeds the ones it needs
// and chains their Add and Validate methods.

package cmd

import (
	"errors"
	"flag"
	"io"
	"os"

	. "slurm2sql/common"
	"slurm2sql/db"
	"slurm2sql/history"
	"slurm2sql/registry"
	"slurm2sql/sacct"
	"slurm2sql/status"
)

type Command interface {
	Summary() []string
	Add(fs *flag.FlagSet)
	Validate() error
	Perform(stdout, stderr io.Writer) error
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// You wouldn't think -v would be so complicated.

type VerboseArgs struct {
	Verbose bool
	Quiet   bool
}

func (va *VerboseArgs) Add(fs *flag.FlagSet) {
	fs.BoolVar(&va.Verbose, "v", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&va.Verbose, "verbose", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&va.Quiet, "q", false, "Print nothing but critical errors")
	fs.BoolVar(&va.Quiet, "quiet", false, "Print nothing but critical errors")
}

func (va *VerboseArgs) Validate() error {
	if va.Verbose && va.Quiet {
		return errors.New("Can't have both -v and -q")
	}
	switch {
	case va.Verbose:
		Log.LowerLevelTo(status.LogLevelInfo)
	case va.Quiet:
		Log.SetLevel(status.LogLevelCritical)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// The output database.  A plain argument is a SQLite file (":memory:" works); a
// postgres:// URI selects the PostgreSQL backend.  The ini file can supply a default.

type DatabaseArgs struct {
	Database string
}

func (da *DatabaseArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&da.Database, "db", "",
		"Output database: SQLite `filename` or postgres:// URI")
}

func (da *DatabaseArgs) Validate() error {
	ApplyDefault(&da.Database, DatabaseTarget)
	if da.Database == "" {
		return errors.New("An output database is required, use -db")
	}
	return nil
}

func (da *DatabaseArgs) Open() (db.Store, error) {
	return db.Open(da.Database)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// The upstream source: normally the local sacct, overridable for canned input.

type SourceArgs struct {
	SacctCmd     string
	Cluster      string
	InputFile    string
	SlurmVersion string

	major, minor, patch int
}

func (sa *SourceArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&sa.SacctCmd, "sacct", "", "The sacct executable to run [default: sacct]")
	fs.StringVar(&sa.Cluster, "cluster", "", "Query the named `cluster` (sacct -M)")
	fs.StringVar(&sa.InputFile, "input", "",
		"Read raw sacct output from `filename` instead of running sacct (for testing)")
	fs.StringVar(&sa.SlurmVersion, "slurm-version", "",
		"Assume this Slurm `version` instead of probing sacct")
}

func (sa *SourceArgs) Validate() error {
	ApplyDefault(&sa.SacctCmd, SacctCommand)
	ApplyDefault(&sa.Cluster, SacctCluster)
	if sa.InputFile != "" && sa.SlurmVersion == "" {
		// Canned input can't be probed for a version; assume the break-point version.
		sa.SlurmVersion = "20.11"
	}
	if sa.SlurmVersion != "" {
		var err error
		sa.major, sa.minor, sa.patch, err = registry.ParseVersion(sa.SlurmVersion)
		if err != nil {
			return err
		}
	}
	return nil
}

// Open builds the source described by the arguments.  Call Validate first.
func (sa *SourceArgs) Open() (sacct.Source, error) {
	if sa.InputFile != "" {
		f, err := os.Open(sa.InputFile)
		if err != nil {
			return nil, err
		}
		return &sacct.ReaderSource{
			Input: f, Major: sa.major, Minor: sa.minor, Patch: sa.patch,
		}, nil
	}
	src := &sacct.CommandSource{Sacct: sa.SacctCmd, Cluster: sa.Cluster}
	if sa.SlurmVersion != "" {
		return fixedVersionSource{src, sa.major, sa.minor, sa.patch}, nil
	}
	return src, nil
}

type fixedVersionSource struct {
	sacct.Source
	major, minor, patch int
}

func (f fixedVersionSource) Version() (int, int, int, error) {
	return f.major, f.minor, f.patch, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// History (time filter) selection; the modes are mutually exclusive.

type HistoryArgs struct {
	Spec history.Spec

	startDate     string
	endDate       string
	span          string
	days          uint
	historyStart  string
	historyResume bool
}

func (ha *HistoryArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&ha.startDate, "S", "", "Select records starting `yyyy-mm-dd` (also Nd, Nw)")
	fs.StringVar(&ha.endDate, "E", "", "Select records up to `yyyy-mm-dd` (also Nd, Nw)")
	fs.StringVar(&ha.span, "history", "", "Get `DD-HH` of history (days and hours back from now)")
	fs.UintVar(&ha.days, "history-days", 0, "Get `N` days of history")
	fs.StringVar(&ha.historyStart, "history-start", "", "Get history back to `yyyy-mm-dd`")
	fs.BoolVar(&ha.historyResume, "history-resume", false,
		"Resume from the watermark left by the previous run")
}

func (ha *HistoryArgs) Validate() error {
	modes := 0
	if ha.span != "" {
		ha.Spec = history.Spec{Mode: history.ModeSpan, Span: ha.span}
		modes++
	}
	if ha.days != 0 {
		ha.Spec = history.Spec{Mode: history.ModeDays, Days: ha.days}
		modes++
	}
	if ha.historyStart != "" {
		ha.Spec = history.Spec{Mode: history.ModeStart, StartDate: ha.historyStart}
		modes++
	}
	if ha.historyResume {
		ha.Spec = history.Spec{Mode: history.ModeResume}
		modes++
	}
	if ha.startDate != "" || ha.endDate != "" {
		if ha.startDate == "" {
			return errors.New("-E requires -S")
		}
		ha.Spec = history.Spec{
			Mode:      history.ModeExplicit,
			StartDate: ha.startDate,
			EndDate:   ha.endDate,
		}
		modes++
	}
	if modes > 1 {
		return errors.New("The history options are mutually exclusive, pick one")
	}
	// No option at all means a full historical load.
	return nil
}
