// Incremental-load bookkeeping: translate the run mode into the time filter handed to
// sacct, and decide how far the watermark advances after a successful run.
//
// The watermark itself lives in the output store (db.Store) so data and bookkeeping can
// never be split across targets; this package is the only reader and, together with the
// orchestrator's explicit advance, the only writer.

package history

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	. "slurm2sql/common"
	"slurm2sql/db"
	"slurm2sql/units"
)

type Mode int

const (
	// ModeAll: no time filter at all, load the full history.
	ModeAll Mode = iota
	// ModeExplicit: -S and optionally -E, literal dates.
	ModeExplicit
	// ModeSpan: -history=DD-HH, a relative window of days and hours back from now.
	ModeSpan
	// ModeDays: -history-days=N, N days back through now.
	ModeDays
	// ModeStart: -history-start=YYYY-MM-DD through now.
	ModeStart
	// ModeResume: pick up where the previous run's watermark left off.
	ModeResume
)

// Filter is the ephemeral time window for one run.  Zero Start means unbounded (full
// history); zero End means "through now".  It is never persisted.
type Filter struct {
	Start int64
	End   int64
}

// SacctArgs renders the filter as sacct -S/-E arguments.
func (f Filter) SacctArgs() []string {
	args := []string{}
	if f.Start != 0 {
		args = append(args, "-S", units.SlurmTimestamp(f.Start))
	}
	if f.End != 0 {
		args = append(args, "-E", units.SlurmTimestamp(f.End))
	}
	return args
}

// Spec carries the raw option values; exactly one mode applies per run.
type Spec struct {
	Mode      Mode
	StartDate string // ModeExplicit, ModeStart: YYYY-MM-DD or Nd/Nw
	EndDate   string // ModeExplicit only, may be empty
	Span      string // ModeSpan: DD-HH
	Days      uint   // ModeDays
}

// MT: Constant after initialization; immutable
var spanRe = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ComputeFilter turns the spec into a concrete window.  Resume mode reads the watermark
// from the store; if no run has ever recorded one it falls back to a full load and says
// so, it does not fail.
func ComputeFilter(spec Spec, store db.Store, now time.Time) (Filter, error) {
	switch spec.Mode {
	case ModeAll:
		return Filter{}, nil

	case ModeExplicit, ModeStart:
		start, err := ParseRelativeDate(now, spec.StartDate)
		if err != nil {
			return Filter{}, fmt.Errorf("Invalid start date %q", spec.StartDate)
		}
		f := Filter{Start: start.Unix()}
		if spec.Mode == ModeExplicit && spec.EndDate != "" {
			end, err := ParseRelativeDate(now, spec.EndDate)
			if err != nil {
				return Filter{}, fmt.Errorf("Invalid end date %q", spec.EndDate)
			}
			f.End = end.Unix()
		}
		return f, nil

	case ModeSpan:
		m := spanRe.FindStringSubmatch(spec.Span)
		if m == nil {
			return Filter{}, fmt.Errorf("Invalid -history span %q, expected DD-HH", spec.Span)
		}
		days, _ := strconv.ParseInt(m[1], 10, 32)
		hours, _ := strconv.ParseInt(m[2], 10, 32)
		return Filter{Start: now.Unix() - days*86400 - hours*3600}, nil

	case ModeDays:
		return Filter{Start: ThisDay(now.AddDate(0, 0, -int(spec.Days))).Unix()}, nil

	case ModeResume:
		last, ok, err := store.GetLastTimestamp()
		if err != nil {
			return Filter{}, fmt.Errorf("Failed to read watermark: %w", err)
		}
		if !ok {
			Log.Infof("No watermark recorded yet, falling back to a full load")
			return Filter{}, nil
		}
		Log.Infof("Resuming from %s", units.SlurmTimestamp(last))
		return Filter{Start: last}, nil
	}
	return Filter{}, errors.New("Unknown history mode")
}

// Advance moves the watermark after a fully successful run.  newest is the maximum Time
// value observed across the run's rows; when the window was empty there is nothing to
// anchor on, so relative and resume modes advance to "now" to guarantee forward progress,
// and the watermark never moves backwards.
func Advance(store db.Store, spec Spec, newest int64, now time.Time) error {
	t := newest
	if t == 0 {
		switch spec.Mode {
		case ModeResume, ModeDays, ModeSpan:
			t = now.Unix()
		default:
			return nil
		}
	}
	if last, ok, err := store.GetLastTimestamp(); err == nil && ok && last > t {
		return nil
	}
	return store.SetLastTimestamp(t)
}
