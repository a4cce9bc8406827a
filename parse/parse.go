// Parser for raw sacct output: one `|`-delimited line per record, fields in the exact
// order requested from sacct, loosely typed text in, typed rows out.

package parse

import (
	"bufio"
	"io"
	"strings"
	"time"

	. "slurm2sql/common"
	"slurm2sql/registry"
)

const fieldDelimiter = "|"

// Values sacct prints when it does not know a thing yet.  These become null without
// consulting the column's converter - an absent value is not a parse error.
func isSentinel(s string) bool {
	switch s {
	case "", "Unknown", "None", "INVALID":
		return true
	}
	return false
}

// Records parses everything on input against the active variant.  One Row per parseable
// record; records that cannot be parsed are counted in dropped and skipped, they never
// abort the parse.  now is the wall-clock time used for derived timestamps.
func Records(
	input io.Reader,
	variant *registry.Variant,
	now time.Time,
	verbose bool,
) (rows []registry.Row, dropped int, err error) {
	fields := variant.UpstreamFields()
	rows = make([]registry.Row, 0)
	nowUnix := now.Unix()

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row, ok := record(line, fields, variant, nowUnix, verbose)
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if err = scanner.Err(); err != nil {
		return nil, dropped, err
	}
	return rows, dropped, nil
}

func record(
	line string,
	fields []string,
	variant *registry.Variant,
	now int64,
	verbose bool,
) (registry.Row, bool) {
	pieces := strings.Split(line, fieldDelimiter)

	// If there are more pieces than fields then the job name contains the delimiter; the
	// JobName field is requested last exactly so that the excess can be folded back in.
	for len(pieces) > len(fields) {
		pieces[len(pieces)-2] += fieldDelimiter + pieces[len(pieces)-1]
		pieces = pieces[:len(pieces)-1]
	}
	if len(pieces) != len(fields) {
		if verbose {
			Log.Infof("Dropping record with %d fields, expected %d", len(pieces), len(fields))
		}
		return nil, false
	}

	raw := make(registry.RawFields, len(fields))
	for i, name := range fields {
		raw[name] = pieces[i]
	}

	row := make(registry.Row, len(variant.Columns))
	pos := 0
	for _, col := range variant.Columns {
		if col.Derived {
			continue
		}
		val := pieces[pos]
		pos++
		if isSentinel(val) {
			row[col.Name] = nil
			continue
		}
		if col.Convert == nil {
			row[col.Name] = val
			continue
		}
		typed, err := col.Convert(val)
		if err != nil {
			if verbose {
				Log.Infof("Dropping record with unparseable %s %q: %v", col.Name, val, err)
			}
			return nil, false
		}
		row[col.Name] = typed
	}

	// Derived columns see the completed positional row.
	for _, col := range variant.Columns {
		if col.Derived {
			row[col.Name] = col.Derive(raw, row, now)
		}
	}

	return row, true
}

// JobsOnly filters out step records, keeping one row per job.
func JobsOnly(rows []registry.Row) []registry.Row {
	jobs := make([]registry.Row, 0, len(rows))
	for _, row := range rows {
		if step, ok := row["JobStep"].(string); ok && step == "" {
			jobs = append(jobs, row)
		}
	}
	return jobs
}
