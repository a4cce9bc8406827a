package registry

import (
	"strconv"
	"strings"

	"slurm2sql/units"
)

// The column set.  Positional columns appear in the order they are requested from sacct;
// the capitalization is exactly as in the sacct man page.  JobName must be the last
// positional column: it is the one field that may itself contain the field delimiter,
// and the parser repairs that by folding excess pieces into the final one.
//
// Variants differ only in the resource-request column: Slurm 20.11 dropped ReqGRES in
// favor of ReqTRES.

func baseColumns(resourceRequest string) []Column {
	return []Column{
		{Name: "JobID", Type: Int, Convert: convJobID},
		{Name: "User", Type: Text},
		{Name: "Group", Type: Text},
		{Name: "Account", Type: Text},
		{Name: "State", Type: Text, Convert: convState},
		{Name: "Timelimit", Type: Int, Convert: convSlurmtime},
		{Name: "Elapsed", Type: Int, Convert: convSlurmtime},
		{Name: "Submit", Type: Int, Convert: convTimestamp},
		{Name: "Start", Type: Int, Convert: convTimestamp},
		{Name: "End", Type: Int, Convert: convTimestamp},
		{Name: "Partition", Type: Text},
		{Name: "NodeList", Type: Text},
		{Name: "Priority", Type: Int, Convert: convInt},
		{Name: "ReqCPUS", Type: Int, Convert: convInt},
		{Name: "ReqMem", Type: Int, Convert: convMem},
		{Name: "ReqNodes", Type: Int, Convert: convInt},
		{Name: resourceRequest, Type: Text},
		{Name: "AllocTRES", Type: Text},
		{Name: "NCPUS", Type: Int, Convert: convInt},
		{Name: "NNodes", Type: Int, Convert: convInt},
		{Name: "TotalCPU", Type: Real, Convert: convCPUTime},
		{Name: "UserCPU", Type: Real, Convert: convCPUTime},
		{Name: "SystemCPU", Type: Real, Convert: convCPUTime},
		{Name: "ExitCode", Type: Text},
		{Name: "MaxRSS", Type: Int, Convert: convBytes},
		{Name: "MaxVMSize", Type: Int, Convert: convBytes},
		{Name: "AveRSS", Type: Int, Convert: convBytes},
		{Name: "AveVMSize", Type: Int, Convert: convBytes},
		{Name: "MaxDiskRead", Type: Real, Convert: convFloatBytes},
		{Name: "MaxDiskWrite", Type: Real, Convert: convFloatBytes},
		{Name: "AveDiskRead", Type: Real, Convert: convFloatBytes},
		{Name: "AveDiskWrite", Type: Real, Convert: convFloatBytes},
		{Name: "JobName", Type: Text},

		{Name: "JobIDSlurm", Type: Text, Derived: true, Derive: deriveJobIDSlurm},
		{Name: "JobStep", Type: Text, Derived: true, Derive: deriveJobStep},
		{Name: "ArrayTaskID", Type: Int, Derived: true, Derive: deriveArrayTaskID},
		{Name: "ReqGPUS", Type: Text, Derived: true, Derive: deriveReqGPUS},
		{Name: "Time", Type: Int, Derived: true, Derive: deriveTime},
	}
}

// MT: Constant after initialization; immutable
var (
	VariantLegacy = &Variant{Name: "legacy", Columns: baseColumns("ReqGRES")}
	VariantTRES   = &Variant{Name: "tres", Columns: baseColumns("ReqTRES")}
)

//
// Converters
//

func convInt(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, units.ErrConversion
	}
	return n, nil
}

func convSlurmtime(s string) (any, error) {
	n, err := units.Slurmtime(s)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func convCPUTime(s string) (any, error) {
	f, err := units.CPUTime(s)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func convTimestamp(s string) (any, error) {
	t, err := units.Unixtime(s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func convBytes(s string) (any, error) {
	n, err := units.IntBytes(s)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func convFloatBytes(s string) (any, error) {
	f, err := units.FloatBytes(s)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReqMem carries a per-node or per-cpu marker in older Slurm versions, eg "64Gn" or "2Gc".
// We strip the marker and store bytes; the distinction has not been worth a column.
func convMem(s string) (any, error) {
	return convBytes(strings.TrimRight(s, "nc"))
}

// "CANCELLED by 12345" is just CANCELLED.
func convState(s string) (any, error) {
	if before, _, found := strings.Cut(s, " "); found {
		return before, nil
	}
	return s, nil
}

// The numeric part of the ID.  "43977780.batch" is job 43977780; for array tasks
// ("123_4") and het jobs ("123+1") the leading number is likewise the primary ID.
func convJobID(s string) (any, error) {
	base := s
	if before, _, found := strings.Cut(base, "."); found {
		base = before
	}
	if ix := strings.IndexAny(base, "_+"); ix != -1 {
		base = base[:ix]
	}
	n, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return nil, units.ErrConversion
	}
	return n, nil
}

//
// Derived columns
//

// The raw sacct ID, eg "43977780.batch", uniquely identifies a record and keys the table.
func deriveJobIDSlurm(raw RawFields, _ Row, _ int64) any {
	return raw["JobID"]
}

func deriveJobStep(raw RawFields, _ Row, _ int64) any {
	if _, after, found := strings.Cut(raw["JobID"], "."); found {
		return after
	}
	return ""
}

func deriveArrayTaskID(raw RawFields, _ Row, _ int64) any {
	base := raw["JobID"]
	if before, _, found := strings.Cut(base, "."); found {
		base = before
	}
	if _, after, found := strings.Cut(base, "_"); found {
		if n, err := strconv.ParseInt(after, 10, 64); err == nil {
			return n
		}
	}
	return nil
}

// Extract the gres/gpu requests from AllocTRES as a comma-separated list of model=n,
// with * standing in for "any model".  Eg "billing=2,gres/gpu:a100=1,mem=8G" -> "a100=1".
func deriveReqGPUS(raw RawFields, _ Row, _ int64) any {
	val := raw["AllocTRES"]
	var b strings.Builder
	for len(val) > 0 {
		var before string
		before, val, _ = strings.Cut(val, ",")
		if !strings.HasPrefix(before, "gres/gpu") {
			continue
		}
		rest := before[len("gres/gpu"):]
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if strings.HasPrefix(rest, "=") {
			b.WriteByte('*')
			b.WriteString(rest)
		} else if strings.HasPrefix(rest, ":") {
			b.WriteString(rest[1:])
		}
	}
	return b.String()
}

// The best known timestamp for the record's current lifecycle stage: finished jobs get
// their end time, running jobs the current time, and queued jobs their submit time.
// The incremental-sync watermark is computed from this column, so the fallback order
// must be evaluated per record - a step without its own start time uses its own submit
// time even when the parent job has started.
func deriveTime(_ RawFields, row Row, now int64) any {
	if end, ok := row["End"].(int64); ok {
		return end
	}
	if _, ok := row["Start"].(int64); ok {
		return now
	}
	if submit, ok := row["Submit"].(int64); ok {
		return submit
	}
	return nil
}
