// The boundary to the accounting tool.  A Source answers two questions: what Slurm
// version is this, and what are the raw accounting records for a time window.  The real
// implementation shells out to sacct; a ReaderSource substitutes canned output for tests
// and offline loads.

package sacct

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"slurm2sql/history"
	"slurm2sql/registry"
)

type Source interface {
	// Version reports the detected Slurm version triple.
	Version() (major, minor, patch int, err error)

	// Query requests the named fields for all records in the window and returns the raw
	// delimited lines, one per record, fields in the exact order requested.
	Query(fields []string, filter history.Filter) (io.ReadCloser, error)
}

// CommandSource runs the real sacct.
type CommandSource struct {
	// Sacct is the command to run, default "sacct".
	Sacct string
	// Cluster, if nonempty, is passed as -M to query a named cluster.
	Cluster string
	// VersionCommand overrides the version probe, mostly for tests.
	VersionCommand []string
}

func (cs *CommandSource) command() string {
	if cs.Sacct != "" {
		return cs.Sacct
	}
	return "sacct"
}

func (cs *CommandSource) Version() (int, int, int, error) {
	cmdline := cs.VersionCommand
	if cmdline == nil {
		cmdline = []string{cs.command(), "--version"}
	}
	out, stderr, err := runSubprocess(cmdline[0], cmdline[1:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("Version detection failed: %w (stderr %q)", err, stderr)
	}
	major, minor, patch, err := registry.ParseVersion(out)
	if err != nil {
		return 0, 0, 0, err
	}
	return major, minor, patch, nil
}

func (cs *CommandSource) Query(fields []string, filter history.Filter) (io.ReadCloser, error) {
	args := []string{
		"-P",
		"--noheader",
		"--allusers",
		"--duplicates",
		"-o", strings.Join(fields, ","),
	}
	if cs.Cluster != "" {
		args = append(args, "-M", cs.Cluster)
	}
	args = append(args, filter.SacctArgs()...)
	out, stderr, err := runSubprocess(cs.command(), args)
	if err != nil {
		return nil, fmt.Errorf("sacct failed: %w (stderr %q)", err, stderr)
	}
	return io.NopCloser(strings.NewReader(out)), nil
}

// Run the program with the arguments, collecting its output.  If the program cannot run
// or exits nonzero then an error is returned along with stderr; otherwise stdout and
// stderr are returned.
func runSubprocess(programPath string, arguments []string) (string, string, error) {
	cmd := exec.Command(programPath, arguments...)
	var stdout strings.Builder
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	errs := stderr.String()
	if err != nil {
		return "", errs, errors.Join(fmt.Errorf("While running %s", programPath), err)
	}
	return stdout.String(), errs, nil
}

// ReaderSource serves pre-captured sacct output with a fixed version.  The field list and
// time filter are accepted but ignored; the caller owns the fidelity of the input.
type ReaderSource struct {
	Input               io.Reader
	Major, Minor, Patch int
}

func (rs *ReaderSource) Version() (int, int, int, error) {
	return rs.Major, rs.Minor, rs.Patch, nil
}

func (rs *ReaderSource) Query(_ []string, _ history.Filter) (io.ReadCloser, error) {
	if rs.Input == nil {
		return nil, errors.New("No input configured")
	}
	return io.NopCloser(rs.Input), nil
}
