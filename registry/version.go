package registry

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version selection.  `sacct --version` prints a line of free text like "slurm 20.11.1"
// or "slurm 19.05.7-Bull.1.0"; we need only a (major, minor, patch) triple out of it and
// the patch may be absent.  The single compatibility break we care about is 20.11, where
// ReqGRES disappeared in favor of ReqTRES.

// MT: Constant after initialization; immutable
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func ParseVersion(s string) (major, minor, patch int, err error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		err = fmt.Errorf("No version number in %q", s)
		return
	}
	// The pattern guarantees digits; leading zeros ("19.05") are fine.
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return
}

// SelectVariant is deterministic and monotonic in the version: 20.11 and up get the TRES
// variant, everything older the legacy variant.
func SelectVariant(major, minor int) *Variant {
	if major > 20 || (major == 20 && minor >= 11) {
		return VariantTRES
	}
	return VariantLegacy
}
