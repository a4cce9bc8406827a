package registry

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		input               string
		major, minor, patch int
	}{
		{"slurm 20.11.1", 20, 11, 1},
		{"slurm 19.5.0", 19, 5, 0},
		{"slurm 19.05.7-Bull.1.0", 19, 5, 7},
		{"slurm 21.08", 21, 8, 0},
	}
	for _, c := range cases {
		major, minor, patch, err := ParseVersion(c.input)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", c.input, err)
		}
		if major != c.major || minor != c.minor || patch != c.patch {
			t.Errorf("ParseVersion(%q) = (%d,%d,%d), want (%d,%d,%d)",
				c.input, major, minor, patch, c.major, c.minor, c.patch)
		}
	}
	if _, _, _, err := ParseVersion("no digits here"); err == nil {
		t.Error("ParseVersion should fail on version-free text")
	}
}

func TestSelectVariant(t *testing.T) {
	cases := []struct {
		major, minor int
		want         *Variant
	}{
		{19, 5, VariantLegacy},
		{20, 10, VariantLegacy},
		{20, 11, VariantTRES}, // inclusive lower bound
		{20, 12, VariantTRES},
		{21, 0, VariantTRES},
	}
	for _, c := range cases {
		if got := SelectVariant(c.major, c.minor); got != c.want {
			t.Errorf("SelectVariant(%d,%d) = %s, want %s", c.major, c.minor, got.Name, c.want.Name)
		}
	}
}

func TestVariantShape(t *testing.T) {
	hasCol := func(v *Variant, name string) bool {
		_, found := v.Lookup(name)
		return found
	}
	if !hasCol(VariantTRES, "ReqTRES") || hasCol(VariantTRES, "ReqGRES") {
		t.Error("tres variant must expose ReqTRES and not ReqGRES")
	}
	if !hasCol(VariantLegacy, "ReqGRES") || hasCol(VariantLegacy, "ReqTRES") {
		t.Error("legacy variant must expose ReqGRES and not ReqTRES")
	}
	// Both variants have the same column count and request JobName last so that embedded
	// delimiters can be repaired.
	if len(VariantLegacy.Columns) != len(VariantTRES.Columns) {
		t.Error("variant shapes have diverged")
	}
	fields := VariantTRES.UpstreamFields()
	if fields[len(fields)-1] != "JobName" {
		t.Errorf("JobName must be the last requested field, got %s", fields[len(fields)-1])
	}
}
