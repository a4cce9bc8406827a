package history

import (
	"testing"
	"time"

	"slurm2sql/db"
	"slurm2sql/registry"
	"slurm2sql/units"
)

func testStore(t *testing.T) db.Store {
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureSchema(registry.VariantLegacy); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestComputeFilterModes(t *testing.T) {
	store := testStore(t)
	now := time.Date(2019, 8, 10, 12, 30, 0, 0, time.Local)

	f, err := ComputeFilter(Spec{Mode: ModeAll}, store, now)
	if err != nil || f.Start != 0 || f.End != 0 {
		t.Errorf("ModeAll: %+v, %v", f, err)
	}

	f, err = ComputeFilter(Spec{Mode: ModeExplicit, StartDate: "2019-08-01", EndDate: "2019-08-05"},
		store, now)
	if err != nil {
		t.Fatal(err)
	}
	if units.SlurmTimestamp(f.Start) != "2019-08-01T00:00:00" ||
		units.SlurmTimestamp(f.End) != "2019-08-05T00:00:00" {
		t.Errorf("ModeExplicit: %s .. %s",
			units.SlurmTimestamp(f.Start), units.SlurmTimestamp(f.End))
	}

	f, err = ComputeFilter(Spec{Mode: ModeStart, StartDate: "2019-08-01"}, store, now)
	if err != nil || f.End != 0 {
		t.Errorf("ModeStart should leave End open: %+v, %v", f, err)
	}

	f, err = ComputeFilter(Spec{Mode: ModeDays, Days: 1}, store, now)
	if err != nil || units.SlurmTimestamp(f.Start) != "2019-08-09T00:00:00" {
		t.Errorf("ModeDays: %s, %v", units.SlurmTimestamp(f.Start), err)
	}

	f, err = ComputeFilter(Spec{Mode: ModeSpan, Span: "2-10"}, store, now)
	if err != nil || f.Start != now.Unix()-2*86400-10*3600 {
		t.Errorf("ModeSpan: %+v, %v", f, err)
	}
	if _, err := ComputeFilter(Spec{Mode: ModeSpan, Span: "nope"}, store, now); err == nil {
		t.Error("Bad span should fail")
	}
}

func TestResume(t *testing.T) {
	store := testStore(t)
	now := time.Now()

	// No watermark: full load, not an error.
	f, err := ComputeFilter(Spec{Mode: ModeResume}, store, now)
	if err != nil || f.Start != 0 {
		t.Errorf("Resume without watermark: %+v, %v", f, err)
	}

	if err := store.SetLastTimestamp(1564617759); err != nil {
		t.Fatal(err)
	}
	f, err = ComputeFilter(Spec{Mode: ModeResume}, store, now)
	if err != nil || f.Start != 1564617759 {
		t.Errorf("Resume: %+v, %v", f, err)
	}
}

func TestAdvance(t *testing.T) {
	store := testStore(t)
	now := time.Now()

	// Rows observed: watermark is the newest row time.
	if err := Advance(store, Spec{Mode: ModeDays, Days: 1}, 1000, now); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := store.GetLastTimestamp()
	if !ok || got != 1000 {
		t.Fatalf("Watermark = %d, want 1000", got)
	}

	// Empty window under resume: advance to now so progress is guaranteed.
	if err := Advance(store, Spec{Mode: ModeResume}, 0, now); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.GetLastTimestamp()
	if got != now.Unix() {
		t.Fatalf("Watermark = %d, want %d", got, now.Unix())
	}

	// Never backwards.
	if err := Advance(store, Spec{Mode: ModeDays, Days: 1}, 1000, now); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.GetLastTimestamp()
	if got != now.Unix() {
		t.Fatalf("Watermark regressed to %d", got)
	}

	// Empty window under an explicit filter: nothing to learn, watermark untouched.
	before := got
	if err := Advance(store, Spec{Mode: ModeExplicit, StartDate: "2019-01-01"}, 0, now); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.GetLastTimestamp()
	if got != before {
		t.Fatalf("Watermark moved on empty explicit window: %d", got)
	}
}
