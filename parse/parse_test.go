package parse

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"slurm2sql/registry"
	"slurm2sql/units"
)

func mustUnixtime(t *testing.T, s string) int64 {
	n, err := units.Unixtime(s)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func parseFile(t *testing.T, name string, variant *registry.Variant) ([]registry.Row, int) {
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, dropped, err := Records(f, variant, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	return rows, dropped
}

func rowByID(t *testing.T, rows []registry.Row, id string) registry.Row {
	for _, r := range rows {
		if r["JobIDSlurm"] == id {
			return r
		}
	}
	t.Fatalf("No row with JobIDSlurm %q", id)
	return nil
}

func TestRecordsBasic(t *testing.T) {
	rows, dropped := parseFile(t, "test-data1.txt", registry.VariantLegacy)
	if len(rows) != 5 || dropped != 0 {
		t.Fatalf("Got %d rows, %d dropped; want 5, 0", len(rows), dropped)
	}

	job := rowByID(t, rows, "43974388")
	if job["JobID"] != int64(43974388) {
		t.Errorf("JobID = %v", job["JobID"])
	}
	if job["JobName"] != "spawner-jupyterhub" {
		t.Errorf("JobName = %v", job["JobName"])
	}
	if job["Start"] != mustUnixtime(t, "2019-08-01T00:49:14") {
		t.Errorf("Start = %v", job["Start"])
	}
	if job["Elapsed"] != int64(3600+13*60+25) {
		t.Errorf("Elapsed = %v", job["Elapsed"])
	}
	if job["ReqMem"] != int64(8)<<30 {
		t.Errorf("ReqMem = %v", job["ReqMem"])
	}
	if job["ReqGPUS"] != "*=1" {
		t.Errorf("ReqGPUS = %v", job["ReqGPUS"])
	}
	if job["JobStep"] != "" {
		t.Errorf("JobStep = %v", job["JobStep"])
	}
	if job["ArrayTaskID"] != nil {
		t.Errorf("ArrayTaskID = %v", job["ArrayTaskID"])
	}
}

func TestDelimiterInJobName(t *testing.T) {
	rows, _ := parseFile(t, "test-data1.txt", registry.VariantLegacy)
	job := rowByID(t, rows, "43977780")
	if job["JobName"] != "kb|pipeline" {
		t.Errorf("JobName = %v", job["JobName"])
	}
	if job["ReqGPUS"] != "v100=2" {
		t.Errorf("ReqGPUS = %v", job["ReqGPUS"])
	}
}

func TestTimeFallback(t *testing.T) {
	rows, _ := parseFile(t, "test-data1.txt", registry.VariantLegacy)

	// End known: Time is the end time.
	done := rowByID(t, rows, "43974388")
	if done["Time"] != mustUnixtime(t, "2019-08-01T02:02:39") {
		t.Errorf("Time = %v", done["Time"])
	}

	// End unknown but started: the job is still running, Time is "now".
	now := time.Now().Unix()
	running := rowByID(t, rows, "43977780")
	if tm, ok := running["Time"].(int64); !ok || tm < now-5 || tm > now+5 {
		t.Errorf("Time = %v, want about %d", running["Time"], now)
	}

	// Step with neither start nor end: Time is the step's own submit time, not anything
	// inherited from the parent job.
	step := rowByID(t, rows, "43977780.batch")
	if step["Time"] != mustUnixtime(t, "2019-08-01T00:35:27") {
		t.Errorf("Time = %v", step["Time"])
	}
	if step["Start"] != nil || step["End"] != nil {
		t.Errorf("Start/End = %v/%v, want null", step["Start"], step["End"])
	}
	if step["JobStep"] != "batch" {
		t.Errorf("JobStep = %v", step["JobStep"])
	}
	if step["User"] != nil {
		t.Errorf("User = %v, want null", step["User"])
	}
}

func TestJobsOnly(t *testing.T) {
	rows, _ := parseFile(t, "test-data1.txt", registry.VariantLegacy)
	jobs := JobsOnly(rows)
	if len(jobs) != 2 {
		t.Fatalf("Got %d job rows, want 2", len(jobs))
	}
}

func TestVariantColumns(t *testing.T) {
	rows, dropped := parseFile(t, "test-data2.txt", registry.VariantTRES)
	if len(rows) != 5 || dropped != 0 {
		t.Fatalf("Got %d rows, %d dropped; want 5, 0", len(rows), dropped)
	}
	job := rowByID(t, rows, "43974388")
	if _, present := job["ReqTRES"]; !present {
		t.Error("ReqTRES missing from tres-variant row")
	}
	if _, present := job["ReqGRES"]; present {
		t.Error("ReqGRES must not appear in a tres-variant row")
	}
}

func TestStructuralFailure(t *testing.T) {
	input := "1|2|3\n"
	rows, dropped, err := Records(strings.NewReader(input), registry.VariantLegacy, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 || dropped != 1 {
		t.Errorf("Got %d rows, %d dropped; want 0, 1", len(rows), dropped)
	}
}

func TestFieldFailureSkipsRecord(t *testing.T) {
	f, err := os.Open("testdata/test-data1.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var good bytes.Buffer
	if _, err := good.ReadFrom(f); err != nil {
		t.Fatal(err)
	}
	// Corrupt the Start timestamp of the first record.
	bad := strings.Replace(good.String(), "2019-08-01T00:49:14", "yesterday-ish", 1)
	rows, dropped, err := Records(strings.NewReader(bad), registry.VariantLegacy, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || dropped != 1 {
		t.Errorf("Got %d rows, %d dropped; want 4, 1", len(rows), dropped)
	}
}

func TestArrayTask(t *testing.T) {
	line := strings.Replace(readFirstLine(t, "testdata/test-data1.txt"), "43974388", "43974388_7", 1)
	rows, dropped, err := Records(strings.NewReader(line+"\n"), registry.VariantLegacy, time.Now(), false)
	if err != nil || dropped != 0 || len(rows) != 1 {
		t.Fatalf("rows %d dropped %d err %v", len(rows), dropped, err)
	}
	row := rows[0]
	if row["JobID"] != int64(43974388) {
		t.Errorf("JobID = %v", row["JobID"])
	}
	if row["ArrayTaskID"] != int64(7) {
		t.Errorf("ArrayTaskID = %v", row["ArrayTaskID"])
	}
	if row["JobIDSlurm"] != "43974388_7" {
		t.Errorf("JobIDSlurm = %v", row["JobIDSlurm"])
	}
}

func readFirstLine(t *testing.T, fn string) string {
	data, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return line
}
