// `slurm2sql daemon` - continuous ingestion.
//
// In the default mode the daemon wakes up every -every interval and performs an
// incremental load from sacct, resuming from the watermark left by the previous round.
// With -kafka-broker the daemon instead consumes raw sacct payloads from a Kafka topic
// and loads records as they arrive.
//
// An optional HTTP endpoint (enabled with -port) exposes GET /status with the state of
// the most recent round, for monitoring.
//
// The daemon logs to the syslog with the tag defined below ("logTag").  Sending SIGHUP or
// SIGTERM will shut it down in an orderly manner.  It tries hard to avoid exiting or
// panicking; a failed round is logged and retried at the next wakeup.

package daemon

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"slurm2sql/cmd"
	. "slurm2sql/common"
	"slurm2sql/db"
	"slurm2sql/history"
	"slurm2sql/httpsrv"
	"slurm2sql/load"
	"slurm2sql/status"
)

const (
	logTag          = "slurm2sql"
	defaultInterval = 30 * time.Minute
)

type DaemonCommand struct {
	cmd.VerboseArgs
	cmd.DatabaseArgs
	cmd.SourceArgs

	JobsOnly    bool
	Every       time.Duration
	Port        uint
	KafkaBroker string
	KafkaTopic  string

	// Mutable, accessed by the round runner and the status API concurrently.
	mu       sync.Mutex
	rounds   int
	lastTime time.Time
	lastErr  string
	last     load.Stats
}

var _ = cmd.Command((*DaemonCommand)(nil))

func (_ *DaemonCommand) Summary() []string {
	return []string{
		"Run continuous ingestion: periodic incremental loads from sacct,",
		"or streaming loads from a Kafka topic",
	}
}

func (dc *DaemonCommand) Add(fs *flag.FlagSet) {
	dc.VerboseArgs.Add(fs)
	dc.DatabaseArgs.Add(fs)
	dc.SourceArgs.Add(fs)
	fs.BoolVar(&dc.JobsOnly, "jobs-only", false, "Load only jobs, not their steps")
	fs.DurationVar(&dc.Every, "every", defaultInterval, "Wake up and load every `interval`")
	fs.UintVar(&dc.Port, "port", 0, "Expose GET /status on `port` (0 = no status API)")
	fs.StringVar(&dc.KafkaBroker, "kafka-broker", "",
		"Consume raw sacct payloads from this `host:port` instead of running sacct")
	fs.StringVar(&dc.KafkaTopic, "kafka-topic", "",
		"Kafka `topic` to consume (required with -kafka-broker)")
}

func (dc *DaemonCommand) Validate() error {
	var e1, e2, e3, e4, e5 error
	e1 = dc.VerboseArgs.Validate()
	e2 = dc.DatabaseArgs.Validate()
	e3 = dc.SourceArgs.Validate()
	if dc.Every <= 0 {
		e4 = errors.New("-every must be positive")
	}
	if dc.KafkaBroker != "" {
		if dc.KafkaTopic == "" {
			e5 = errors.New("-kafka-broker requires -kafka-topic")
		} else if dc.SlurmVersion == "" {
			// Records off the broker carry no version and there is no sacct to probe.
			e5 = errors.New("-kafka-broker requires -slurm-version")
		}
	}
	return errors.Join(e1, e2, e3, e4, e5)
}

func (dc *DaemonCommand) Perform(_, stderr io.Writer) error {
	status.Start(logTag)

	store, err := dc.DatabaseArgs.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	var programFailed bool
	if dc.Port != 0 {
		s := httpsrv.New(dc.Verbose, int(dc.Port), dc.newStatusAPI(store), func(err error) {
			programFailed = true
		})
		go s.Start()
		defer s.Stop()
	}

	if dc.KafkaBroker != "" {
		go dc.runKafka(store)
	} else {
		go dc.runPeriodic(store)
	}

	// Wait here until we're stopped by SIGHUP (manual) or SIGTERM (from OS during shutdown).
	waitForSignal(syscall.SIGHUP, syscall.SIGTERM)

	if programFailed {
		return fmt.Errorf("HTTP server failed to start, or errored out")
	}
	return nil
}

// The timer loop.  One round immediately on startup, then one per interval.  A failing
// round does not advance the watermark, so the next round re-covers the same window.

func (dc *DaemonCommand) runPeriodic(store db.Store) {
	ticker := time.NewTicker(dc.Every)
	defer ticker.Stop()
	for {
		dc.round(store)
		<-ticker.C
	}
}

func (dc *DaemonCommand) round(store db.Store) {
	src, err := dc.SourceArgs.Open()
	if err != nil {
		dc.record(load.Stats{}, err)
		Log.Errorf("Ingestion round failed: %v", err)
		return
	}
	stats, err := load.Sync(store, src, load.Options{
		Spec:     history.Spec{Mode: history.ModeResume},
		JobsOnly: dc.JobsOnly,
		Verbose:  dc.Verbose,
	})
	dc.record(stats, err)
	if err != nil {
		Log.Errorf("Ingestion round failed: %v", err)
		return
	}
	Log.Infof("Round complete: %d rows (%d dropped)", stats.Rows, stats.Dropped)
}

func (dc *DaemonCommand) record(stats load.Stats, err error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.rounds++
	dc.lastTime = time.Now()
	if err != nil {
		dc.lastErr = err.Error()
	} else {
		dc.lastErr = ""
		dc.last = stats
	}
}

func waitForSignal(signals ...os.Signal) {
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, signals...)
	<-stopSignal
}
