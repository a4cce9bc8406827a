// Streaming ingestion from Kafka.  Each record value is a raw sacct payload, the same
// `sacct -P --noheader` text the periodic mode reads from the command, typically produced
// by a small forwarder running on the cluster's login node.  The watermark is not used in
// this mode; the broker's committed offsets play that role.

package daemon

import (
	"bytes"
	"context"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	. "slurm2sql/common"
	"slurm2sql/db"
	"slurm2sql/load"
	"slurm2sql/parse"
	"slurm2sql/registry"
)

const kafkaConsumerGroup = "slurm2sql-ingest"

// This runs on a goroutine and stays up until the process exits; broker trouble is logged
// and retried, not fatal.

func (dc *DaemonCommand) runKafka(store db.Store) {
	// The version was validated along with the other arguments.
	major, minor, _, _ := registry.ParseVersion(dc.SlurmVersion)
	variant := registry.SelectVariant(major, minor)
	if err := store.EnsureSchema(variant); err != nil {
		Log.Criticalf("Failed to create schema: %v", err)
		return
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(dc.KafkaBroker),
		kgo.ConsumerGroup(kafkaConsumerGroup),
		kgo.ConsumeTopics(dc.KafkaTopic),
	)
	if err != nil {
		// The broker could be down; surface it and give up, the service manager restarts us.
		Log.Criticalf("%s: Failed to create client: %v", dc.KafkaBroker, err)
		return
	}
	defer cl.Close()
	if dc.Verbose {
		Log.Infof("%s: Connected", dc.KafkaBroker)
	}

	ctx := context.Background()
	for {
		fetches := cl.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			// All errors are retried internally when fetching, but non-retriable errors
			// are returned from polls so that users can notice and take action.
			Log.Errorf("SOFT ERROR: Failed to fetch data: %v", errs)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			if dc.Verbose {
				Log.Infof("  %s: %d bytes", record.Topic, len(record.Value))
			}
			if err := dc.ingest(store, variant, record.Value); err != nil {
				Log.Errorf("SOFT ERROR: Failed to load payload from %s: %v", record.Topic, err)
			}
		}
		if err := cl.CommitUncommittedOffsets(ctx); err != nil {
			Log.Errorf("SOFT ERROR: Commit records failed: %v", err)
		}
	}
}

func (dc *DaemonCommand) ingest(store db.Store, variant *registry.Variant, payload []byte) error {
	rows, dropped, err := parse.Records(bytes.NewReader(payload), variant, time.Now(), dc.Verbose)
	if err != nil {
		dc.record(load.Stats{}, err)
		return err
	}
	if dc.JobsOnly {
		rows = parse.JobsOnly(rows)
	}
	if err := store.InsertRows(variant, rows); err != nil {
		dc.record(load.Stats{}, err)
		return err
	}
	dc.record(load.Stats{Variant: variant.Name, Rows: len(rows), Dropped: dropped}, nil)
	return nil
}
