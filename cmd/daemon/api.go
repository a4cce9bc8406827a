// The monitoring endpoint, GET /status.  Huma gives us the OpenAPI description and docs
// for free at /openapi.json and /docs.

package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"slurm2sql/db"
	"slurm2sql/units"
)

type statusOutput struct {
	Body struct {
		Rounds    int    `json:"rounds" doc:"Ingestion rounds attempted since startup"`
		LastRun   string `json:"last_run,omitempty" doc:"Wall-clock time of the last round"`
		LastError string `json:"last_error,omitempty" doc:"Error from the last round, empty on success"`
		Rows      int    `json:"rows" doc:"Rows loaded by the last successful round"`
		Dropped   int    `json:"dropped" doc:"Records dropped by the last successful round"`
		Columns   string `json:"columns,omitempty" doc:"Active column set, by Slurm version"`
		Watermark string `json:"watermark,omitempty" doc:"Resume point recorded in the database"`
	}
}

func (dc *DaemonCommand) newStatusAPI(store db.Store) http.Handler {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("slurm2sql", "1.0.0"))
	huma.Get(api, "/status", func(_ context.Context, _ *struct{}) (*statusOutput, error) {
		out := new(statusOutput)
		dc.mu.Lock()
		out.Body.Rounds = dc.rounds
		if !dc.lastTime.IsZero() {
			out.Body.LastRun = dc.lastTime.Format(time.RFC3339)
		}
		out.Body.LastError = dc.lastErr
		out.Body.Rows = dc.last.Rows
		out.Body.Dropped = dc.last.Dropped
		out.Body.Columns = dc.last.Variant
		dc.mu.Unlock()
		// Both backends are safe for a concurrent probe.
		if wm, present, err := store.GetLastTimestamp(); err == nil && present {
			out.Body.Watermark = units.SlurmTimestamp(wm)
		}
		return out, nil
	})
	return mux
}
