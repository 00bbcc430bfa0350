// Package store keeps a history of generation runs.
//
// Every run that reaches the CLI or the HTTP API is recorded with its
// options, summary counts, diagnostics and stage durations so earlier
// cities can be listed and regenerated exactly.
//
// Two backends are provided:
//   - [FileStore]: one JSON file per run under the XDG data directory (CLI)
//   - [MongoStore]: a MongoDB collection shared by API instances
//
// # Usage
//
//	st, err := store.NewFileStore("")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	rec := store.NewRecord(result)
//	if err := st.Save(ctx, &rec); err != nil {
//	    return err
//	}
//	recent, err := st.List(ctx, 10)
package store

import (
	"context"
	"time"

	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 20

// RunRecord is the stored summary of one generation run.
type RunRecord struct {
	ID          string              `json:"id" bson:"_id"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	OptionsHash string              `json:"options_hash" bson:"options_hash"`
	Options     pipeline.Options    `json:"options" bson:"options"`
	Cached      bool                `json:"cached" bson:"cached"`
	Nodes       int                 `json:"nodes" bson:"nodes"`
	Edges       int                 `json:"edges" bson:"edges"`
	Blocks      int                 `json:"blocks" bson:"blocks"`
	Lots        int                 `json:"lots" bson:"lots"`
	Diagnostics citymap.Diagnostics `json:"diagnostics" bson:"diagnostics"`
	Durations   Durations           `json:"durations" bson:"durations"`
}

// Durations are per-stage wall times.
type Durations struct {
	Field       time.Duration `json:"field" bson:"field"`
	Streamlines time.Duration `json:"streamlines" bson:"streamlines"`
	Graph       time.Duration `json:"graph" bson:"graph"`
	Blocks      time.Duration `json:"blocks" bson:"blocks"`
	Lots        time.Duration `json:"lots" bson:"lots"`
	Total       time.Duration `json:"total" bson:"total"`
}

// NewRecord summarizes a pipeline result.
func NewRecord(res *pipeline.Result) RunRecord {
	return RunRecord{
		ID:          res.RunID,
		CreatedAt:   time.Now().UTC(),
		OptionsHash: res.OptionsHash,
		Options:     res.Options,
		Cached:      res.CacheInfo.RunHit,
		Nodes:       res.Stats.Nodes,
		Edges:       res.Stats.Edges,
		Blocks:      res.Stats.Blocks,
		Lots:        res.Stats.Lots,
		Diagnostics: res.Diagnostics,
		Durations: Durations{
			Field:       res.Stats.FieldTime,
			Streamlines: res.Stats.TraceTime,
			Graph:       res.Stats.GraphTime,
			Blocks:      res.Stats.BlockTime,
			Lots:        res.Stats.LotTime,
			Total:       res.Stats.TotalTime,
		},
	}
}

// Store is the interface for run history backends.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *RunRecord) error

	// Get returns a record by id. A missing run fails with RUN_NOT_FOUND.
	Get(ctx context.Context, id string) (*RunRecord, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]RunRecord, error)

	// Delete removes a record. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeRunNotFound, "run %s not found", id)
}

func validateRecord(rec *RunRecord) error {
	if rec == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil run record")
	}
	return errors.ValidateRunID(rec.ID)
}
