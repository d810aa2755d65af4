// Package store persists analysis runs. Two backends are provided:
// SQLite for single-user CLI use and Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Ticker string `json:"ticker,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	// SaveRun persists a run, assigning its ID and CreatedAt when unset.
	SaveRun(ctx context.Context, run *model.Run) error
	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// LatestRun retrieves the most recent run for a ticker, or nil when
	// the ticker has never been analyzed.
	LatestRun(ctx context.Context, ticker string) (*model.Run, error)
	// ListRuns retrieves runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// PruneRuns deletes runs created before the cutoff and reports how
	// many were removed.
	PruneRuns(ctx context.Context, before time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
