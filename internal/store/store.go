// Package store persists the batch-job ledger so that long-running remote
// jobs can be audited and resumed after the process exits.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finfluencer-cli/internal/model"
)

var (
	// ErrJobNotFound is returned when no job has the requested id.
	ErrJobNotFound = eris.New("store: job not found")
	// ErrInvalidTransition is returned when an update would move a job
	// backwards or out of a terminal state.
	ErrInvalidTransition = eris.New("store: invalid job status transition")
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status   model.JobStatus `json:"status,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for batch jobs.
type Store interface {
	CreateJob(ctx context.Context, job *model.BatchJob) error
	UpdateJob(ctx context.Context, job *model.BatchJob) error
	GetJob(ctx context.Context, id string) (*model.BatchJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.BatchJob, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a migrated store for the given driver. Supported drivers are
// "sqlite" (dsn is a file path) and "postgres" (dsn is a connection string).
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(driver) {
	case "", "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres", "postgresql":
		s, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

const defaultListLimit = 50

func checkTransition(id string, from, to model.JobStatus) error {
	if from == to {
		if from.Terminal() {
			return eris.Wrapf(ErrInvalidTransition, "job %s already %s", id, from)
		}
		return nil
	}
	if !from.CanTransition(to) {
		return eris.Wrapf(ErrInvalidTransition, "job %s: %s -> %s", id, from, to)
	}
	return nil
}
