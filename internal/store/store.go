// Package store defines the persistence boundary for vehicles and jobs.
//
// Two implementations exist: the in-memory store in this package and the
// SurrealDB-backed client in internal/db. Services are constructed against
// the interface so the backing can be swapped without touching orchestration.
package store

import (
	"context"
	"time"

	"github.com/openlot/dealsync-go/internal/models"
)

// JobFilter narrows ListJobs. Zero values mean "any".
type JobFilter struct {
	Organization string
	Status       models.JobStatus
	AssignedUser string
}

// VehicleStore persists scraped listings, keyed by (organization, vin)
// when the VIN is present and (organization, source_url) otherwise.
type VehicleStore interface {
	// CreateVehicle inserts a new record and returns its generated ID.
	CreateVehicle(ctx context.Context, rec *models.VehicleRecord) (string, error)

	// UpdateVehicle replaces an existing record by ID.
	UpdateVehicle(ctx context.Context, rec *models.VehicleRecord) error

	// FindVehicleByVIN returns nil, nil when no record matches.
	FindVehicleByVIN(ctx context.Context, org, vin string) (*models.VehicleRecord, error)

	// FindVehicleBySourceURL returns nil, nil when no record matches.
	FindVehicleBySourceURL(ctx context.Context, org, sourceURL string) (*models.VehicleRecord, error)

	CountVehicles(ctx context.Context, org string) (int, error)
}

// JobStore persists scrape jobs. Status transitions are decided by the
// scheduler; the store only offers the conditional writes the scheduler
// needs to stay race-free against the sweep.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.ScrapeJob) error

	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, id string) (*models.ScrapeJob, error)

	ListJobs(ctx context.Context, filter JobFilter) ([]models.ScrapeJob, error)

	// UpdateJob replaces the stored job unconditionally.
	UpdateJob(ctx context.Context, job *models.ScrapeJob) error

	// ClaimJob moves a job to running only if it is still scheduled or
	// queued at write time. Reports whether the claim won.
	ClaimJob(ctx context.Context, id string) (bool, error)

	// MarkStuck reclassifies every job still scheduled with a scheduled time
	// before cutoff. The write is conditional on status, so a job claimed
	// between read and write is left alone. Returns the number reclassified.
	MarkStuck(ctx context.Context, cutoff time.Time) (int, error)

	// ListDueJobs returns scheduled jobs whose scheduled time is at or
	// before now, oldest first.
	ListDueJobs(ctx context.Context, now time.Time) ([]models.ScrapeJob, error)
}

// Store is the full persistence surface.
type Store interface {
	VehicleStore
	JobStore
}
