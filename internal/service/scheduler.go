package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

// JobScheduler owns the scrape-job state machine. All status transitions go
// through it; the store only supplies the conditional writes that keep the
// sweep and the claim path from racing.
type JobScheduler struct {
	store       store.JobStore
	graceWindow time.Duration
	log         *slog.Logger
}

func NewJobScheduler(s store.JobStore, graceWindow time.Duration, log *slog.Logger) *JobScheduler {
	if graceWindow <= 0 {
		graceWindow = 2 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &JobScheduler{store: s, graceWindow: graceWindow, log: log}
}

// Enqueue creates a new job. With a scheduled time it enters scheduled,
// otherwise queued for immediate pickup.
func (s *JobScheduler) Enqueue(ctx context.Context, org, sourceURL, assignedUser string, scheduledTime *time.Time) (*models.ScrapeJob, error) {
	now := time.Now()
	job := &models.ScrapeJob{
		ID:            uuid.New().String()[:8],
		Organization:  org,
		SourceURL:     sourceURL,
		AssignedUser:  assignedUser,
		Status:        models.JobQueued,
		ScheduledTime: scheduledTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if scheduledTime != nil {
		job.Status = models.JobScheduled
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.log.Info("job created",
		"job_id", job.ID, "org", org, "url", sourceURL, "status", job.Status)
	return job, nil
}

// Claim attempts to take a job for execution. It reports false when the
// job is gone or another actor moved it first.
func (s *JobScheduler) Claim(ctx context.Context, id string) (bool, error) {
	claimed, err := s.store.ClaimJob(ctx, id)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	if !claimed {
		s.log.Debug("job claim lost", "job_id", id)
	}
	return claimed, nil
}

// Succeed moves a running job to succeeded, recording the vehicle it
// produced.
func (s *JobScheduler) Succeed(ctx context.Context, id, vehicleID string) error {
	return s.finish(ctx, id, models.JobSucceeded, vehicleID, "")
}

// Fail moves a running job to failed with the captured error. Distinct
// from stuck: the job executed and threw.
func (s *JobScheduler) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(ctx, id, models.JobFailed, "", msg)
}

func (s *JobScheduler) finish(ctx context.Context, id string, status models.JobStatus, vehicleID, errMsg string) error {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	if job == nil {
		return fmt.Errorf("finish job %s: not found", id)
	}

	job.Status = status
	job.VehicleID = vehicleID
	job.Error = errMsg
	job.UpdatedAt = time.Now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}

	if status == models.JobFailed {
		s.log.Error("job failed", "job_id", id, "error", errMsg)
	} else {
		s.log.Info("job succeeded", "job_id", id, "vehicle_id", vehicleID)
	}
	return nil
}

// Requeue puts a stuck or failed job back in the queue for another run.
func (s *JobScheduler) Requeue(ctx context.Context, id string) (*models.ScrapeJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("requeue job %s: %w", id, err)
	}
	if job == nil {
		return nil, fmt.Errorf("requeue job %s: not found", id)
	}
	if job.Status != models.JobStuck && job.Status != models.JobFailed {
		return nil, fmt.Errorf("requeue job %s: status %s is not requeueable", id, job.Status)
	}

	job.Status = models.JobQueued
	job.ScheduledTime = nil
	job.Error = ""
	job.UpdatedAt = time.Now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("requeue job %s: %w", id, err)
	}
	s.log.Info("job requeued", "job_id", id)
	return job, nil
}

// Update applies an operator patch to a job. Only whitelisted fields move
// and reassignment requires admin capability.
func (s *JobScheduler) Update(ctx context.Context, id string, patch JobPatch, admin bool) (*models.ScrapeJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	if job == nil {
		return nil, fmt.Errorf("update job %s: not found", id)
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("update job %s: unknown status %q", id, *patch.Status)
		}
		job.Status = *patch.Status
	}
	if patch.AssignedUser != nil {
		if !admin {
			return nil, ErrAdminRequired
		}
		job.AssignedUser = *patch.AssignedUser
	}
	if patch.ScheduledTime != nil {
		job.ScheduledTime = patch.ScheduledTime
	}

	job.UpdatedAt = time.Now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	return job, nil
}

// JobPatch is a partial job update. Nil fields are untouched.
type JobPatch struct {
	Status        *models.JobStatus
	AssignedUser  *string
	ScheduledTime *time.Time
}

// List returns jobs matching the filter, most recent first.
func (s *JobScheduler) List(ctx context.Context, filter store.JobFilter) ([]models.ScrapeJob, error) {
	return s.store.ListJobs(ctx, filter)
}

// Get returns one job, nil when absent.
func (s *JobScheduler) Get(ctx context.Context, id string) (*models.ScrapeJob, error) {
	return s.store.GetJob(ctx, id)
}

// Sweep reclassifies scheduled jobs whose time passed more than the grace
// window ago as stuck. The store write is conditional on the status still
// being scheduled, so a job claimed mid-sweep is left alone. Safe to run
// repeatedly.
func (s *JobScheduler) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.graceWindow)
	n, err := s.store.MarkStuck(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("stuck sweep: %w", err)
	}
	if n > 0 {
		s.log.Warn("stuck jobs detected", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// RunSweeper runs the stuck sweep on interval until ctx is cancelled.
func (s *JobScheduler) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("stuck-job sweeper started", "interval", interval, "grace", s.graceWindow)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stuck-job sweeper stopped")
			return
		case now := <-ticker.C:
			if _, err := s.Sweep(ctx, now); err != nil {
				s.log.Error("stuck sweep failed", "error", err)
			}
		}
	}
}

// DueJobs lists scheduled jobs ready to run, oldest first.
func (s *JobScheduler) DueJobs(ctx context.Context, now time.Time) ([]models.ScrapeJob, error) {
	return s.store.ListDueJobs(ctx, now)
}
