package models

import "time"

// JobStatus represents the state of a scrape/post job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobScheduled JobStatus = "scheduled"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"

	// JobStuck marks a job whose scheduled time passed without it ever being
	// claimed. Distinct from failed: no execution happened, so there is no
	// error payload.
	JobStuck JobStatus = "stuck"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobQueued, JobScheduled, JobRunning, JobSucceeded, JobFailed, JobStuck:
		return true
	}
	return false
}

// ScrapeJob is one unit of scheduled scraping/posting work.
type ScrapeJob struct {
	ID            string     `json:"id"`
	Organization  string     `json:"organization"`
	SourceURL     string     `json:"source_url"`
	AssignedUser  string     `json:"assigned_user,omitempty"`
	Status        JobStatus  `json:"status"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	Attempts      int        `json:"attempts"`

	// Result: exactly one of VehicleID or Error is set on a terminal job.
	VehicleID string `json:"vehicle_id,omitempty"`
	Error     string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
