package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openlot/dealsync-go/internal/models"
)

// Memory is an in-process Store. It backs tests and single-node runs where
// durability is not required.
type Memory struct {
	mu       sync.RWMutex
	vehicles map[string]*models.VehicleRecord
	jobs     map[string]*models.ScrapeJob
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		vehicles: make(map[string]*models.VehicleRecord),
		jobs:     make(map[string]*models.ScrapeJob),
	}
}

func (m *Memory) CreateVehicle(ctx context.Context, rec *models.VehicleRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	if _, exists := m.vehicles[id]; exists {
		return "", fmt.Errorf("vehicle %s already exists", id)
	}

	cp := *rec
	cp.ID = id
	cp.Images = slices.Clone(rec.Images)
	m.vehicles[id] = &cp
	return id, nil
}

func (m *Memory) UpdateVehicle(ctx context.Context, rec *models.VehicleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vehicles[rec.ID]; !exists {
		return fmt.Errorf("vehicle %s not found", rec.ID)
	}
	cp := *rec
	cp.Images = slices.Clone(rec.Images)
	m.vehicles[rec.ID] = &cp
	return nil
}

func (m *Memory) FindVehicleByVIN(ctx context.Context, org, vin string) (*models.VehicleRecord, error) {
	if vin == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.vehicles {
		if v.Organization == org && v.VIN == vin {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindVehicleBySourceURL(ctx context.Context, org, sourceURL string) (*models.VehicleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.vehicles {
		if v.Organization == org && v.SourceURL == sourceURL {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) CountVehicles(ctx context.Context, org string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, v := range m.vehicles {
		if v.Organization == org {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateJob(ctx context.Context, job *models.ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (*models.ScrapeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *Memory) ListJobs(ctx context.Context, filter JobFilter) ([]models.ScrapeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ScrapeJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		if filter.Organization != "" && j.Organization != filter.Organization {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.AssignedUser != "" && j.AssignedUser != filter.AssignedUser {
			continue
		}
		out = append(out, *j)
	}

	// Most recent first, matching the durable store's ordering.
	slices.SortFunc(out, func(a, b models.ScrapeJob) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateJob(ctx context.Context, job *models.ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}
	cp := *job
	cp.UpdatedAt = time.Now()
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) ClaimJob(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return false, fmt.Errorf("job %s not found", id)
	}
	if j.Status != models.JobScheduled && j.Status != models.JobQueued {
		return false, nil
	}
	j.Status = models.JobRunning
	j.Attempts++
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) MarkStuck(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, j := range m.jobs {
		if j.Status != models.JobScheduled || j.ScheduledTime == nil {
			continue
		}
		if j.ScheduledTime.Before(cutoff) {
			j.Status = models.JobStuck
			j.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListDueJobs(ctx context.Context, now time.Time) ([]models.ScrapeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ScrapeJob, 0)
	for _, j := range m.jobs {
		if j.Status != models.JobScheduled || j.ScheduledTime == nil {
			continue
		}
		if !j.ScheduledTime.After(now) {
			out = append(out, *j)
		}
	}
	slices.SortFunc(out, func(a, b models.ScrapeJob) int {
		return a.ScheduledTime.Compare(*b.ScheduledTime)
	})
	return out, nil
}
