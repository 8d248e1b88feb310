// Package db provides SurrealDB query functions for vehicle and job records.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Compile-time check: the client is a full store.
var _ store.Store = (*Client)(nil)

// vehicleRow mirrors the vehicle table. Optional columns are pointers so
// absent values round-trip as SurrealDB NONE instead of zero values.
type vehicleRow struct {
	ID            surrealmodels.RecordID `json:"id"`
	Organization  string                 `json:"organization"`
	SourceURL     string                 `json:"source_url"`
	VIN           *string                `json:"vin,omitempty"`
	Year          *string                `json:"year,omitempty"`
	Make          *string                `json:"make,omitempty"`
	Model         *string                `json:"model,omitempty"`
	BodyStyle     *string                `json:"body_style,omitempty"`
	Transmission  *string                `json:"transmission,omitempty"`
	ExteriorColor *string                `json:"exterior_color,omitempty"`
	InteriorColor *string                `json:"interior_color,omitempty"`
	FuelType      *string                `json:"fuel_type,omitempty"`
	StockNumber   *string                `json:"stock_number,omitempty"`
	Engine        *string                `json:"engine,omitempty"`
	Drivetrain    *string                `json:"drivetrain,omitempty"`
	Description   *string                `json:"description,omitempty"`
	Mileage       *int                   `json:"mileage,omitempty"`
	Doors         *int                   `json:"doors,omitempty"`
	Passengers    *int                   `json:"passengers,omitempty"`
	Price         *float64               `json:"price,omitempty"`
	Images        []string               `json:"images"`
	ScrapedAt     time.Time              `json:"scraped_at"`
}

type jobRow struct {
	ID            surrealmodels.RecordID `json:"id"`
	Organization  string                 `json:"organization"`
	SourceURL     string                 `json:"source_url"`
	AssignedUser  *string                `json:"assigned_user,omitempty"`
	Status        string                 `json:"status"`
	ScheduledTime *time.Time             `json:"scheduled_time,omitempty"`
	Attempts      int                    `json:"attempts"`
	VehicleID     *string                `json:"vehicle_id,omitempty"`
	Error         *string                `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func vehicleContent(rec *models.VehicleRecord) map[string]any {
	images := rec.Images
	if images == nil {
		images = []string{}
	}
	scrapedAt := rec.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}
	return map[string]any{
		"organization":   rec.Organization,
		"source_url":     rec.SourceURL,
		"vin":            strPtr(rec.VIN),
		"year":           strPtr(rec.Year),
		"make":           strPtr(rec.Make),
		"model":          strPtr(rec.Model),
		"body_style":     strPtr(rec.BodyStyle),
		"transmission":   strPtr(rec.Transmission),
		"exterior_color": strPtr(rec.ExteriorColor),
		"interior_color": strPtr(rec.InteriorColor),
		"fuel_type":      strPtr(rec.FuelType),
		"stock_number":   strPtr(rec.StockNumber),
		"engine":         strPtr(rec.Engine),
		"drivetrain":     strPtr(rec.Drivetrain),
		"description":    strPtr(rec.Description),
		"mileage":        rec.Mileage,
		"doors":          rec.Doors,
		"passengers":     rec.Passengers,
		"price":          rec.Price,
		"images":         images,
		"scraped_at":     scrapedAt,
	}
}

func (r *vehicleRow) toModel() (*models.VehicleRecord, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.VehicleRecord{
		ID:            id,
		Organization:  r.Organization,
		SourceURL:     r.SourceURL,
		VIN:           strVal(r.VIN),
		Year:          strVal(r.Year),
		Make:          strVal(r.Make),
		Model:         strVal(r.Model),
		BodyStyle:     strVal(r.BodyStyle),
		Transmission:  strVal(r.Transmission),
		ExteriorColor: strVal(r.ExteriorColor),
		InteriorColor: strVal(r.InteriorColor),
		FuelType:      strVal(r.FuelType),
		StockNumber:   strVal(r.StockNumber),
		Engine:        strVal(r.Engine),
		Drivetrain:    strVal(r.Drivetrain),
		Description:   strVal(r.Description),
		Mileage:       r.Mileage,
		Doors:         r.Doors,
		Passengers:    r.Passengers,
		Price:         r.Price,
		Images:        r.Images,
		ScrapedAt:     r.ScrapedAt,
	}, nil
}

func (r *jobRow) toModel() (*models.ScrapeJob, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.ScrapeJob{
		ID:            id,
		Organization:  r.Organization,
		SourceURL:     r.SourceURL,
		AssignedUser:  strVal(r.AssignedUser),
		Status:        models.JobStatus(r.Status),
		ScheduledTime: r.ScheduledTime,
		Attempts:      r.Attempts,
		VehicleID:     strVal(r.VehicleID),
		Error:         strVal(r.Error),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func firstRow[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

// CreateVehicle inserts a new vehicle record and returns its generated ID.
// A unique-index violation surfaces as ErrAlreadyExists.
func (c *Client) CreateVehicle(ctx context.Context, rec *models.VehicleRecord) (string, error) {
	defer c.track()()

	id := rec.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}

	results, err := surrealdb.Query[[]vehicleRow](ctx, c.db, `
		CREATE type::record("vehicle", $id) CONTENT $data
	`, map[string]any{"id": id, "data": vehicleContent(rec)})
	if err != nil {
		return "", wrapQueryError(err)
	}
	if firstRow(results) == nil {
		return "", fmt.Errorf("create vehicle: empty result")
	}
	return id, nil
}

// UpdateVehicle replaces an existing vehicle record by ID.
func (c *Client) UpdateVehicle(ctx context.Context, rec *models.VehicleRecord) error {
	defer c.track()()

	if rec.ID == "" {
		return fmt.Errorf("update vehicle: %w", ErrNotFound)
	}
	results, err := surrealdb.Query[[]vehicleRow](ctx, c.db, `
		UPDATE type::record("vehicle", $id) CONTENT $data
	`, map[string]any{"id": rec.ID, "data": vehicleContent(rec)})
	if err != nil {
		return wrapQueryError(err)
	}
	if firstRow(results) == nil {
		return fmt.Errorf("update vehicle %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// FindVehicleByVIN returns nil, nil when no record matches.
func (c *Client) FindVehicleByVIN(ctx context.Context, org, vin string) (*models.VehicleRecord, error) {
	if vin == "" {
		return nil, nil
	}
	defer c.track()()

	results, err := surrealdb.Query[[]vehicleRow](ctx, c.db, `
		SELECT * FROM vehicle WHERE organization = $org AND vin = $vin LIMIT 1
	`, map[string]any{"org": org, "vin": vin})
	if err != nil {
		return nil, fmt.Errorf("find vehicle by vin: %w", err)
	}
	row := firstRow(results)
	if row == nil {
		return nil, nil
	}
	return row.toModel()
}

// FindVehicleBySourceURL returns nil, nil when no record matches.
func (c *Client) FindVehicleBySourceURL(ctx context.Context, org, sourceURL string) (*models.VehicleRecord, error) {
	defer c.track()()

	results, err := surrealdb.Query[[]vehicleRow](ctx, c.db, `
		SELECT * FROM vehicle WHERE organization = $org AND source_url = $url LIMIT 1
	`, map[string]any{"org": org, "url": sourceURL})
	if err != nil {
		return nil, fmt.Errorf("find vehicle by url: %w", err)
	}
	row := firstRow(results)
	if row == nil {
		return nil, nil
	}
	return row.toModel()
}

// CountVehicles returns the number of listings an organization holds.
func (c *Client) CountVehicles(ctx context.Context, org string) (int, error) {
	defer c.track()()

	type countRow struct {
		Count int `json:"count"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM vehicle WHERE organization = $org GROUP ALL
	`, map[string]any{"org": org})
	if err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	row := firstRow(results)
	if row == nil {
		return 0, nil
	}
	return row.Count, nil
}

func jobContent(job *models.ScrapeJob) map[string]any {
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return map[string]any{
		"organization":   job.Organization,
		"source_url":     job.SourceURL,
		"assigned_user":  strPtr(job.AssignedUser),
		"status":         string(job.Status),
		"scheduled_time": job.ScheduledTime,
		"attempts":       job.Attempts,
		"vehicle_id":     strPtr(job.VehicleID),
		"error":          strPtr(job.Error),
		"created_at":     createdAt,
		"updated_at":     time.Now(),
	}
}

// CreateJob inserts a new scrape job.
func (c *Client) CreateJob(ctx context.Context, job *models.ScrapeJob) error {
	defer c.track()()

	_, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		CREATE type::record("scrape_job", $id) CONTENT $data
	`, map[string]any{"id": job.ID, "data": jobContent(job)})
	if err != nil {
		return wrapQueryError(err)
	}
	return nil
}

// GetJob returns nil, nil when the job does not exist.
func (c *Client) GetJob(ctx context.Context, id string) (*models.ScrapeJob, error) {
	defer c.track()()

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		SELECT * FROM type::record("scrape_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	row := firstRow(results)
	if row == nil {
		return nil, nil
	}
	return row.toModel()
}

// ListJobs returns jobs matching the filter, most recent first.
func (c *Client) ListJobs(ctx context.Context, filter store.JobFilter) ([]models.ScrapeJob, error) {
	defer c.track()()

	sql := "SELECT * FROM scrape_job WHERE true"
	vars := map[string]any{}
	if filter.Organization != "" {
		sql += " AND organization = $org"
		vars["org"] = filter.Organization
	}
	if filter.Status != "" {
		sql += " AND status = $status"
		vars["status"] = string(filter.Status)
	}
	if filter.AssignedUser != "" {
		sql += " AND assigned_user = $user"
		vars["user"] = filter.AssignedUser
	}
	sql += " ORDER BY created_at DESC"

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.ScrapeJob{}, nil
	}

	rows := (*results)[0].Result
	jobs := make([]models.ScrapeJob, 0, len(rows))
	for i := range rows {
		j, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

// UpdateJob replaces the stored job unconditionally.
func (c *Client) UpdateJob(ctx context.Context, job *models.ScrapeJob) error {
	defer c.track()()

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		UPDATE type::record("scrape_job", $id) CONTENT $data
	`, map[string]any{"id": job.ID, "data": jobContent(job)})
	if err != nil {
		return wrapQueryError(err)
	}
	if firstRow(results) == nil {
		return fmt.Errorf("update job %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

// ClaimJob moves a job to running only if it is still claimable at write
// time. The status condition lives inside the UPDATE so the sweep and the
// orchestrator cannot both win the same job.
func (c *Client) ClaimJob(ctx context.Context, id string) (bool, error) {
	defer c.track()()

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		UPDATE type::record("scrape_job", $id) SET
			status = "running",
			attempts += 1,
			updated_at = time::now()
		WHERE status IN ["scheduled", "queued"]
	`, map[string]any{"id": id})
	if err != nil {
		return false, wrapQueryError(err)
	}
	return firstRow(results) != nil, nil
}

// MarkStuck reclassifies scheduled jobs whose scheduled time is before
// cutoff. Conditional on status, so re-running it is a no-op and a job
// claimed in between is untouched.
func (c *Client) MarkStuck(ctx context.Context, cutoff time.Time) (int, error) {
	defer c.track()()

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		UPDATE scrape_job SET
			status = "stuck",
			updated_at = time::now()
		WHERE status = "scheduled" AND scheduled_time < $cutoff
	`, map[string]any{"cutoff": cutoff})
	if err != nil {
		return 0, wrapQueryError(err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// ListDueJobs returns scheduled jobs due at or before now, oldest first.
func (c *Client) ListDueJobs(ctx context.Context, now time.Time) ([]models.ScrapeJob, error) {
	defer c.track()()

	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		SELECT * FROM scrape_job
		WHERE status = "scheduled" AND scheduled_time <= $now
		ORDER BY scheduled_time ASC
	`, map[string]any{"now": now})
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.ScrapeJob{}, nil
	}

	rows := (*results)[0].Result
	jobs := make([]models.ScrapeJob, 0, len(rows))
	for i := range rows {
		j, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}
