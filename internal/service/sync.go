package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/scrape"
)

// ErrAdminRequired is returned when a caller without admin capability
// attempts a restricted mutation.
var ErrAdminRequired = errors.New("admin capability required")

// Item statuses in a bulk report.
const (
	ItemSuccess = "success"
	ItemFailed  = "failed"
)

// BulkItem is the per-URL line of a batch report.
type BulkItem struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	VehicleID string `json:"vehicleId,omitempty"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkReport is the fixed-shape result of a batch sync. It is always
// produced, whatever mix of successes and failures the batch had.
type BulkReport struct {
	Total   int        `json:"total"`
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Items   []BulkItem `json:"items"`
}

// SyncOrchestrator drives bulk scraping: sequential per batch to bound
// load on the source site, partial-failure semantics per URL.
type SyncOrchestrator struct {
	registry   *scrape.Registry
	dedup      *DedupGate
	scheduler  *JobScheduler
	retryDelay time.Duration
	log        *slog.Logger
}

func NewSyncOrchestrator(registry *scrape.Registry, dedup *DedupGate, scheduler *JobScheduler, log *slog.Logger) *SyncOrchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &SyncOrchestrator{
		registry:   registry,
		dedup:      dedup,
		scheduler:  scheduler,
		retryDelay: 2 * time.Second,
		log:        log,
	}
}

// ScrapeBulk processes urls one at a time against org. A bad URL records a
// failed item and the batch moves on; the report always comes back whole.
func (o *SyncOrchestrator) ScrapeBulk(ctx context.Context, org string, urls []string, assignedUser string) *BulkReport {
	report := &BulkReport{Total: len(urls), Items: make([]BulkItem, 0, len(urls))}

	o.log.Info("bulk sync started", "org", org, "urls", len(urls))
	for _, url := range urls {
		item := o.syncOne(ctx, org, url, assignedUser)
		if item.Status == ItemSuccess {
			report.Success++
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, item)
	}
	o.log.Info("bulk sync finished",
		"org", org, "total", report.Total, "success", report.Success, "failed", report.Failed)
	return report
}

// syncOne creates, claims, and executes a job for one URL.
func (o *SyncOrchestrator) syncOne(ctx context.Context, org, url, assignedUser string) BulkItem {
	job, err := o.scheduler.Enqueue(ctx, org, url, assignedUser, nil)
	if err != nil {
		return BulkItem{URL: url, Status: ItemFailed, Error: err.Error()}
	}
	claimed, err := o.scheduler.Claim(ctx, job.ID)
	if err != nil || !claimed {
		if err == nil {
			err = errors.New("job already claimed")
		}
		return BulkItem{URL: url, Status: ItemFailed, Error: err.Error()}
	}
	return o.execute(ctx, job)
}

// execute runs the pipeline for a claimed job: scrape with one retry on
// retryable failures, stale-slug recovery on empty pages, dedup, persist.
func (o *SyncOrchestrator) execute(ctx context.Context, job *models.ScrapeJob) BulkItem {
	url := job.SourceURL

	rec, err := o.scrapeWithRetry(ctx, url)
	if err != nil {
		if errors.Is(err, scrape.ErrExtractionIncomplete) {
			if known := o.knownRecord(ctx, job); known != nil {
				item, recErr := o.recoverStale(ctx, job, known)
				if recErr == nil {
					return item
				}
				// The recovery failure, not the empty page, goes on the
				// job and the report.
				err = recErr
			}
		}
		o.failJob(ctx, job.ID, err)
		return BulkItem{URL: url, Status: ItemFailed, Error: err.Error()}
	}

	result, err := o.dedup.Admit(ctx, job.Organization, rec)
	if err != nil {
		o.failJob(ctx, job.ID, err)
		return BulkItem{URL: url, Status: ItemFailed, Error: err.Error()}
	}

	o.succeedJob(ctx, job.ID, result.VehicleID)
	if result.Decision == Skipped {
		// Already ingested is a normal outcome for the job, a failed line
		// in the report.
		return BulkItem{URL: url, Status: ItemFailed, Error: result.Reason}
	}
	return BulkItem{
		URL:       url,
		Status:    ItemSuccess,
		VehicleID: result.VehicleID,
		Title:     rec.Title(),
	}
}

// knownRecord returns the stored record behind a job's URL, or nil when the
// URL was never ingested and slug recovery has nothing to work from.
func (o *SyncOrchestrator) knownRecord(ctx context.Context, job *models.ScrapeJob) *models.VehicleRecord {
	known, err := o.dedup.Lookup(ctx, job.Organization, job.SourceURL)
	if err != nil {
		o.log.Error("stale-url lookup failed", "url", job.SourceURL, "error", err)
		return nil
	}
	return known
}

// recoverStale handles a known listing whose URL now renders an empty page:
// the site likely re-slugged it. Candidate URLs are derived from the stored
// record; the first one yielding a populated page refreshes it in place.
// Exhausting every candidate returns the resolver's ErrSlugUnresolved so the
// job surfaces as needing a human.
func (o *SyncOrchestrator) recoverStale(ctx context.Context, job *models.ScrapeJob, known *models.VehicleRecord) (BulkItem, error) {
	scraper, err := o.registry.For(job.SourceURL)
	if err != nil {
		return BulkItem{}, err
	}

	meta := scrape.VehicleMeta{
		ID:          known.ID,
		Year:        known.Year,
		Make:        known.Make,
		Model:       known.Model,
		StockNumber: known.StockNumber,
	}
	if len(known.Images) > 0 {
		meta.KnownImageURL = known.Images[0]
	}

	freshURL, err := scraper.ResolveSlug(ctx, job.SourceURL, meta)
	if err != nil {
		o.log.Warn("slug recovery failed", "url", job.SourceURL, "error", err)
		return BulkItem{}, err
	}

	rec, err := o.scrapeWithRetry(ctx, freshURL)
	if err != nil {
		return BulkItem{}, err
	}
	result, err := o.dedup.Refresh(ctx, job.Organization, known.ID, rec)
	if err != nil {
		return BulkItem{}, err
	}

	o.succeedJob(ctx, job.ID, result.VehicleID)
	return BulkItem{
		URL:       freshURL,
		Status:    ItemSuccess,
		VehicleID: result.VehicleID,
		Title:     rec.Title(),
	}, nil
}

func (o *SyncOrchestrator) scrapeWithRetry(ctx context.Context, url string) (*models.VehicleRecord, error) {
	scraper, err := o.registry.For(url)
	if err != nil {
		return nil, err
	}

	rec, err := scraper.Scrape(ctx, url)
	if err != nil && scrape.Retryable(err) && ctx.Err() == nil {
		o.log.Warn("scrape failed, retrying once", "url", url, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.retryDelay):
		}
		rec, err = scraper.Scrape(ctx, url)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (o *SyncOrchestrator) failJob(ctx context.Context, jobID string, cause error) {
	if err := o.scheduler.Fail(ctx, jobID, cause); err != nil {
		o.log.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}

func (o *SyncOrchestrator) succeedJob(ctx context.Context, jobID, vehicleID string) {
	if err := o.scheduler.Succeed(ctx, jobID, vehicleID); err != nil {
		o.log.Error("failed to record job success", "job_id", jobID, "error", err)
	}
}

// RunDueJobs claims and executes every scheduled job whose time has come,
// sequentially. Used by the server's background loop.
func (o *SyncOrchestrator) RunDueJobs(ctx context.Context, now time.Time) error {
	jobs, err := o.scheduler.DueJobs(ctx, now)
	if err != nil {
		return err
	}
	for i := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job := &jobs[i]
		claimed, err := o.scheduler.Claim(ctx, job.ID)
		if err != nil {
			o.log.Error("due-job claim failed", "job_id", job.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		o.execute(ctx, job)
	}
	return nil
}
