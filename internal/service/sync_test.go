package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlot/dealsync-go/internal/browser"
	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/scrape"
	"github.com/openlot/dealsync-go/internal/store"
)

var syncProfiles = []scrape.Profile{{
	Name:            "edealer",
	Domains:         []string{"edealer.ca"},
	GallerySelector: ".gallery img",
	ImageHost:       "cdn.edealer.ca",
}}

func listingHTML(title string) string {
	return `<html><body><h1>` + title + `</h1>
	<div class="gallery"><img src="https://cdn.edealer.ca/42/a-1.jpg"></div>
	</body></html>`
}

func newTestOrchestrator(stub *browser.Stub, mem *store.Memory) *SyncOrchestrator {
	reg := scrape.NewRegistry(syncProfiles, scrape.Deps{Fetcher: stub})
	o := NewSyncOrchestrator(reg,
		NewDedupGate(mem, nil),
		NewJobScheduler(mem, 2*time.Minute, nil),
		nil)
	o.retryDelay = time.Millisecond
	return o
}

func TestScrapeBulkPartialFailure(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://d.edealer.ca/vehicles/1", &browser.Page{HTML: listingHTML("2023 Hyundai Elantra")})
	stub.AddError("https://d.edealer.ca/vehicles/2", errors.New("net::ERR_TIMED_OUT"))
	stub.AddPage("https://d.edealer.ca/vehicles/3", &browser.Page{HTML: listingHTML("2021 Kia Soul")})

	mem := store.NewMemory()
	o := newTestOrchestrator(stub, mem)

	report := o.ScrapeBulk(context.Background(), "org1", []string{
		"https://d.edealer.ca/vehicles/1",
		"https://d.edealer.ca/vehicles/2",
		"https://d.edealer.ca/vehicles/3",
	}, "u1")

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Items, 3)

	assert.Equal(t, ItemSuccess, report.Items[0].Status)
	assert.Equal(t, "2023 Hyundai Elantra", report.Items[0].Title)
	assert.NotEmpty(t, report.Items[0].VehicleID)

	assert.Equal(t, ItemFailed, report.Items[1].Status)
	assert.Contains(t, report.Items[1].Error, "page load failed")

	assert.Equal(t, ItemSuccess, report.Items[2].Status)

	count, err := mem.CountVehicles(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestScrapeBulkRetryOnPageLoad(t *testing.T) {
	stub := browser.NewStub()
	stub.AddError("https://d.edealer.ca/vehicles/1", errors.New("net::ERR_TIMED_OUT"))

	o := newTestOrchestrator(stub, store.NewMemory())
	report := o.ScrapeBulk(context.Background(), "org1", []string{"https://d.edealer.ca/vehicles/1"}, "")

	assert.Equal(t, 1, report.Failed)
	assert.Len(t, stub.Rendered, 2, "retryable failures get exactly one retry")
}

func TestScrapeBulkDuplicateReportsFailedItem(t *testing.T) {
	html := `<html><body><h1>2023 Hyundai Elantra</h1>
	<div class="gallery"><img src="https://cdn.edealer.ca/42/a-1.jpg"></div>
	</body></html>`
	stub := browser.NewStub()
	stub.AddPage("https://d.edealer.ca/vehicles/1", &browser.Page{
		HTML:      html,
		Hydration: map[string]any{"vehicle": map[string]any{"vin": "SALWS2RU3MA767985"}},
	})

	mem := store.NewMemory()
	o := newTestOrchestrator(stub, mem)
	ctx := context.Background()

	first := o.ScrapeBulk(ctx, "org1", []string{"https://d.edealer.ca/vehicles/1"}, "")
	require.Equal(t, 1, first.Success)

	second := o.ScrapeBulk(ctx, "org1", []string{"https://d.edealer.ca/vehicles/1"}, "")
	assert.Equal(t, 1, second.Failed)
	assert.Contains(t, second.Items[0].Error, "already exists")

	// The duplicate run is still a succeeded job, not a failed one.
	jobs, err := mem.ListJobs(ctx, store.JobFilter{Organization: "org1"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, models.JobSucceeded, j.Status)
	}
}

func TestScrapeBulkUnknownDomain(t *testing.T) {
	o := newTestOrchestrator(browser.NewStub(), store.NewMemory())
	report := o.ScrapeBulk(context.Background(), "org1", []string{"https://other.example.com/x"}, "")

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "no scraper registered")
}

func TestScrapeBulkRecoversStaleSlug(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	stale := "https://d.edealer.ca/2021-kia-soul-old"
	id, err := mem.CreateVehicle(ctx, &models.VehicleRecord{
		Organization: "org1",
		SourceURL:    stale,
		Year:         "2021",
		Make:         "Kia",
		Model:        "Soul",
	})
	require.NoError(t, err)

	// The site re-slugged the listing: the stored URL renders an empty
	// page, the standard-hyphenated candidate is live again.
	fresh := "https://d.edealer.ca/2021-kia-soul-" + id
	stub := browser.NewStub()
	stub.AddPage(stale, &browser.Page{HTML: "<html><body></body></html>"})
	stub.AddPage(fresh, &browser.Page{HTML: `<html><body><h1>2021 Kia Soul</h1>
	<div class="gallery">
	<img src="https://cdn.edealer.ca/42/a-1.jpg">
	<img src="https://cdn.edealer.ca/42/a-2.jpg">
	</div></body></html>`})

	o := newTestOrchestrator(stub, mem)
	report := o.ScrapeBulk(ctx, "org1", []string{stale}, "")

	require.Equal(t, 1, report.Success)
	assert.Equal(t, fresh, report.Items[0].URL)
	assert.Equal(t, id, report.Items[0].VehicleID)

	updated, err := mem.FindVehicleBySourceURL(ctx, "org1", fresh)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, id, updated.ID)
	assert.Len(t, updated.Images, 2)

	count, err := mem.CountVehicles(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "recovery refreshes in place, never duplicates")
}

func TestScrapeBulkSlugRecoveryExhaustedFlagsJob(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	stale := "https://d.edealer.ca/2021-kia-soul-old"
	_, err := mem.CreateVehicle(ctx, &models.VehicleRecord{
		Organization: "org1",
		SourceURL:    stale,
		Year:         "2021",
		Make:         "Kia",
		Model:        "Soul",
	})
	require.NoError(t, err)

	// Every candidate is dead, so the failure must carry the unresolved-slug
	// classification for a human, not the generic empty-page error.
	stub := browser.NewStub()
	stub.AddPage(stale, &browser.Page{HTML: "<html><body></body></html>"})

	o := newTestOrchestrator(stub, mem)
	report := o.ScrapeBulk(ctx, "org1", []string{stale}, "")

	require.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "no slug candidate resolved")

	jobs, err := mem.ListJobs(ctx, store.JobFilter{Organization: "org1"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "no slug candidate resolved")
}

func TestScrapeBulkStaleURLWithoutKnownRecordFails(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://d.edealer.ca/vehicles/gone", &browser.Page{HTML: "<html><body></body></html>"})

	o := newTestOrchestrator(stub, store.NewMemory())
	report := o.ScrapeBulk(context.Background(), "org1", []string{"https://d.edealer.ca/vehicles/gone"}, "")

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "no usable page data")
}

func TestRunDueJobsExecutesScheduled(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://d.edealer.ca/vehicles/1", &browser.Page{HTML: listingHTML("2020 Ford Escape")})

	mem := store.NewMemory()
	o := newTestOrchestrator(stub, mem)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	job, err := o.scheduler.Enqueue(ctx, "org1", "https://d.edealer.ca/vehicles/1", "", &past)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	notYet, err := o.scheduler.Enqueue(ctx, "org1", "https://d.edealer.ca/vehicles/2", "", &future)
	require.NoError(t, err)

	require.NoError(t, o.RunDueJobs(ctx, time.Now()))

	done, err := o.scheduler.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.Status)
	assert.NotEmpty(t, done.VehicleID)

	pending, err := o.scheduler.Get(ctx, notYet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobScheduled, pending.Status)
}
