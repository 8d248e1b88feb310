package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/openlot/dealsync-go/internal/browser"
)

func TestScrapePageLoadError(t *testing.T) {
	stub := browser.NewStub()
	stub.AddError("https://x.edealer.ca/vehicles/1", errors.New("net::ERR_TIMED_OUT"))

	s := NewSiteScraper(testProfile, Deps{Fetcher: stub})
	_, err := s.Scrape(context.Background(), "https://x.edealer.ca/vehicles/1")
	if !errors.Is(err, ErrPageLoad) {
		t.Fatalf("want ErrPageLoad, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("page load failures should be retryable")
	}
}

func TestScrapeEmptyPage(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://x.edealer.ca/vehicles/1", &browser.Page{HTML: `<html><body>   </body></html>`})

	s := NewSiteScraper(testProfile, Deps{Fetcher: stub})
	_, err := s.Scrape(context.Background(), "https://x.edealer.ca/vehicles/1")
	if !errors.Is(err, ErrExtractionIncomplete) {
		t.Fatalf("want ErrExtractionIncomplete, got %v", err)
	}
	if Retryable(err) {
		t.Fatal("incomplete extraction should not be retryable")
	}
}

func TestScrapeFullRecord(t *testing.T) {
	html := `<html><body>
	<h1>2023 Hyundai Elantra</h1>
	<div class="gallery">
	<img src="https://cdn.edealer.ca/42/elantra-1.jpg">
	<img src="https://cdn.edealer.ca/42/elantra-2.jpg">
	</div></body></html>`
	stub := browser.NewStub()
	stub.AddPage("https://x.edealer.ca/vehicles/2023-hyundai-elantra-9", &browser.Page{
		HTML: html,
		Hydration: map[string]any{"vehicle": map[string]any{
			"mileage": "12,300 km",
		}},
	})

	s := NewSiteScraper(testProfile, Deps{Fetcher: stub})
	rec, err := s.Scrape(context.Background(), "https://x.edealer.ca/vehicles/2023-hyundai-elantra-9")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if rec.Title() != "2023 Hyundai Elantra" {
		t.Fatalf("title = %q", rec.Title())
	}
	if rec.SourceURL != "https://x.edealer.ca/vehicles/2023-hyundai-elantra-9" {
		t.Fatalf("sourceUrl = %q", rec.SourceURL)
	}
	if len(rec.Images) != 2 {
		t.Fatalf("images = %v", rec.Images)
	}
	if rec.Mileage == nil || *rec.Mileage != 12300 {
		t.Fatalf("mileage = %v", rec.Mileage)
	}
}

func TestScrapeGalleryEmptyDegrades(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://x.edealer.ca/vehicles/1", &browser.Page{
		HTML: `<html><body><h1>2020 Mazda CX-5</h1><p>Photos coming soon.</p></body></html>`,
	})

	s := NewSiteScraper(testProfile, Deps{Fetcher: stub})
	rec, err := s.Scrape(context.Background(), "https://x.edealer.ca/vehicles/1")
	if err != nil {
		t.Fatalf("empty gallery must not fail the scrape: %v", err)
	}
	if len(rec.Images) != 0 {
		t.Fatalf("images = %v", rec.Images)
	}
	if rec.Make != "Mazda" {
		t.Fatalf("make = %q", rec.Make)
	}
}

func TestRegistryRouting(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	reg := NewRegistry(profiles, Deps{Fetcher: browser.NewStub()})

	s, err := reg.For("https://mydealer.edealer.ca/vehicles/1")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if s.Site() != "edealer" {
		t.Fatalf("site = %q", s.Site())
	}

	if _, err := reg.For("https://unknown.example.com/x"); err == nil {
		t.Fatal("expected routing failure for unknown domain")
	}
}
