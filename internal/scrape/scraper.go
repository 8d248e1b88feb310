package scrape

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/openlot/dealsync-go/internal/browser"
	"github.com/openlot/dealsync-go/internal/metrics"
	"github.com/openlot/dealsync-go/internal/models"
)

// Deps are the collaborators shared by every site scraper.
type Deps struct {
	Fetcher browser.Fetcher
	Prober  Prober
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// SiteScraper turns one listing URL into a VehicleRecord for a single
// dealer site, composing field extraction and gallery resolution behind one
// contract.
type SiteScraper struct {
	profile Profile
	fetcher browser.Fetcher
	images  *ImageResolver
	slugs   *SlugResolver
	metrics *metrics.Collector
	log     *slog.Logger
}

func NewSiteScraper(profile Profile, deps Deps) *SiteScraper {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("site", profile.Name)

	prober := deps.Prober
	if prober != nil && deps.Metrics != nil {
		prober = &meteredProber{inner: prober, metrics: deps.Metrics}
	}
	images := NewImageResolver(profile, prober, log)
	return &SiteScraper{
		profile: profile,
		fetcher: deps.Fetcher,
		images:  images,
		slugs:   NewSlugResolver(deps.Fetcher, images, log),
		metrics: deps.Metrics,
		log:     log,
	}
}

// Site returns the profile name this scraper serves.
func (s *SiteScraper) Site() string {
	return s.profile.Name
}

// Scrape renders url and extracts a vehicle record from it. An empty
// gallery degrades the record rather than failing it; a dead or blank page
// fails with a typed error.
func (s *SiteScraper) Scrape(ctx context.Context, url string) (*models.VehicleRecord, error) {
	if s.metrics != nil {
		defer s.metrics.Track(metrics.OpScrape)()
	}

	page, err := s.render(ctx, url)
	if err != nil {
		s.recordFailure(metrics.OpPageFetch)
		return nil, &ScrapeError{URL: url, Err: errors.Join(ErrPageLoad, err)}
	}

	pd, err := NewPageData(page)
	if err != nil {
		s.recordFailure(metrics.OpScrape)
		return nil, &ScrapeError{URL: url, Err: errors.Join(ErrExtractionIncomplete, err)}
	}
	if pd.Empty() {
		s.recordFailure(metrics.OpScrape)
		return nil, &ScrapeError{URL: url, Err: ErrExtractionIncomplete}
	}

	rec := ExtractFields(pd, s.profile)
	rec.SourceURL = pd.URL

	urls, err := s.images.ResolveGallery(ctx, pd)
	if err != nil {
		if !errors.Is(err, ErrGalleryEmpty) {
			return nil, err
		}
		s.log.Warn("gallery empty, persisting record without images", "url", url)
	}
	rec.Images = urls

	s.log.Info("scraped vehicle",
		"url", url, "title", rec.Title(), "images", len(rec.Images), "vin", rec.VIN != "")
	return &rec, nil
}

// ResolveSlug recovers a working listing URL for a vehicle whose canonical
// URL has gone stale. The candidate base is taken from the stale URL's
// origin when the caller does not supply one.
func (s *SiteScraper) ResolveSlug(ctx context.Context, staleURL string, meta VehicleMeta) (string, error) {
	if meta.BaseURL == "" {
		meta.BaseURL = s.profile.ListingBase
		if u, err := url.Parse(staleURL); err == nil && u.Host != "" {
			meta.BaseURL = u.Scheme + "://" + u.Host + s.profile.ListingBase
		}
	}
	if s.metrics != nil {
		defer s.metrics.Track(metrics.OpSlugProbe)()
	}
	return s.slugs.Resolve(ctx, meta)
}

func (s *SiteScraper) recordFailure(op string) {
	if s.metrics != nil {
		s.metrics.RecordFailure(op)
	}
}

// meteredProber times every HEAD probe and counts failures.
type meteredProber struct {
	inner   Prober
	metrics *metrics.Collector
}

func (p *meteredProber) Exists(ctx context.Context, probeURL string) (bool, error) {
	defer p.metrics.Track(metrics.OpImageProbe)()
	ok, err := p.inner.Exists(ctx, probeURL)
	if err != nil {
		p.metrics.RecordFailure(metrics.OpImageProbe)
	}
	return ok, err
}

func (s *SiteScraper) render(ctx context.Context, url string) (*browser.Page, error) {
	if s.metrics != nil {
		defer s.metrics.Track(metrics.OpPageFetch)()
	}
	return s.fetcher.Render(ctx, url)
}
