package scrape

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openlot/dealsync-go/internal/browser"
)

// Slug strategies, most to least specific.
const (
	StrategyDerivedFromImage   = "derived-from-image"
	StrategyStandardHyphenated = "standard-hyphenated"
	StrategyCleanMake          = "clean-make"
	StrategyCleanModel         = "clean-model"
	StrategyStockNumber        = "stock-number"
)

// SlugCandidate is a guessed listing URL and the strategy that produced it.
// Candidates are probed in order and discarded afterwards.
type SlugCandidate struct {
	URL      string
	Strategy string
}

// VehicleMeta is the metadata available for slug recovery when a canonical
// URL has gone stale.
type VehicleMeta struct {
	ID            string
	Year          string
	Make          string
	Model         string
	StockNumber   string
	KnownImageURL string
	BaseURL       string
}

// imageSlugPattern pulls "{year}-{make-model-text}" out of an image
// filename of the form {slug}-{index}.{ext}.
var imageSlugPattern = regexp.MustCompile(`/((?:19|20)\d{2}-[a-z0-9-]+?)-\d+\.(?:jpg|jpeg|png|webp)$`)

// Slugify lowercases and hyphenates free text for use in a listing path.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastHyphen := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func compact(s string) string {
	return strings.ReplaceAll(Slugify(s), "-", "")
}

// SlugCandidates generates candidate listing URLs for a vehicle whose
// canonical URL no longer resolves. Order is deterministic, most exact
// recovery first.
func SlugCandidates(meta VehicleMeta) []SlugCandidate {
	base := strings.TrimSuffix(meta.BaseURL, "/")
	add := func(out []SlugCandidate, slug, strategy string) []SlugCandidate {
		if slug == "" {
			return out
		}
		u := base + "/" + slug
		for _, c := range out {
			if c.URL == u {
				return out
			}
		}
		return append(out, SlugCandidate{URL: u, Strategy: strategy})
	}

	var out []SlugCandidate

	// The image filename preserves the slug exactly as the site minted it,
	// surviving later make/model renormalization.
	if m := imageSlugPattern.FindStringSubmatch(strings.ToLower(meta.KnownImageURL)); m != nil {
		out = add(out, m[1]+"-"+meta.ID, StrategyDerivedFromImage)
	}

	year := Slugify(meta.Year)
	mk := Slugify(meta.Make)
	md := Slugify(meta.Model)
	if year != "" && mk != "" && md != "" {
		standard := year + "-" + mk + "-" + md
		out = add(out, standard+"-"+meta.ID, StrategyStandardHyphenated)
		if cm := compact(meta.Make); cm != mk {
			out = add(out, year+"-"+cm+"-"+md+"-"+meta.ID, StrategyCleanMake)
		}
		if cd := compact(meta.Model); cd != md {
			out = add(out, year+"-"+mk+"-"+cd+"-"+meta.ID, StrategyCleanModel)
		}
		if meta.StockNumber != "" {
			stock := Slugify(meta.StockNumber)
			if m := imageSlugPattern.FindStringSubmatch(strings.ToLower(meta.KnownImageURL)); m != nil {
				out = add(out, m[1]+"-"+stock, StrategyDerivedFromImage)
			}
			out = add(out, standard+"-"+stock, StrategyStockNumber)
		}
	} else if meta.StockNumber != "" {
		out = add(out, Slugify(meta.StockNumber), StrategyStockNumber)
	}

	return out
}

// SlugResolver probes slug candidates until one renders a populated
// listing page.
type SlugResolver struct {
	fetcher browser.Fetcher
	images  *ImageResolver
	log     *slog.Logger
}

func NewSlugResolver(fetcher browser.Fetcher, images *ImageResolver, log *slog.Logger) *SlugResolver {
	if log == nil {
		log = slog.Default()
	}
	return &SlugResolver{fetcher: fetcher, images: images, log: log}
}

// Resolve tries each candidate in order and returns the first URL whose
// page yields a gallery signal. Probe failures move on to the next
// candidate; exhausting all of them returns ErrSlugUnresolved.
func (r *SlugResolver) Resolve(ctx context.Context, meta VehicleMeta) (string, error) {
	candidates := SlugCandidates(meta)
	for _, c := range candidates {
		page, err := r.fetcher.Render(ctx, c.URL)
		if err != nil {
			r.log.Debug("slug candidate failed to render",
				"url", c.URL, "strategy", c.Strategy, "error", err)
			continue
		}
		pd, err := NewPageData(page)
		if err != nil || pd.Empty() {
			continue
		}
		// A non-empty gallery is the success bar: soft 404s render with no
		// listing images, while a real single-photo listing still counts.
		urls, err := r.images.ResolveGallery(ctx, pd)
		if err != nil || len(urls) == 0 {
			continue
		}
		r.log.Info("slug resolved", "url", c.URL, "strategy", c.Strategy)
		return c.URL, nil
	}
	return "", &ScrapeError{URL: meta.BaseURL, Err: ErrSlugUnresolved}
}
