package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/openlot/dealsync-go/internal/models"
)

// maxImageProbes bounds HEAD traffic per vehicle when guessing
// numeric-suffix variants.
const maxImageProbes = 24

// Prober answers whether a URL resolves to a live asset.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// HTTPProber checks asset URLs with HEAD requests.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProber) Exists(ctx context.Context, rawURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// ImageResolver assembles the full gallery for one vehicle page, trying
// progressively more speculative strategies. Later strategies run only when
// the earlier ones produce one image or fewer.
type ImageResolver struct {
	profile Profile
	prober  Prober
	log     *slog.Logger
}

func NewImageResolver(profile Profile, prober Prober, log *slog.Logger) *ImageResolver {
	if log == nil {
		log = slog.Default()
	}
	return &ImageResolver{profile: profile, prober: prober, log: log}
}

// ResolveGallery returns a deduplicated, ordered gallery of at most
// models.MaxGalleryImages URLs, or ErrGalleryEmpty when every strategy
// comes up blank.
func (r *ImageResolver) ResolveGallery(ctx context.Context, page *PageData) ([]string, error) {
	urls := r.fromGallerySlides(page)

	if len(urls) <= 1 {
		if more := r.fromHostFiltered(page); len(more) > len(urls) {
			urls = more
		}
	}
	if len(urls) <= 1 {
		if more := r.fromThumbRewrite(page); len(more) > len(urls) {
			urls = more
		}
	}
	if len(urls) <= 1 {
		base := ""
		if len(urls) == 1 {
			base = urls[0]
		} else if blob := page.vehicleBlob(); blob != nil {
			base = blobString(blob, "image", "image_url", "imageUrl")
		}
		if base != "" {
			if more := r.fromNumericVariants(ctx, base); len(more) > len(urls) {
				urls = more
			}
		}
	}

	urls = dedupeCapped(urls, models.MaxGalleryImages)
	if len(urls) == 0 {
		return nil, &ScrapeError{URL: page.URL, Err: ErrGalleryEmpty}
	}
	return urls, nil
}

// fromGallerySlides reads the primary slide elements, the least speculative
// source.
func (r *ImageResolver) fromGallerySlides(page *PageData) []string {
	if r.profile.GallerySelector == "" {
		return nil
	}
	var out []string
	page.Doc.Find(r.profile.GallerySelector).Each(func(_ int, s *goquery.Selection) {
		if src := imageSrc(s); src != "" {
			out = append(out, absolutize(page.URL, src))
		}
	})
	return out
}

// fromHostFiltered scans every image on the page and keeps the ones served
// from the vehicle image host, skipping anything that lives under a header
// or logo container.
func (r *ImageResolver) fromHostFiltered(page *PageData) []string {
	if r.profile.ImageHost == "" {
		return nil
	}
	var out []string
	page.Doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSrc(s)
		if src == "" {
			return
		}
		abs := absolutize(page.URL, src)
		u, err := url.Parse(abs)
		if err != nil || !strings.Contains(u.Host, r.profile.ImageHost) {
			return
		}
		if underExcludedContainer(s, r.profile.ExcludeContainers) {
			return
		}
		out = append(out, abs)
	})
	return out
}

// fromThumbRewrite promotes thumbnail URLs to their full-size form by
// stripping the thumbnail path segment.
func (r *ImageResolver) fromThumbRewrite(page *PageData) []string {
	seg := r.profile.ThumbSegment
	if seg == "" {
		return nil
	}
	var out []string
	page.Doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSrc(s)
		if src == "" || !strings.Contains(src, seg) {
			return
		}
		out = append(out, absolutize(page.URL, strings.ReplaceAll(src, seg, "")))
	})
	return out
}

// fromNumericVariants guesses sibling URLs off a known base image by
// swapping its numeric suffix, keeping only variants that answer 200.
// Probes stop at maxImageProbes.
func (r *ImageResolver) fromNumericVariants(ctx context.Context, base string) []string {
	if r.prober == nil {
		return nil
	}
	stem, ext, ok := splitNumericSuffix(base)
	if !ok {
		return nil
	}

	var out []string
	probes := 0
	for _, pattern := range []string{"-%d", "-%02d", "_%d"} {
		misses := 0
		var found []string
		for i := 1; probes < maxImageProbes; i++ {
			candidate := stem + fmt.Sprintf(pattern, i) + ext
			probes++
			alive, err := r.prober.Exists(ctx, candidate)
			if err != nil {
				r.log.Debug("image probe failed", "url", candidate, "error", err)
				break
			}
			if !alive {
				misses++
				if misses >= 2 {
					break
				}
				continue
			}
			found = append(found, candidate)
		}
		if len(found) > 1 {
			out = found
			break
		}
	}
	return out
}

// suffixExts are the asset extensions the numeric-variant strategy handles.
var suffixExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// splitNumericSuffix peels "{stem}-{n}{ext}" apart so variants can be
// rebuilt around the stem.
func splitNumericSuffix(rawURL string) (stem, ext string, ok bool) {
	for _, e := range suffixExts {
		if strings.HasSuffix(strings.ToLower(rawURL), e) {
			ext = rawURL[len(rawURL)-len(e):]
			stem = rawURL[:len(rawURL)-len(e)]
			break
		}
	}
	if ext == "" {
		return "", "", false
	}
	for _, sep := range []string{"-", "_"} {
		if idx := strings.LastIndex(stem, sep); idx > 0 {
			if tail := stem[idx+1:]; tail != "" && allDigits(tail) {
				return stem[:idx], ext, true
			}
		}
	}
	return "", "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func imageSrc(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func underExcludedContainer(s *goquery.Selection, containers []string) bool {
	for _, c := range containers {
		if s.ParentsFiltered(c).Length() > 0 {
			return true
		}
	}
	return false
}

func absolutize(pageURL, src string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

func dedupeCapped(urls []string, limit int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}
