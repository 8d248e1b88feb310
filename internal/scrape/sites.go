package scrape

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var embeddedSites []byte

// Profile describes how one dealer site is scraped. Adding a site means
// adding a profile, never branching inside shared extraction code.
type Profile struct {
	Name string `yaml:"name"`

	// Domains the profile claims. A host matches when it equals an entry or
	// is a subdomain of one.
	Domains []string `yaml:"domains"`

	// GallerySelector finds the primary gallery slide images.
	GallerySelector string `yaml:"gallery_selector"`

	// ImageHost filters the broad all-images pass to the site's CDN.
	ImageHost string `yaml:"image_host"`

	// ExcludeContainers are ancestor selectors whose images are chrome
	// (header logos, nav), not vehicle photos.
	ExcludeContainers []string `yaml:"exclude_containers"`

	// SpecTableSelector finds the labeled spec rows used for DOM fallback
	// field extraction.
	SpecTableSelector string `yaml:"spec_table_selector"`

	// ThumbSegment is the path marker that turns a full image URL into its
	// thumbnail form, e.g. "thumb-".
	ThumbSegment string `yaml:"thumb_segment"`

	// ListingBase is the site path listings hang off, used when probing
	// slug candidates.
	ListingBase string `yaml:"listing_base"`
}

type sitesFile struct {
	Sites []Profile `yaml:"sites"`
}

// LoadProfiles returns the site profiles: the embedded defaults, or the
// override file when one is configured.
func LoadProfiles(overridePath string) ([]Profile, error) {
	raw := embeddedSites
	if overridePath != "" {
		b, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read sites file: %w", err)
		}
		raw = b
	}

	var f sitesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}
	if len(f.Sites) == 0 {
		return nil, fmt.Errorf("sites file defines no sites")
	}
	for i, p := range f.Sites {
		if p.Name == "" || len(p.Domains) == 0 {
			return nil, fmt.Errorf("site %d: name and domains are required", i)
		}
	}
	return f.Sites, nil
}

// Matches reports whether rawURL's host belongs to this profile.
func (p *Profile) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range p.Domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Registry selects the scraper for a listing URL by domain.
type Registry struct {
	scrapers []*SiteScraper
}

// NewRegistry builds one SiteScraper per profile.
func NewRegistry(profiles []Profile, deps Deps) *Registry {
	r := &Registry{}
	for i := range profiles {
		r.scrapers = append(r.scrapers, NewSiteScraper(profiles[i], deps))
	}
	return r
}

// For returns the scraper claiming rawURL's domain.
func (r *Registry) For(rawURL string) (*SiteScraper, error) {
	for _, s := range r.scrapers {
		if s.profile.Matches(rawURL) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no scraper registered for %s", rawURL)
}

// Sites lists the registered site names.
func (r *Registry) Sites() []string {
	names := make([]string, 0, len(r.scrapers))
	for _, s := range r.scrapers {
		names = append(names, s.profile.Name)
	}
	return names
}
