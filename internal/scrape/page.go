package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/openlot/dealsync-go/internal/browser"
)

// PageData is the normalized bag the extractors work from: a queryable DOM
// plus the hydration payload, when the site embeds one.
type PageData struct {
	URL       string
	Doc       *goquery.Document
	Hydration map[string]any
}

// NewPageData parses a rendered page into queryable form.
func NewPageData(p *browser.Page) (*PageData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &PageData{URL: p.URL, Doc: doc, Hydration: p.Hydration}, nil
}

// Empty reports whether the document rendered with no visible body content,
// the signal a re-slugged site gives for a dead listing URL.
func (p *PageData) Empty() bool {
	body := p.Doc.Find("body")
	if body.Length() == 0 {
		return true
	}
	return strings.TrimSpace(body.Text()) == "" && body.Find("img").Length() == 0
}

// vehicleBlob digs the vehicle object out of the hydration payload. Sites
// nest it differently; the known spots are checked most-specific first.
func (p *PageData) vehicleBlob() map[string]any {
	if p.Hydration == nil {
		return nil
	}
	if v, ok := p.Hydration["vehicle"].(map[string]any); ok {
		return v
	}
	if state, ok := p.Hydration["state"].(map[string]any); ok {
		if v, ok := state["vehicle"].(map[string]any); ok {
			return v
		}
	}
	if data, ok := p.Hydration["data"].([]any); ok {
		for _, d := range data {
			if m, ok := d.(map[string]any); ok {
				if v, ok := m["vehicle"].(map[string]any); ok {
					return v
				}
			}
		}
	}
	return nil
}

// blobString reads the first non-empty string value among keys. Numeric
// hydration values are rendered back to strings so extraction has one type
// to clean.
func blobString(blob map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := blob[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
