package browser

import (
	"context"
	"fmt"
	"sync"
)

// Stub is an in-memory Fetcher for tests: pages and errors keyed by URL.
type Stub struct {
	mu    sync.Mutex
	pages map[string]*Page
	errs  map[string]error

	// Rendered records every URL passed to Render, in order.
	Rendered []string
}

// NewStub creates an empty stub fetcher.
func NewStub() *Stub {
	return &Stub{
		pages: make(map[string]*Page),
		errs:  make(map[string]error),
	}
}

// AddPage registers a canned page for url.
func (s *Stub) AddPage(url string, page *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page.URL == "" {
		page.URL = url
	}
	s.pages[url] = page
}

// AddError makes Render fail for url.
func (s *Stub) AddError(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[url] = err
}

func (s *Stub) Render(ctx context.Context, url string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Rendered = append(s.Rendered, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if p, ok := s.pages[url]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("stub: no page registered for %s", url)
}
