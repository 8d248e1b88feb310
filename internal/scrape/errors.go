// Package scrape recovers vehicle records from rendered dealer pages.
package scrape

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scrape pipeline. Check with errors.Is().
var (
	// ErrPageLoad means the page never rendered (network failure or
	// timeout). Retryable.
	ErrPageLoad = errors.New("page load failed")

	// ErrExtractionIncomplete means the page rendered but carried no usable
	// structured data or DOM markers. Retrying without a new extraction
	// strategy will not help.
	ErrExtractionIncomplete = errors.New("no usable page data")

	// ErrGalleryEmpty means every image strategy came up empty. Degraded,
	// not fatal: the record still persists without images.
	ErrGalleryEmpty = errors.New("image gallery empty")

	// ErrSlugUnresolved means no candidate URL produced a populated page.
	// Surfaced for a human to resolve, never defaulted.
	ErrSlugUnresolved = errors.New("no slug candidate resolved")
)

// ScrapeError ties a pipeline failure to the URL it happened on.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is worth a retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrPageLoad)
}
