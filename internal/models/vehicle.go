// Package models defines data structures for the dealsync listing pipeline.
package models

import (
	"strings"
	"time"
)

// MaxGalleryImages is the marketplace cap on images per listing.
const MaxGalleryImages = 24

// VehicleRecord is one scraped or published listing.
//
// Identity: (organization, vin) when a VIN is present, otherwise
// (organization, source_url). Every field other than SourceURL is optional;
// a record carrying only its source URL is still valid.
type VehicleRecord struct {
	ID           string `json:"id,omitempty"`
	Organization string `json:"organization"`
	SourceURL    string `json:"source_url"`
	VIN          string `json:"vin,omitempty"`

	Year          string `json:"year,omitempty"`
	Make          string `json:"make,omitempty"`
	Model         string `json:"model,omitempty"`
	BodyStyle     string `json:"body_style,omitempty"`
	Transmission  string `json:"transmission,omitempty"`
	ExteriorColor string `json:"exterior_color,omitempty"`
	InteriorColor string `json:"interior_color,omitempty"`
	FuelType      string `json:"fuel_type,omitempty"`
	StockNumber   string `json:"stock_number,omitempty"`
	Engine        string `json:"engine,omitempty"`
	Drivetrain    string `json:"drivetrain,omitempty"`
	Description   string `json:"description,omitempty"`

	// Numeric fields stay nil when extraction found nothing, so a missing
	// value is never confused with a genuine zero.
	Mileage    *int     `json:"mileage,omitempty"`
	Doors      *int     `json:"doors,omitempty"`
	Passengers *int     `json:"passengers,omitempty"`
	Price      *float64 `json:"price,omitempty"`

	Images    []string  `json:"images,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Title returns the human-readable listing title, e.g. "2023 Hyundai Elantra".
func (v *VehicleRecord) Title() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Year, v.Make, v.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// HasVIN reports whether the record carries a well-formed VIN.
func (v *VehicleRecord) HasVIN() bool {
	return ValidVIN(v.VIN)
}
