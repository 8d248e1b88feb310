// Package service provides business logic for dealer vehicle sync.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

// AdmitDecision is the outcome of running a scraped record through the
// dedup gate.
type AdmitDecision int

const (
	// Created means no existing record matched and a new one was persisted.
	Created AdmitDecision = iota

	// Skipped means the record is already ingested. Reason carries the
	// human-readable explanation for batch reports.
	Skipped

	// Updated means an existing URL-matched record with no confirmed VIN
	// was refreshed in place.
	Updated
)

// AdmitResult reports what the gate did with a record.
type AdmitResult struct {
	Decision  AdmitDecision
	VehicleID string
	Reason    string
}

// DedupGate decides whether a scraped record is new, a duplicate, or a
// refresh of an unconfirmed record.
type DedupGate struct {
	store store.VehicleStore
	log   *slog.Logger
}

func NewDedupGate(s store.VehicleStore, log *slog.Logger) *DedupGate {
	if log == nil {
		log = slog.Default()
	}
	return &DedupGate{store: s, log: log}
}

// Admit looks up an existing record by (organization, vin) then by
// (organization, sourceUrl). A VIN match always skips: VIN is the strong
// identity signal and survives a site re-slugging the same car. A
// URL-only match with no incoming VIN is an update candidate instead,
// since identity is unconfirmed.
func (g *DedupGate) Admit(ctx context.Context, org string, rec *models.VehicleRecord) (*AdmitResult, error) {
	rec.Organization = org

	if rec.HasVIN() {
		existing, err := g.store.FindVehicleByVIN(ctx, org, rec.VIN)
		if err != nil {
			return nil, fmt.Errorf("dedup vin lookup: %w", err)
		}
		if existing != nil {
			g.log.Info("duplicate vehicle skipped",
				"org", org, "vin", rec.VIN, "existing_id", existing.ID)
			return &AdmitResult{
				Decision:  Skipped,
				VehicleID: existing.ID,
				Reason:    fmt.Sprintf("vehicle with VIN %s already exists", rec.VIN),
			}, nil
		}
	}

	existing, err := g.store.FindVehicleBySourceURL(ctx, org, rec.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("dedup url lookup: %w", err)
	}
	if existing != nil {
		if rec.HasVIN() {
			g.log.Info("duplicate vehicle skipped",
				"org", org, "url", rec.SourceURL, "existing_id", existing.ID)
			return &AdmitResult{
				Decision:  Skipped,
				VehicleID: existing.ID,
				Reason:    "vehicle with this listing URL already exists",
			}, nil
		}
		rec.ID = existing.ID
		if err := g.store.UpdateVehicle(ctx, rec); err != nil {
			return nil, fmt.Errorf("dedup refresh: %w", err)
		}
		g.log.Info("vehicle refreshed", "org", org, "vehicle_id", existing.ID)
		return &AdmitResult{Decision: Updated, VehicleID: existing.ID}, nil
	}

	id, err := g.store.CreateVehicle(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist vehicle: %w", err)
	}
	g.log.Info("vehicle created",
		"org", org, "vehicle_id", id, "title", rec.Title(), "images", len(rec.Images))
	return &AdmitResult{Decision: Created, VehicleID: id}, nil
}

// Lookup returns the stored record for (organization, sourceUrl), or nil
// when none exists.
func (g *DedupGate) Lookup(ctx context.Context, org, sourceURL string) (*models.VehicleRecord, error) {
	return g.store.FindVehicleBySourceURL(ctx, org, sourceURL)
}

// Refresh overwrites an existing record in place, keeping its identity.
// Used when a stale listing URL was re-resolved to a fresh slug.
func (g *DedupGate) Refresh(ctx context.Context, org, id string, rec *models.VehicleRecord) (*AdmitResult, error) {
	rec.Organization = org
	rec.ID = id
	if err := g.store.UpdateVehicle(ctx, rec); err != nil {
		return nil, fmt.Errorf("refresh vehicle: %w", err)
	}
	g.log.Info("vehicle url recovered", "org", org, "vehicle_id", id, "url", rec.SourceURL)
	return &AdmitResult{Decision: Updated, VehicleID: id}, nil
}
