package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

func vinRecord(url, vin string) *models.VehicleRecord {
	return &models.VehicleRecord{
		SourceURL: url,
		VIN:       vin,
		Year:      "2023",
		Make:      "Hyundai",
		Model:     "Elantra",
	}
}

func TestAdmitCreatesThenSkips(t *testing.T) {
	ctx := context.Background()
	gate := NewDedupGate(store.NewMemory(), nil)

	first, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	assert.Equal(t, Created, first.Decision)
	assert.NotEmpty(t, first.VehicleID)

	second, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	assert.Equal(t, Skipped, second.Decision)
	assert.Equal(t, first.VehicleID, second.VehicleID)
	assert.Contains(t, second.Reason, "already exists")
}

func TestAdmitVINWinsOverDifferentURL(t *testing.T) {
	ctx := context.Background()
	gate := NewDedupGate(store.NewMemory(), nil)

	first, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/old-slug-1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	require.Equal(t, Created, first.Decision)

	// Same car after the site re-slugged the listing.
	second, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/new-slug-1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	assert.Equal(t, Skipped, second.Decision)
	assert.Equal(t, first.VehicleID, second.VehicleID)
}

func TestAdmitURLMatchWithoutVINUpdates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	gate := NewDedupGate(mem, nil)

	first, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/1", ""))
	require.NoError(t, err)
	require.Equal(t, Created, first.Decision)

	refresh := vinRecord("https://d.edealer.ca/vehicles/1", "")
	refresh.Mileage = intPtr(50000)
	second, err := gate.Admit(ctx, "org1", refresh)
	require.NoError(t, err)
	assert.Equal(t, Updated, second.Decision)
	assert.Equal(t, first.VehicleID, second.VehicleID)

	stored, err := mem.FindVehicleBySourceURL(ctx, "org1", "https://d.edealer.ca/vehicles/1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.Mileage)
	assert.Equal(t, 50000, *stored.Mileage)

	count, err := mem.CountVehicles(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdmitOrganizationsIsolated(t *testing.T) {
	ctx := context.Background()
	gate := NewDedupGate(store.NewMemory(), nil)

	first, err := gate.Admit(ctx, "org1", vinRecord("https://d.edealer.ca/vehicles/1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	assert.Equal(t, Created, first.Decision)

	second, err := gate.Admit(ctx, "org2", vinRecord("https://d.edealer.ca/vehicles/1", "SALWS2RU3MA767985"))
	require.NoError(t, err)
	assert.Equal(t, Created, second.Decision)
}

func intPtr(n int) *int { return &n }
