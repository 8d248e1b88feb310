package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/openlot/dealsync-go/internal/browser"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Land Rover", "land-rover"},
		{"  F-150  ", "f-150"},
		{"Grand Cherokee L", "grand-cherokee-l"},
		{"CX-5", "cx-5"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugCandidatesOrder(t *testing.T) {
	meta := VehicleMeta{
		ID:            "9921",
		Year:          "2021",
		Make:          "Land Rover",
		Model:         "Range Rover Sport",
		StockNumber:   "P7731",
		KnownImageURL: "https://cdn.edealer.ca/42/2021-landrover-range-rover-sport-3.jpg",
		BaseURL:       "https://x.edealer.ca/vehicles",
	}

	got := SlugCandidates(meta)
	// The clean-make candidate collides with the image-derived one and is
	// deduplicated away.
	want := []SlugCandidate{
		{"https://x.edealer.ca/vehicles/2021-landrover-range-rover-sport-9921", StrategyDerivedFromImage},
		{"https://x.edealer.ca/vehicles/2021-land-rover-range-rover-sport-9921", StrategyStandardHyphenated},
		{"https://x.edealer.ca/vehicles/2021-land-rover-rangeroversport-9921", StrategyCleanModel},
		{"https://x.edealer.ca/vehicles/2021-landrover-range-rover-sport-p7731", StrategyDerivedFromImage},
		{"https://x.edealer.ca/vehicles/2021-land-rover-range-rover-sport-p7731", StrategyStockNumber},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d candidates %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSlugCandidatesNoImageNoStock(t *testing.T) {
	meta := VehicleMeta{
		ID:      "12",
		Year:    "2019",
		Make:    "Honda",
		Model:   "CR-V",
		BaseURL: "https://x.edealer.ca/vehicles/",
	}
	got := SlugCandidates(meta)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0].Strategy != StrategyStandardHyphenated {
		t.Fatalf("first strategy = %s", got[0].Strategy)
	}
	if got[1].Strategy != StrategyCleanModel {
		t.Fatalf("second strategy = %s", got[1].Strategy)
	}
	if got[1].URL != "https://x.edealer.ca/vehicles/2019-honda-crv-12" {
		t.Fatalf("clean-model url = %s", got[1].URL)
	}
}

func TestSlugResolverFirstSuccessWins(t *testing.T) {
	stub := browser.NewStub()
	galleryHTML := `<html><body><div class="gallery">
	<img src="https://cdn.edealer.ca/42/a-1.jpg">
	<img src="https://cdn.edealer.ca/42/a-2.jpg">
	</div></body></html>`
	stub.AddError("https://x.edealer.ca/vehicles/2019-honda-cr-v-12", errors.New("404"))
	stub.AddPage("https://x.edealer.ca/vehicles/2019-honda-crv-12", &browser.Page{HTML: galleryHTML})

	images := NewImageResolver(testProfile, nil, nil)
	r := NewSlugResolver(stub, images, nil)

	url, err := r.Resolve(context.Background(), VehicleMeta{
		ID: "12", Year: "2019", Make: "Honda", Model: "CR-V",
		BaseURL: "https://x.edealer.ca/vehicles",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != "https://x.edealer.ca/vehicles/2019-honda-crv-12" {
		t.Fatalf("resolved %q", url)
	}
	if len(stub.Rendered) != 2 {
		t.Fatalf("rendered %v, want probing to stop after success", stub.Rendered)
	}
}

func TestSlugResolverAcceptsSinglePhotoListing(t *testing.T) {
	stub := browser.NewStub()
	stub.AddPage("https://x.edealer.ca/vehicles/2019-honda-cr-v-12", &browser.Page{
		HTML: `<html><body><div class="gallery">
		<img src="https://cdn.edealer.ca/42/a-1.jpg">
		</div></body></html>`,
	})

	images := NewImageResolver(testProfile, nil, nil)
	r := NewSlugResolver(stub, images, nil)

	url, err := r.Resolve(context.Background(), VehicleMeta{
		ID: "12", Year: "2019", Make: "Honda", Model: "CR-V",
		BaseURL: "https://x.edealer.ca/vehicles",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != "https://x.edealer.ca/vehicles/2019-honda-cr-v-12" {
		t.Fatalf("resolved %q", url)
	}
}

func TestSlugResolverExhausted(t *testing.T) {
	stub := browser.NewStub()
	images := NewImageResolver(testProfile, nil, nil)
	r := NewSlugResolver(stub, images, nil)

	_, err := r.Resolve(context.Background(), VehicleMeta{
		ID: "12", Year: "2019", Make: "Honda", Model: "Civic",
		BaseURL: "https://x.edealer.ca/vehicles",
	})
	if !errors.Is(err, ErrSlugUnresolved) {
		t.Fatalf("want ErrSlugUnresolved, got %v", err)
	}
}
