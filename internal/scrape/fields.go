package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/openlot/dealsync-go/internal/models"
)

// titlePattern parses "{year} {make} {model...}" out of a page heading.
var titlePattern = regexp.MustCompile(`^\s*((?:19|20)\d{2})\s+([A-Za-z][A-Za-z-]*)\s+(.+?)\s*$`)

// ExtractFields builds a vehicle record from a rendered page. Extraction
// order per field: hydration payload, then labeled DOM rows, then the page
// title. A field no strategy recovers stays absent; this never fails for
// missing fields.
func ExtractFields(page *PageData, profile Profile) models.VehicleRecord {
	blob := page.vehicleBlob()
	labels := extractLabeledRows(page.Doc, profile.SpecTableSelector)
	tYear, tMake, tModel := parseTitle(page.Doc)

	pick := func(blobKeys []string, labelKeys ...string) string {
		if blob != nil {
			if v := blobString(blob, blobKeys...); v != "" {
				return v
			}
		}
		for _, l := range labelKeys {
			if v, ok := labels[normalizeLabel(l)]; ok && v != "" {
				return v
			}
		}
		return ""
	}

	rec := models.VehicleRecord{
		SourceURL: page.URL,
		ScrapedAt: time.Now(),
	}

	rec.Year = pick([]string{"year"}, "Year")
	rec.Make = pick([]string{"make"}, "Make")
	rec.Model = pick([]string{"model"}, "Model")
	rec.BodyStyle = pick([]string{"body_style", "bodyStyle", "body_type"}, "Body Style", "Body Type")
	rec.Transmission = pick([]string{"transmission"}, "Transmission")
	rec.ExteriorColor = pick([]string{"exterior_color", "exteriorColor"}, "Exterior Colour", "Exterior Color")
	rec.InteriorColor = pick([]string{"interior_color", "interiorColor"}, "Interior Colour", "Interior Color")
	rec.FuelType = pick([]string{"fuel_type", "fuelType"}, "Fuel Type")
	rec.StockNumber = pick([]string{"stock_number", "stockNumber", "stock"}, "Stock #", "Stock Number")
	rec.Engine = pick([]string{"engine"}, "Engine")
	rec.Drivetrain = pick([]string{"drivetrain", "drive_type", "driveType"}, "Drivetrain", "Drive Type")

	rec.Mileage = parseIntField(pick([]string{"mileage", "odometer", "kilometres"}, "Mileage", "Odometer", "Kilometres"))
	rec.Doors = parseIntField(pick([]string{"doors"}, "Doors"))
	rec.Passengers = parseIntField(pick([]string{"passengers", "seats"}, "Passengers", "Seating"))
	rec.Price = parsePriceField(pick([]string{"price", "asking_price", "askingPrice"}, "Price", "Asking Price"))

	if vin := strings.ToUpper(pick([]string{"vin"}, "VIN")); models.ValidVIN(vin) {
		rec.VIN = vin
	}

	if blob != nil {
		rec.Description = blobString(blob, "description")
	}
	if rec.Description == "" {
		rec.Description, _ = page.Doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	// Title is the last resort for the headline triple.
	if rec.Year == "" {
		rec.Year = tYear
	}
	if rec.Make == "" {
		rec.Make = tMake
	}
	if rec.Model == "" {
		rec.Model = tModel
	}

	return rec
}

// extractLabeledRows collects "label: value" pairs from the site's spec
// rows; the first cell is the label, the second the value.
func extractLabeledRows(doc *goquery.Document, selector string) map[string]string {
	out := make(map[string]string)
	if selector == "" {
		return out
	}
	doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td, dt, dd")
		if cells.Length() < 2 {
			return
		}
		label := normalizeLabel(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if label != "" && value != "" {
			if _, seen := out[label]; !seen {
				out[label] = value
			}
		}
	})
	return out
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ":")
	return strings.Join(strings.Fields(s), " ")
}

func parseTitle(doc *goquery.Document) (year, make, model string) {
	candidates := []string{
		strings.TrimSpace(doc.Find("h1").First().Text()),
		strings.TrimSpace(doc.Find("title").First().Text()),
	}
	for _, t := range candidates {
		if m := titlePattern.FindStringSubmatch(t); m != nil {
			return m[1], m[2], m[3]
		}
	}
	return "", "", ""
}

// unit suffixes stripped before numeric coercion.
var unitSuffixes = []string{"km", "kms", "mi", "k"}

func cleanNumericText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	lower := strings.ToLower(s)
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(lower, suf) {
			s = strings.TrimSpace(s[:len(s)-len(suf)])
			lower = strings.ToLower(s)
		}
	}
	return s
}

// parseIntField coerces a scraped numeric string; nil when nothing usable,
// never a fabricated zero.
func parseIntField(s string) *int {
	cleaned := cleanNumericText(s)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func parsePriceField(s string) *float64 {
	cleaned := cleanNumericText(s)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}
