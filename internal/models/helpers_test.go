package models

import "testing"

func TestValidVIN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "SALWS2RU3MA767985", true},
		{"valid mixed", "1HGCM82633A004352", true},
		{"too short", "SALWS2RU3MA76798", false},
		{"too long", "SALWS2RU3MA7679855", false},
		{"contains I", "SALWS2RU3MA76798I", false},
		{"contains O", "SALWS2RU3MA76798O", false},
		{"contains Q", "SALWS2RU3MA76798Q", false},
		{"lowercase rejected", "salws2ru3ma767985", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidVIN(tt.in); got != tt.want {
				t.Errorf("ValidVIN(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVehicleRecordTitle(t *testing.T) {
	tests := []struct {
		name string
		rec  VehicleRecord
		want string
	}{
		{"full", VehicleRecord{Year: "2023", Make: "Hyundai", Model: "Elantra"}, "2023 Hyundai Elantra"},
		{"missing model", VehicleRecord{Year: "2021", Make: "Kia"}, "2021 Kia"},
		{"empty", VehicleRecord{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
