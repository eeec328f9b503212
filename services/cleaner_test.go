package services

import (
	"math"
	"testing"

	"madrid-dashboard/models"
	"madrid-dashboard/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func TestCleanerParseNumber(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"250000", 250000, false},
		{" 85.5 ", 85.5, false},
		{"3.0", 3, false},
		{"", math.NaN(), false},
		{"NaN", math.NaN(), false},
		{"abc", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		got, err := parseNumber(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNumber(%q) error = %v; wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if math.IsNaN(tt.want) != math.IsNaN(got) || (!math.IsNaN(got) && got != tt.want) {
			t.Errorf("parseNumber(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseBool(t *testing.T) {
	tests := []struct {
		raw  string
		want models.NullBool
	}{
		{"True", models.Bool(true)},
		{"true", models.Bool(true)},
		{"1", models.Bool(true)},
		{"Sí", models.Bool(true)},
		{"False", models.Bool(false)},
		{"0", models.Bool(false)},
		{"No", models.Bool(false)},
		{"", models.NullBool{}},
		{"nan", models.NullBool{}},
	}

	for _, tt := range tests {
		if got := parseBool(tt.raw); got != tt.want {
			t.Errorf("parseBool(%q) = %+v; want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerNormalisesText(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []RawRow{{
		models.ColPrice:       "100000",
		models.ColArea:        "50",
		models.ColRooms:       "2",
		models.ColLocation:    "  Barrio   de Salamanca ",
		models.ColSellerType:  "Agencia",
		models.ColElevator:    "True",
		models.ColFloorLabel:  "NaN",
		models.ColFloorNumber: "",
	}}

	got, err := c.Clean(raw)
	if err != nil {
		t.Fatalf("Clean: unexpected error %v", err)
	}
	l := got[0]
	if l.Location != "Barrio de Salamanca" {
		t.Errorf("Location: got %q, want %q", l.Location, "Barrio de Salamanca")
	}
	if l.FloorLabel != "" {
		t.Errorf("FloorLabel: got %q, want empty for null token", l.FloorLabel)
	}
	if l.FloorNumber.Valid {
		t.Errorf("FloorNumber: got %v, want null", l.FloorNumber)
	}
	if l.HasElevator != models.Bool(true) {
		t.Errorf("HasElevator: got %+v, want true", l.HasElevator)
	}
}

func TestCleanerRejectsBadPrice(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []RawRow{
		{models.ColPrice: "1", models.ColArea: "1", models.ColRooms: "1"},
		{models.ColPrice: "cheap", models.ColArea: "1", models.ColRooms: "1"},
	}

	if _, err := c.Clean(raw); err == nil {
		t.Error("expected an error for an unparseable price")
	}
}

func TestCleanerKeepsRowsWithMissingPriceOrArea(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []RawRow{
		{models.ColPrice: "100000", models.ColArea: "50", models.ColRooms: "2"},
		{models.ColPrice: "", models.ColArea: "60", models.ColRooms: "2"},
		{models.ColPrice: "200000", models.ColArea: "NaN", models.ColRooms: "3"},
	}

	got, err := c.Clean(raw)
	if err != nil {
		t.Fatalf("Clean: unexpected error %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows: got %d, want 3", len(got))
	}
	if !got[0].Complete() {
		t.Errorf("row 0: want complete, got %+v", got[0])
	}
	if !math.IsNaN(got[1].Price) || got[1].Complete() {
		t.Errorf("row 1: want NaN price, got %v", got[1].Price)
	}
	if !math.IsNaN(got[2].Area) || got[2].Complete() {
		t.Errorf("row 2: want NaN area, got %v", got[2].Area)
	}
}

func TestCleanerRooms(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got, err := c.Clean([]RawRow{
		{models.ColPrice: "1", models.ColArea: "1", models.ColRooms: "3.0"},
		{models.ColPrice: "1", models.ColArea: "1", models.ColRooms: ""},
		{models.ColPrice: "1", models.ColArea: "1", models.ColRooms: "4"},
	})
	if err != nil {
		t.Fatalf("Clean: unexpected error %v", err)
	}
	if len(got) != 2 || got[0].Rooms != 3 || got[1].Rooms != 4 {
		t.Errorf("rows without rooms must be dropped: got %+v", got)
	}

	_, err = c.Clean([]RawRow{{models.ColPrice: "1", models.ColArea: "1", models.ColRooms: "2.5"}})
	if err == nil {
		t.Error("expected an error for a fractional room count")
	}
}
