package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"madrid-dashboard/models"
	"madrid-dashboard/utils"
)

// nullTokens are cell values treated as missing.
var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
	"<na>": {},
}

// RawRow is one record as read from a tabular source, keyed by column name.
type RawRow map[string]string

// Cleaner transforms raw tabular rows into typed Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts every raw row, preserving order. Empty price or area cells
// are kept as NaN; rows without a room count are dropped. Any other
// unparseable numeric cell fails the whole table.
func (c *Cleaner) Clean(raw []RawRow) ([]models.Listing, error) {
	result := make([]models.Listing, 0, len(raw))
	var nullLocations, incomplete, noRooms int

	for i, r := range raw {
		l, ok, err := c.cleanRow(r)
		if err != nil {
			// Row numbers are 1-based and skip the header line.
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !ok {
			noRooms++
			continue
		}
		if l.Location == "" {
			nullLocations++
		}
		if !l.Complete() {
			incomplete++
		}
		result = append(result, l)
	}

	if incomplete > 0 {
		c.logger.Warn("[cleaner] %d rows have no price or area; range filters will exclude them", incomplete)
	}
	if noRooms > 0 {
		c.logger.Warn("[cleaner] Dropped %d rows without a room count", noRooms)
	}
	c.logger.Debug("[cleaner] Cleaned %d rows (%d without location)", len(result), nullLocations)
	return result, nil
}

// cleanRow reports false when the row has no room count.
func (c *Cleaner) cleanRow(r RawRow) (models.Listing, bool, error) {
	price, err := parseNumber(r[models.ColPrice])
	if err != nil {
		return models.Listing{}, false, fmt.Errorf("%s: %w", models.ColPrice, err)
	}
	area, err := parseNumber(r[models.ColArea])
	if err != nil {
		return models.Listing{}, false, fmt.Errorf("%s: %w", models.ColArea, err)
	}
	rooms, err := parseNumber(r[models.ColRooms])
	if err != nil {
		return models.Listing{}, false, fmt.Errorf("%s: %w", models.ColRooms, err)
	}
	if math.IsNaN(rooms) {
		return models.Listing{}, false, nil
	}
	if rooms != math.Trunc(rooms) {
		return models.Listing{}, false, fmt.Errorf("%s: not a whole number: %q", models.ColRooms, r[models.ColRooms])
	}

	return models.Listing{
		Price:       price,
		Area:        area,
		Rooms:       int(rooms),
		Location:    normaliseText(r[models.ColLocation]),
		SellerType:  normaliseText(r[models.ColSellerType]),
		FloorLabel:  normaliseText(r[models.ColFloorLabel]),
		FloorNumber: parseOptionalNumber(r[models.ColFloorNumber]),
		HasElevator: parseBool(r[models.ColElevator]),
	}, true, nil
}

// parseNumber parses a numeric cell. "3.0" style integers from float-typed
// exports are accepted and null tokens yield NaN.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if isNull(s) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return v, nil
}

func parseOptionalNumber(raw string) models.NullFloat {
	s := strings.TrimSpace(raw)
	if isNull(s) {
		return models.NullFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.NullFloat{}
	}
	return models.Float(v)
}

// parseBool accepts the spellings found in spreadsheet exports. A null token
// is unknown; anything else unrecognised is false.
func parseBool(raw string) models.NullBool {
	if isNull(raw) {
		return models.NullBool{}
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "1.0", "yes", "y", "si", "sí", "s", "t", "verdadero":
		return models.Bool(true)
	default:
		return models.Bool(false)
	}
}

func isNull(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// normaliseText strips leading/trailing whitespace and collapses internal
// whitespace. Null tokens become "".
func normaliseText(s string) string {
	if isNull(s) {
		return ""
	}
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
