package models

import (
	"encoding/json"
	"math"
)

// Column names as they appear in the source dataset.
const (
	ColPrice       = "precio"
	ColArea        = "metros"
	ColRooms       = "habitaciones"
	ColLocation    = "ubicacion"
	ColSellerType  = "vendedor"
	ColElevator    = "ascensor"
	ColFloorLabel  = "planta"
	ColFloorNumber = "numero_planta"
)

// RequiredColumns lists every column the loader must find in a dataset.
var RequiredColumns = []string{
	ColPrice, ColArea, ColRooms, ColLocation,
	ColSellerType, ColElevator, ColFloorLabel, ColFloorNumber,
}

// Seller types observed in the dataset. The set is open: other values are
// grouped like any other string.
const (
	SellerIndividual = "Particular"
	SellerAgency     = "Agencia"
)

// NullFloat is a float64 that may be absent. It marshals to JSON null when
// Valid is false.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid NullFloat holding v.
func Float(v float64) NullFloat { return NullFloat{Value: v, Valid: true} }

// Or returns the value, or fallback when absent.
func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// NullBool is a bool that may be absent. It marshals to JSON null when
// Valid is false.
type NullBool struct {
	Value bool
	Valid bool
}

// Bool returns a valid NullBool holding v.
func Bool(v bool) NullBool { return NullBool{Value: v, Valid: true} }

func (n NullBool) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullBool) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullBool{}
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Bool(v)
	return nil
}

// Listing is one property record. Location and FloorLabel use "" for a
// missing value; Price and Area are NaN when the cell was empty.
type Listing struct {
	Price       float64   `json:"precio"`
	Area        float64   `json:"metros"`
	Rooms       int       `json:"habitaciones"`
	Location    string    `json:"ubicacion,omitempty"`
	SellerType  string    `json:"vendedor"`
	FloorLabel  string    `json:"planta,omitempty"`
	FloorNumber NullFloat `json:"numero_planta"`
	HasElevator NullBool  `json:"ascensor"`
}

// Complete reports whether both price and area are known. Range filters
// never match an incomplete listing.
func (l Listing) Complete() bool {
	return !math.IsNaN(l.Price) && !math.IsNaN(l.Area)
}

// PricePerArea returns price / area, substituting 1 for an area of exactly 0.
func (l Listing) PricePerArea() float64 {
	area := l.Area
	if area == 0 {
		area = 1
	}
	return l.Price / area
}

// PricedListing is a Listing with the derived price-per-area column.
type PricedListing struct {
	Listing
	PricePerArea float64 `json:"precio_m2"`
}

// Dataset is an ordered, read-only collection of listings. Nothing downstream
// mutates Rows; derived tables are always fresh slices.
type Dataset struct {
	Source string    `json:"source"`
	Rows   []Listing `json:"rows"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// FilterCriteria narrows a Dataset. An empty categorical slice means the
// dimension is not filtered.
type FilterCriteria struct {
	PriceMin    float64  `json:"price_min"`
	PriceMax    float64  `json:"price_max"`
	AreaMin     float64  `json:"area_min"`
	AreaMax     float64  `json:"area_max"`
	Rooms       []int    `json:"rooms"`
	Locations   []string `json:"locations"`
	SellerTypes []string `json:"seller_types"`
}

// Clone returns a deep copy so callers can hand criteria around by value
// without sharing the backing arrays.
func (c FilterCriteria) Clone() FilterCriteria {
	out := c
	out.Rooms = append([]int(nil), c.Rooms...)
	out.Locations = append([]string(nil), c.Locations...)
	out.SellerTypes = append([]string(nil), c.SellerTypes...)
	return out
}

// FilterOptions describes the selectable domain of every filter widget.
type FilterOptions struct {
	PriceMin    float64  `json:"price_min"`
	PriceMax    float64  `json:"price_max"`
	AreaMin     float64  `json:"area_min"`
	AreaMax     float64  `json:"area_max"`
	Rooms       []int    `json:"rooms"`
	Locations   []string `json:"locations"`
	SellerTypes []string `json:"seller_types"`
}

// DefaultCriteria selects everything the options describe.
func (o FilterOptions) DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		PriceMin: o.PriceMin,
		PriceMax: o.PriceMax,
		AreaMin:  o.AreaMin,
		AreaMax:  o.AreaMax,
	}
}
