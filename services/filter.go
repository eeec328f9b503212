package services

import (
	"math"
	"sort"

	"madrid-dashboard/models"
)

// ApplyFilters returns the rows of ds matching every predicate of c, in
// their original order. Ranges are inclusive and always applied; a
// categorical dimension is only constrained when its set is non-empty.
// A missing location never matches a non-empty location set, and a missing
// price or area never falls inside a range.
func ApplyFilters(ds *models.Dataset, c models.FilterCriteria) *models.Dataset {
	out := &models.Dataset{Source: sourceOf(ds), Rows: []models.Listing{}}
	if ds.Len() == 0 {
		return out
	}

	rooms := toSet(c.Rooms)
	locations := toSet(c.Locations)
	sellers := toSet(c.SellerTypes)

	for _, l := range ds.Rows {
		if !inRange(l.Price, c.PriceMin, c.PriceMax) || !inRange(l.Area, c.AreaMin, c.AreaMax) {
			continue
		}
		if rooms != nil {
			if _, ok := rooms[l.Rooms]; !ok {
				continue
			}
		}
		if locations != nil {
			if _, ok := locations[l.Location]; !ok || l.Location == "" {
				continue
			}
		}
		if sellers != nil {
			if _, ok := sellers[l.SellerType]; !ok {
				continue
			}
		}
		out.Rows = append(out.Rows, l)
	}
	return out
}

// BuildFilterOptions scans ds once for the domain of each filter widget.
// Rooms are sorted ascending; locations and seller types keep first
// occurrence order and skip missing values. Missing prices and areas do not
// widen the ranges.
func BuildFilterOptions(ds *models.Dataset) models.FilterOptions {
	opts := models.FilterOptions{
		Rooms:       []int{},
		Locations:   []string{},
		SellerTypes: []string{},
	}
	if ds.Len() == 0 {
		return opts
	}

	var prices, areas bounds
	seenRooms := make(map[int]struct{})
	seenLocations := make(map[string]struct{})
	seenSellers := make(map[string]struct{})

	for _, l := range ds.Rows {
		prices.add(l.Price)
		areas.add(l.Area)
		if _, ok := seenRooms[l.Rooms]; !ok {
			seenRooms[l.Rooms] = struct{}{}
			opts.Rooms = append(opts.Rooms, l.Rooms)
		}
		if l.Location != "" {
			if _, ok := seenLocations[l.Location]; !ok {
				seenLocations[l.Location] = struct{}{}
				opts.Locations = append(opts.Locations, l.Location)
			}
		}
		if l.SellerType != "" {
			if _, ok := seenSellers[l.SellerType]; !ok {
				seenSellers[l.SellerType] = struct{}{}
				opts.SellerTypes = append(opts.SellerTypes, l.SellerType)
			}
		}
	}

	opts.PriceMin, opts.PriceMax = prices.min, prices.max
	opts.AreaMin, opts.AreaMax = areas.min, areas.max
	sort.Ints(opts.Rooms)
	return opts
}

// inRange is false for NaN.
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// bounds tracks the min and max of the non-NaN values added. Both stay 0
// until one is seen.
type bounds struct {
	min, max float64
	seen     bool
}

func (b *bounds) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if !b.seen {
		b.min, b.max, b.seen = v, v, true
		return
	}
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

func toSet[K comparable](items []K) map[K]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[K]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func sourceOf(ds *models.Dataset) string {
	if ds == nil {
		return ""
	}
	return ds.Source
}
