package services

import (
	"math"
	"reflect"
	"testing"

	"madrid-dashboard/models"
)

func wideOpen() models.FilterCriteria {
	return models.FilterCriteria{PriceMin: 0, PriceMax: 1e12, AreaMin: 0, AreaMax: 1e6}
}

func TestApplyFiltersEmptyRoomSetKeepsAll(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "A", models.SellerAgency),
		listing(200, 20, 2, "B", models.SellerAgency),
		listing(300, 30, 2, "C", models.SellerIndividual),
		listing(400, 40, 3, "D", models.SellerIndividual),
	)

	got := ApplyFilters(ds, wideOpen())
	if got.Len() != 4 {
		t.Errorf("empty room set: got %d rows, want 4", got.Len())
	}

	c := wideOpen()
	c.Rooms = []int{2}
	got = ApplyFilters(ds, c)
	if got.Len() != 2 {
		t.Fatalf("rooms {2}: got %d rows, want 2", got.Len())
	}
	if got.Rows[0].Price != 200 || got.Rows[1].Price != 300 {
		t.Errorf("rooms {2}: order not preserved, got %+v", got.Rows)
	}
}

func TestApplyFiltersInclusiveRanges(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "A", models.SellerAgency),
		listing(200, 20, 1, "A", models.SellerAgency),
		listing(300, 30, 1, "A", models.SellerAgency),
	)
	c := wideOpen()
	c.PriceMin, c.PriceMax = 100, 200
	c.AreaMin, c.AreaMax = 20, 30

	got := ApplyFilters(ds, c)
	if got.Len() != 1 || got.Rows[0].Price != 200 {
		t.Errorf("got %+v, want only the 200 row", got.Rows)
	}
}

func TestApplyFiltersLocationNeverMatchesNull(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "", models.SellerAgency),
		listing(200, 20, 1, "Centro", models.SellerAgency),
	)

	got := ApplyFilters(ds, wideOpen())
	if got.Len() != 2 {
		t.Errorf("empty location set: got %d rows, want 2", got.Len())
	}

	c := wideOpen()
	c.Locations = []string{"Centro", ""}
	got = ApplyFilters(ds, c)
	if got.Len() != 1 || got.Rows[0].Location != "Centro" {
		t.Errorf("got %+v, want only Centro", got.Rows)
	}
}

func TestApplyFiltersSubsetAndIdempotent(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "A", models.SellerAgency),
		listing(200, 20, 2, "B", models.SellerIndividual),
		listing(300, 30, 3, "A", models.SellerIndividual),
		listing(400, 40, 2, "C", models.SellerAgency),
	)
	c := wideOpen()
	c.PriceMax = 350
	c.SellerTypes = []string{models.SellerIndividual}

	once := ApplyFilters(ds, c)
	twice := ApplyFilters(once, c)

	if !reflect.DeepEqual(once.Rows, twice.Rows) {
		t.Errorf("filter not idempotent: %+v vs %+v", once.Rows, twice.Rows)
	}
	// Every output row appears in the input, in the same relative order.
	j := 0
	for _, l := range once.Rows {
		for j < len(ds.Rows) && ds.Rows[j] != l {
			j++
		}
		if j == len(ds.Rows) {
			t.Fatalf("row %+v not found in input order", l)
		}
		j++
	}
	if ds.Len() != 4 {
		t.Error("input dataset was modified")
	}
}

func TestApplyFiltersEmptyResult(t *testing.T) {
	c := wideOpen()
	c.Rooms = []int{9}
	got := ApplyFilters(dataset(listing(100, 10, 1, "A", models.SellerAgency)), c)
	if got == nil || got.Rows == nil || got.Len() != 0 {
		t.Errorf("got %+v, want empty non-nil dataset", got)
	}
	if got := ApplyFilters(nil, c); got == nil || got.Len() != 0 {
		t.Errorf("nil input: got %+v", got)
	}
}

func TestBuildFilterOptions(t *testing.T) {
	ds := dataset(
		listing(250000, 80.5, 3, "Retiro", models.SellerAgency),
		listing(90000, 35, 1, "", models.SellerIndividual),
		listing(410000, 120, 2, "Centro", models.SellerAgency),
		listing(150000, 60, 3, "Retiro", ""),
	)

	opts := BuildFilterOptions(ds)

	if opts.PriceMin != 90000 || opts.PriceMax != 410000 {
		t.Errorf("price range: got [%.0f, %.0f]", opts.PriceMin, opts.PriceMax)
	}
	if opts.AreaMin != 35 || opts.AreaMax != 120 {
		t.Errorf("area range: got [%.1f, %.1f]", opts.AreaMin, opts.AreaMax)
	}
	if !reflect.DeepEqual(opts.Rooms, []int{1, 2, 3}) {
		t.Errorf("Rooms: got %v", opts.Rooms)
	}
	if !reflect.DeepEqual(opts.Locations, []string{"Retiro", "Centro"}) {
		t.Errorf("Locations: got %v", opts.Locations)
	}
	if !reflect.DeepEqual(opts.SellerTypes, []string{models.SellerAgency, models.SellerIndividual}) {
		t.Errorf("SellerTypes: got %v", opts.SellerTypes)
	}

	all := ApplyFilters(ds, opts.DefaultCriteria())
	if all.Len() != ds.Len() {
		t.Errorf("default criteria: got %d rows, want %d", all.Len(), ds.Len())
	}
}

func TestBuildFilterOptionsEmpty(t *testing.T) {
	opts := BuildFilterOptions(dataset())
	if opts.Rooms == nil || opts.Locations == nil || opts.SellerTypes == nil {
		t.Errorf("expected non-nil empty slices, got %+v", opts)
	}
}

func TestApplyFiltersDropsMissingPriceOrArea(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "A", models.SellerAgency),
		listing(math.NaN(), 20, 2, "B", models.SellerAgency),
		listing(300, math.NaN(), 2, "C", models.SellerIndividual),
	)

	opts := BuildFilterOptions(ds)
	if opts.PriceMin != 100 || opts.PriceMax != 300 {
		t.Errorf("price range: got [%v, %v], want [100, 300]", opts.PriceMin, opts.PriceMax)
	}
	if opts.AreaMin != 10 || opts.AreaMax != 20 {
		t.Errorf("area range: got [%v, %v], want [10, 20]", opts.AreaMin, opts.AreaMax)
	}

	got := ApplyFilters(ds, opts.DefaultCriteria())
	if got.Len() != 1 || got.Rows[0].Location != "A" {
		t.Errorf("full ranges: got %+v, want only A", got.Rows)
	}
	if got = ApplyFilters(ds, wideOpen()); got.Len() != 1 {
		t.Errorf("wide ranges: got %d rows, want 1", got.Len())
	}
}
