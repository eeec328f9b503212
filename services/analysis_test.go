package services

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"madrid-dashboard/models"
)

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)

	if len(bins) != 5 {
		t.Fatalf("got %d bins, want 5", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 11 {
		t.Errorf("total count: got %d, want 11", total)
	}
	if bins[4].RangeEnd != 10 || bins[4].Count != 3 {
		t.Errorf("last bin: got %+v, want [8,10] with 3", bins[4])
	}
	if len(Histogram(nil, 5)) != 0 {
		t.Error("empty input must give no bins")
	}
	if got := Histogram([]float64{4, 4}, 5); len(got) != 1 || got[0].Count != 2 {
		t.Errorf("constant input: got %+v", got)
	}
}

func TestQuantileLinearInterpolation(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		if got := quantile(xs, tt.p); !almostEqual(got, tt.want) {
			t.Errorf("quantile(%v) = %.4f; want %.4f", tt.p, got, tt.want)
		}
	}
}

func TestPriceBoxByRooms(t *testing.T) {
	ds := dataset(
		listing(400, 1, 2, "A", models.SellerAgency),
		listing(100, 1, 1, "A", models.SellerAgency),
		listing(200, 1, 2, "A", models.SellerAgency),
		listing(300, 1, 2, "A", models.SellerAgency),
	)

	boxes := PriceBoxByRooms(ds)

	if len(boxes) != 2 || boxes[0].Key != 1 || boxes[1].Key != 2 {
		t.Fatalf("got %+v, want rooms 1 then 2", boxes)
	}
	b := boxes[1]
	if b.Min != 200 || b.Median != 300 || b.Max != 400 || b.Q1 != 250 || b.Q3 != 350 {
		t.Errorf("rooms 2 box: got %+v", b)
	}
}

func TestCorrelationSkipsRowsWithoutFloor(t *testing.T) {
	ds := dataset(
		models.Listing{Price: 100, Area: 10, Rooms: 1, FloorNumber: models.Float(1)},
		models.Listing{Price: 200, Area: 20, Rooms: 2, FloorNumber: models.Float(2)},
		models.Listing{Price: 300, Area: 30, Rooms: 3, FloorNumber: models.Float(3)},
		models.Listing{Price: 999, Area: 1, Rooms: 9},
	)

	m, ok := Correlation(ds)
	if !ok {
		t.Fatal("expected a matrix")
	}
	if m.Rows != 3 {
		t.Errorf("Rows: got %d, want 3", m.Rows)
	}
	for i := range m.Values {
		for j := range m.Values[i] {
			if !m.Values[i][j].Valid || !almostEqual(m.Values[i][j].Value, 1) {
				t.Errorf("Values[%d][%d]: got %+v, want 1", i, j, m.Values[i][j])
			}
		}
	}

	if _, ok := Correlation(dataset(ds.Rows[0])); ok {
		t.Error("a single row must not produce a matrix")
	}
}

func TestCorrelationConstantColumnIsNull(t *testing.T) {
	ds := dataset(
		models.Listing{Price: 100, Area: 10, Rooms: 2, FloorNumber: models.Float(1)},
		models.Listing{Price: 200, Area: 20, Rooms: 2, FloorNumber: models.Float(2)},
	)

	m, ok := Correlation(ds)
	if !ok {
		t.Fatal("expected a matrix")
	}
	if m.Values[0][1].Valid {
		t.Errorf("price/rooms with constant rooms: got %+v, want null", m.Values[0][1])
	}
	if _, err := json.Marshal(m); err != nil {
		t.Errorf("matrix must marshal: %v", err)
	}
}

func TestFitTrendline(t *testing.T) {
	tl := FitTrendline([]float64{1, 2, 3}, []float64{3, 5, 7})
	if tl == nil {
		t.Fatal("expected a trendline")
	}
	if !almostEqual(tl.Slope, 2) || !almostEqual(tl.Intercept, 1) || !almostEqual(tl.RSquared, 1) {
		t.Errorf("got %+v, want y = 1 + 2x with R² 1", tl)
	}
	if FitTrendline([]float64{1}, []float64{1}) != nil {
		t.Error("one point must not fit a line")
	}
	if FitTrendline([]float64{2, 2}, []float64{1, 3}) != nil {
		t.Error("constant x must not fit a line")
	}
}

func TestAreaPriceScatterSkipsZeroArea(t *testing.T) {
	ds := dataset(
		listing(100, 0, 1, "A", models.SellerAgency),
		listing(200, 20, 1, "A", models.SellerAgency),
	)
	s := AreaPriceScatter(ds)
	if len(s.Points) != 1 || s.Trendline != nil {
		t.Errorf("got %+v, want one point without a trendline", s)
	}
}

func TestDescribeColumns(t *testing.T) {
	ds := dataset(
		listing(100, 10, 1, "A", models.SellerAgency),
		listing(200, 20, 2, "A", models.SellerAgency),
		listing(300, 30, 3, "A", models.SellerAgency),
	)

	d := DescribeColumns(ds)

	if len(d) != 3 || d[0].Variable != models.ColPrice {
		t.Fatalf("got %+v", d)
	}
	p := d[0]
	if p.Count != 3 || p.Mean.Value != 200 || p.Median.Value != 200 || p.Std.Value != 100 {
		t.Errorf("price: got %+v", p)
	}

	single := Describe(models.ColPrice, []float64{5})
	if single.Std.Valid {
		t.Errorf("std of one value: got %+v, want null", single.Std)
	}
	if empty := Describe(models.ColArea, nil); empty.Count != 0 || empty.Mean.Valid {
		t.Errorf("empty: got %+v", empty)
	}
}

func TestTopByPriceStable(t *testing.T) {
	ds := dataset(
		listing(300, 1, 1, "first", models.SellerAgency),
		listing(100, 1, 1, "cheap", models.SellerAgency),
		listing(300, 1, 1, "second", models.SellerAgency),
	)

	top := TopByPrice(ds, 2, true)
	if len(top) != 2 || top[0].Location != "first" || top[1].Location != "second" {
		t.Errorf("expensive: got %+v", top)
	}
	bottom := TopByPrice(ds, 10, false)
	if len(bottom) != 3 || bottom[0].Location != "cheap" || bottom[1].Location != "first" {
		t.Errorf("cheap: got %+v", bottom)
	}
	if ds.Rows[0].Location != "first" || ds.Rows[1].Location != "cheap" {
		t.Error("input order was modified")
	}
}

func TestBuildConclusions(t *testing.T) {
	ds := dataset(
		listing(100000, 50, 1, "A", models.SellerIndividual),
		listing(200000, 50, 2, "A", models.SellerAgency),
		listing(300000, 50, 3, "B", models.SellerAgency),
	)

	c := BuildConclusions(ds, SummaryMetrics(ds), ComputeGroupedStats(ds))

	s := c.Sellers
	if s.AgencyCount != 2 || s.IndividualCount != 1 {
		t.Errorf("counts: got %d agencies, %d individuals", s.AgencyCount, s.IndividualCount)
	}
	if s.PriceDifference != 150000 {
		t.Errorf("PriceDifference: got %.0f, want 150000", s.PriceDifference)
	}
	if !almostEqual(s.AgencyShare.Value, 200.0/3) {
		t.Errorf("AgencyShare: got %.4f", s.AgencyShare.Value)
	}
	if c.MedianPrice.Value != 200000 || c.MinPrice.Value != 100000 || c.MaxPrice.Value != 300000 {
		t.Errorf("price stats: got median %v min %v max %v", c.MedianPrice, c.MinPrice, c.MaxPrice)
	}
	if len(c.Findings) != 3 || !strings.Contains(c.Findings[0], "higher") || !strings.Contains(c.Findings[0], "150,000") {
		t.Errorf("Findings: got %q", c.Findings)
	}
	if !strings.Contains(c.Findings[2], "agencies") {
		t.Errorf("majority finding: got %q", c.Findings[2])
	}
}

func TestBuildConclusionsEmpty(t *testing.T) {
	ds := dataset()
	c := BuildConclusions(ds, SummaryMetrics(ds), ComputeGroupedStats(ds))
	if c.MeanPrice.Valid || c.Sellers.AgencyShare.Valid {
		t.Errorf("expected null aggregates, got %+v", c)
	}
	if _, err := json.Marshal(c); err != nil {
		t.Errorf("conclusions must marshal: %v", err)
	}
}

func TestFormatThousands(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		150000:    "150,000",
		1234567.6: "1,234,568",
		-2500:     "-2,500",
	}
	for in, want := range tests {
		if got := FormatThousands(in); got != want {
			t.Errorf("FormatThousands(%v) = %q; want %q", in, got, want)
		}
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(dataset(), 25)
	if len(a.PriceHistogram) != 0 || len(a.PriceBoxByRooms) != 0 || a.Correlation != nil {
		t.Errorf("expected empty analysis, got %+v", a)
	}
	if len(a.AreaPrice.Points) != 0 || a.AreaPrice.Trendline != nil {
		t.Errorf("expected an empty scatter, got %+v", a.AreaPrice)
	}
	if _, err := json.Marshal(a); err != nil {
		t.Errorf("analysis must marshal: %v", err)
	}
}

func TestAnalysisSkipsMissingPrices(t *testing.T) {
	ds := dataset(
		listing(300, 10, 1, "a", models.SellerAgency),
		listing(math.NaN(), 20, 1, "b", models.SellerAgency),
		listing(100, 30, 2, "c", models.SellerAgency),
	)

	top := TopByPrice(ds, 10, true)
	if len(top) != 2 || top[0].Location != "a" || top[1].Location != "c" {
		t.Errorf("TopByPrice: got %+v", top)
	}

	d := Describe(models.ColPrice, Prices(ds))
	if d.Count != 2 || d.Mean.Value != 200 {
		t.Errorf("Describe: got count %d mean %v, want 2 and 200", d.Count, d.Mean.Value)
	}

	if pts := AreaPriceScatter(ds).Points; len(pts) != 2 {
		t.Errorf("AreaPriceScatter: got %d points, want 2", len(pts))
	}

	box := PriceBoxByRooms(ds)
	if len(box) != 2 || box[0].Count != 1 || box[0].Max != 300 {
		t.Errorf("PriceBoxByRooms: got %+v", box)
	}

	if _, err := json.Marshal(Analyze(ds, 25)); err != nil {
		t.Errorf("Analyze must stay JSON encodable: %v", err)
	}
}
