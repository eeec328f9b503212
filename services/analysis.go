package services

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"madrid-dashboard/models"
)

// MeanPricePerAreaByRooms averages the per-row price-per-area for each room
// count, ascending by rooms.
func MeanPricePerAreaByRooms(ds *models.Dataset) []models.KeyMean[int] {
	return sortedMeansByKey(means(groupBy(rowsOf(ds), roomsKey, pricePerAreaOf)))
}

// MeanPricePerAreaByLocation ranks locations by mean price-per-area,
// keeping the TopN highest.
func MeanPricePerAreaByLocation(ds *models.Dataset) []models.KeyMean[string] {
	return limit(meansDesc(means(groupBy(rowsOf(ds), locationKey, pricePerAreaOf))), TopN)
}

// Histogram splits values into bins equal-width buckets between their min
// and max. The last bucket is closed on the right.
func Histogram(values []float64, bins int) []models.HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return []models.HistogramBin{}
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []models.HistogramBin{{RangeStart: lo, RangeEnd: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.HistogramBin, bins)
	for i := range out {
		out[i].RangeStart = lo + float64(i)*width
		out[i].RangeEnd = lo + float64(i+1)*width
	}
	out[bins-1].RangeEnd = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// Prices returns the known prices of ds.
func Prices(ds *models.Dataset) []float64 {
	return column(ds, priceOf)
}

// Areas returns the known areas of ds.
func Areas(ds *models.Dataset) []float64 {
	return column(ds, func(l models.Listing) float64 { return l.Area })
}

// PriceBoxByRooms returns the five-number summary of price per room count,
// ascending by rooms.
func PriceBoxByRooms(ds *models.Dataset) []models.BoxStats {
	byRooms := make(map[int][]float64)
	var keys []int
	for _, l := range rowsOf(ds) {
		if math.IsNaN(l.Price) {
			continue
		}
		if _, ok := byRooms[l.Rooms]; !ok {
			keys = append(keys, l.Rooms)
		}
		byRooms[l.Rooms] = append(byRooms[l.Rooms], l.Price)
	}
	sort.Ints(keys)

	out := make([]models.BoxStats, 0, len(keys))
	for _, k := range keys {
		xs := sortedCopy(byRooms[k])
		out = append(out, models.BoxStats{
			Key:    k,
			Count:  len(xs),
			Min:    xs[0],
			Q1:     quantile(xs, 0.25),
			Median: quantile(xs, 0.5),
			Q3:     quantile(xs, 0.75),
			Max:    xs[len(xs)-1],
		})
	}
	return out
}

// CorrelationVariables are the numeric columns of the correlation matrix.
var CorrelationVariables = []string{models.ColPrice, models.ColRooms, models.ColArea, models.ColFloorNumber}

// Correlation computes the Pearson matrix over CorrelationVariables using
// only complete rows with a floor number. It reports false with fewer than
// two rows.
func Correlation(ds *models.Dataset) (models.CorrelationMatrix, bool) {
	cols := make([][]float64, len(CorrelationVariables))
	for _, l := range rowsOf(ds) {
		if !l.FloorNumber.Valid || !l.Complete() {
			continue
		}
		cols[0] = append(cols[0], l.Price)
		cols[1] = append(cols[1], float64(l.Rooms))
		cols[2] = append(cols[2], l.Area)
		cols[3] = append(cols[3], l.FloorNumber.Value)
	}

	n := len(cols[0])
	if n < 2 {
		return models.CorrelationMatrix{}, false
	}

	m := models.CorrelationMatrix{
		Variables: append([]string(nil), CorrelationVariables...),
		Values:    make([][]models.NullFloat, len(cols)),
		Rows:      n,
	}
	for i := range cols {
		m.Values[i] = make([]models.NullFloat, len(cols))
		for j := range cols {
			m.Values[i][j] = finite(stat.Correlation(cols[i], cols[j], nil))
		}
	}
	return m, true
}

// AreaPriceScatter pairs area with price for rows with a positive area and
// fits a trendline when possible.
func AreaPriceScatter(ds *models.Dataset) models.Scatter {
	var xs, ys []float64
	for _, l := range rowsOf(ds) {
		if l.Area > 0 && !math.IsNaN(l.Price) {
			xs = append(xs, l.Area)
			ys = append(ys, l.Price)
		}
	}
	return scatter(xs, ys)
}

// FloorPriceScatter pairs floor number with price for rows that have one.
func FloorPriceScatter(ds *models.Dataset) models.Scatter {
	var xs, ys []float64
	for _, l := range rowsOf(ds) {
		if l.FloorNumber.Valid && !math.IsNaN(l.Price) {
			xs = append(xs, l.FloorNumber.Value)
			ys = append(ys, l.Price)
		}
	}
	return scatter(xs, ys)
}

func scatter(xs, ys []float64) models.Scatter {
	s := models.Scatter{Points: make([]models.Point, len(xs))}
	for i := range xs {
		s.Points[i] = models.Point{X: xs[i], Y: ys[i]}
	}
	s.Trendline = FitTrendline(xs, ys)
	return s
}

// FitTrendline returns the least squares line through (xs, ys), or nil when
// there are fewer than two points or xs is constant.
func FitTrendline(xs, ys []float64) *models.Trendline {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil
	}
	if stat.Variance(xs, nil) == 0 {
		return nil
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		r2 = 0
	}
	return &models.Trendline{Intercept: alpha, Slope: beta, RSquared: r2}
}

// DescribeColumns summarises price, rooms and area the way a dataframe
// describe() does: sample standard deviation, linearly interpolated
// quartiles.
func DescribeColumns(ds *models.Dataset) []models.Describe {
	return []models.Describe{
		Describe(models.ColPrice, Prices(ds)),
		Describe(models.ColRooms, column(ds, func(l models.Listing) float64 { return float64(l.Rooms) })),
		Describe(models.ColArea, Areas(ds)),
	}
}

// Describe summarises a single named column.
func Describe(name string, values []float64) models.Describe {
	d := models.Describe{Variable: name, Count: len(values)}
	if len(values) == 0 {
		return d
	}
	xs := sortedCopy(values)
	d.Mean = models.Float(stat.Mean(xs, nil))
	if len(xs) > 1 {
		d.Std = finite(stat.StdDev(xs, nil))
	}
	d.Min = models.Float(xs[0])
	d.Q25 = models.Float(quantile(xs, 0.25))
	d.Median = models.Float(quantile(xs, 0.5))
	d.Q75 = models.Float(quantile(xs, 0.75))
	d.Max = models.Float(xs[len(xs)-1])
	return d
}

// TopByPrice returns up to n listings ordered by price, most expensive first
// when desc is set. Equal prices keep dataset order; listings without a
// price are left out.
func TopByPrice(ds *models.Dataset, n int, desc bool) []models.Listing {
	var rows []models.Listing
	for _, l := range rowsOf(ds) {
		if !math.IsNaN(l.Price) {
			rows = append(rows, l)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return rows[i].Price > rows[j].Price
		}
		return rows[i].Price < rows[j].Price
	})
	return limit(rows, n)
}

// BuildConclusions assembles the closing analysis of ds.
func BuildConclusions(ds *models.Dataset, summary models.Summary, grouped models.GroupedStats) models.Conclusions {
	prices := Describe(models.ColPrice, Prices(ds))
	areas := Describe(models.ColArea, Areas(ds))

	c := models.Conclusions{
		MeanPrice:        summary.MeanPrice,
		MedianPrice:      prices.Median,
		MinPrice:         prices.Min,
		MaxPrice:         prices.Max,
		MeanPricePerArea: summary.MeanPricePerArea,
		MeanArea:         summary.MeanArea,
		MedianArea:       areas.Median,
		RoomCounts:       grouped.RoomCounts,
		Recommendations: []string{
			"Buyers: consider listings from individual sellers for better prices.",
			"Individual sellers: study agency prices to stay competitive.",
			"Investment: areas with a lower price per m² may offer better returns.",
		},
	}

	s := &c.Sellers
	s.IndividualCount = models.CountOf(grouped.SellerCounts, models.SellerIndividual)
	s.AgencyCount = models.CountOf(grouped.SellerCounts, models.SellerAgency)
	if n := ds.Len(); n > 0 {
		s.IndividualShare = models.Float(float64(s.IndividualCount) / float64(n) * 100)
		s.AgencyShare = models.Float(float64(s.AgencyCount) / float64(n) * 100)
	}
	s.IndividualMeanPrice = models.MeanOf(grouped.MeanPriceBySeller, models.SellerIndividual)
	s.AgencyMeanPrice = models.MeanOf(grouped.MeanPriceBySeller, models.SellerAgency)
	s.IndividualMeanPricePerArea = models.MeanOf(grouped.MeanPricePerAreaBySeller, models.SellerIndividual)
	s.AgencyMeanPricePerArea = models.MeanOf(grouped.MeanPricePerAreaBySeller, models.SellerAgency)
	s.PriceDifference = s.AgencyMeanPrice.Or(0) - s.IndividualMeanPrice.Or(0)
	s.PricePerAreaDifference = s.AgencyMeanPricePerArea.Or(0) - s.IndividualMeanPricePerArea.Or(0)

	c.Findings = findings(*s)
	return c
}

func findings(s models.SellerComparison) []string {
	direction := "lower"
	if s.PriceDifference > 0 {
		direction = "higher"
	}
	priceFinding := fmt.Sprintf(
		"Price gap: agency listings have a %s mean price than individual ones (€%s difference).",
		direction, FormatThousands(math.Abs(s.PriceDifference)))

	perAreaFinding := "Price per m²: higher for individual sellers."
	if s.PricePerAreaDifference > 0 {
		perAreaFinding = fmt.Sprintf("Price per m²: higher at agencies (€%s/m²).",
			FormatThousands(math.Abs(s.PricePerAreaDifference)))
	}

	majority := "Market mix: individual sellers and agencies list the same number of properties."
	switch {
	case s.AgencyCount > s.IndividualCount:
		majority = "Market mix: most listings come from agencies."
	case s.IndividualCount > s.AgencyCount:
		majority = "Market mix: most listings come from individual sellers."
	}

	return []string{priceFinding, perAreaFinding, majority}
}

// FormatThousands renders v rounded to an integer with comma separators.
func FormatThousands(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-" + FormatThousands(float64(-n))
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatThousands(float64(n/1000)), n%1000)
}

// quantile interpolates linearly between the closest ranks of sorted xs.
func quantile(xs []float64, p float64) float64 {
	if len(xs) == 1 {
		return xs[0]
	}
	h := float64(len(xs)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(xs) {
		return xs[len(xs)-1]
	}
	return xs[i] + (h-lo)*(xs[i+1]-xs[i])
}

func sortedCopy(values []float64) []float64 {
	xs := append([]float64(nil), values...)
	sort.Float64s(xs)
	return xs
}

// column collects f over ds, skipping NaN.
func column(ds *models.Dataset, f func(models.Listing) float64) []float64 {
	rows := rowsOf(ds)
	out := make([]float64, 0, len(rows))
	for _, l := range rows {
		out = appendKnown(out, f(l))
	}
	return out
}

func rowsOf(ds *models.Dataset) []models.Listing {
	if ds == nil {
		return nil
	}
	return ds.Rows
}

func finite(v float64) models.NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.NullFloat{}
	}
	return models.Float(v)
}

// Analyze computes every distribution and relationship aggregate of ds.
func Analyze(ds *models.Dataset, bins int) models.Analysis {
	a := models.Analysis{
		PriceHistogram:         Histogram(Prices(ds), bins),
		AreaHistogram:          Histogram(Areas(ds), bins),
		PriceBoxByRooms:        PriceBoxByRooms(ds),
		PricePerAreaByRooms:    MeanPricePerAreaByRooms(ds),
		PricePerAreaByLocation: MeanPricePerAreaByLocation(ds),
		AreaPrice:              AreaPriceScatter(ds),
		FloorPrice:             FloorPriceScatter(ds),
	}
	if m, ok := Correlation(ds); ok {
		a.Correlation = &m
	}
	return a
}
