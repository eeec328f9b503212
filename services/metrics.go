package services

import (
	"cmp"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"madrid-dashboard/models"
)

// TopN bounds the location and floor label rankings.
const TopN = 10

// SummaryMetrics returns the mean price, mean price-per-area and mean area
// of ds. Mean price-per-area is the mean of the per-row values, not the
// ratio of the two means. Missing values are skipped; a mean with nothing
// to average is null.
func SummaryMetrics(ds *models.Dataset) models.Summary {
	s := models.Summary{Count: ds.Len()}
	if s.Count == 0 {
		return s
	}

	var prices, areas, perArea []float64
	for _, l := range ds.Rows {
		prices = appendKnown(prices, l.Price)
		areas = appendKnown(areas, l.Area)
		perArea = appendKnown(perArea, l.PricePerArea())
	}

	s.MeanPrice = mean(prices)
	s.MeanPricePerArea = mean(perArea)
	s.MeanArea = mean(areas)
	return s
}

func appendKnown(xs []float64, v float64) []float64 {
	if math.IsNaN(v) {
		return xs
	}
	return append(xs, v)
}

func mean(xs []float64) models.NullFloat {
	if len(xs) == 0 {
		return models.NullFloat{}
	}
	return models.Float(stat.Mean(xs, nil))
}

// WithPricePerArea returns a copy of every row with its derived
// price-per-area. ds is not modified.
func WithPricePerArea(ds *models.Dataset) []models.PricedListing {
	out := make([]models.PricedListing, 0, ds.Len())
	if ds.Len() == 0 {
		return out
	}
	for _, l := range ds.Rows {
		out = append(out, models.PricedListing{Listing: l, PricePerArea: l.PricePerArea()})
	}
	return out
}

// ComputeGroupedStats derives every category-wise aggregate from ds.
// Missing keys are skipped, so an all-null column yields an empty slice.
func ComputeGroupedStats(ds *models.Dataset) models.GroupedStats {
	var rows []models.Listing
	if ds != nil {
		rows = ds.Rows
	}

	byRooms := groupBy(rows, roomsKey, priceOf)
	byLocation := groupBy(rows, locationKey, priceOf)
	bySeller := groupBy(rows, sellerKey, priceOf)
	bySellerPerArea := groupBy(rows, sellerKey, pricePerAreaOf)

	return models.GroupedStats{
		RoomCounts:               sortedByKey(counts(byRooms)),
		MeanPriceByRooms:         sortedMeansByKey(means(byRooms)),
		LocationCounts:           limit(countsDesc(counts(byLocation)), TopN),
		MeanPriceByLocation:      limit(meansDesc(means(byLocation)), TopN),
		ElevatorCounts:           countsDesc(counts(groupBy(rows, elevatorKey, priceOf))),
		FloorLabelCounts:         limit(countsDesc(counts(groupBy(rows, floorLabelKey, priceOf))), TopN),
		SellerCounts:             countsDesc(counts(bySeller)),
		MeanPriceBySeller:        sortedMeansByKey(means(bySeller)),
		MeanPricePerAreaBySeller: sortedMeansByKey(means(bySellerPerArea)),
	}
}

// group accumulates one key in first-occurrence order. known counts the
// rows whose value was not NaN.
type group[K comparable] struct {
	key   K
	count int
	known int
	sum   float64
}

// groupBy buckets rows by key, keeping groups in the order their key first
// appears. key reports false for a missing value.
func groupBy[K comparable](rows []models.Listing, key func(models.Listing) (K, bool), value func(models.Listing) float64) []group[K] {
	index := make(map[K]int)
	groups := make([]group[K], 0)

	for _, l := range rows {
		k, ok := key(l)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, group[K]{key: k})
		}
		groups[i].count++
		if v := value(l); !math.IsNaN(v) {
			groups[i].known++
			groups[i].sum += v
		}
	}
	return groups
}

func counts[K comparable](groups []group[K]) []models.KeyCount[K] {
	out := make([]models.KeyCount[K], len(groups))
	for i, g := range groups {
		out[i] = models.KeyCount[K]{Key: g.key, Count: g.count}
	}
	return out
}

// means skips groups without a single known value.
func means[K comparable](groups []group[K]) []models.KeyMean[K] {
	out := make([]models.KeyMean[K], 0, len(groups))
	for _, g := range groups {
		if g.known == 0 {
			continue
		}
		out = append(out, models.KeyMean[K]{Key: g.key, Mean: g.sum / float64(g.known), Count: g.known})
	}
	return out
}

// countsDesc orders by count descending; ties keep first-occurrence order.
func countsDesc[K comparable](rows []models.KeyCount[K]) []models.KeyCount[K] {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows
}

// meansDesc orders by mean descending; ties keep first-occurrence order.
func meansDesc[K comparable](rows []models.KeyMean[K]) []models.KeyMean[K] {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Mean > rows[j].Mean })
	return rows
}

func sortedByKey[K cmp.Ordered](rows []models.KeyCount[K]) []models.KeyCount[K] {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func sortedMeansByKey[K cmp.Ordered](rows []models.KeyMean[K]) []models.KeyMean[K] {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func limit[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func roomsKey(l models.Listing) (int, bool) { return l.Rooms, true }
func elevatorKey(l models.Listing) (bool, bool) { return l.HasElevator.Value, l.HasElevator.Valid }
func locationKey(l models.Listing) (string, bool) { return l.Location, l.Location != "" }
func sellerKey(l models.Listing) (string, bool) { return l.SellerType, l.SellerType != "" }
func floorLabelKey(l models.Listing) (string, bool) { return l.FloorLabel, l.FloorLabel != "" }

func priceOf(l models.Listing) float64 { return l.Price }
func pricePerAreaOf(l models.Listing) float64 { return l.PricePerArea() }
