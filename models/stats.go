package models

// Summary holds the headline means of a dataset. Every mean is invalid when
// the dataset is empty.
type Summary struct {
	Count            int       `json:"count"`
	MeanPrice        NullFloat `json:"mean_price"`
	MeanPricePerArea NullFloat `json:"mean_price_per_area"`
	MeanArea         NullFloat `json:"mean_area"`
}

// KeyCount is one row of a frequency table.
type KeyCount[K comparable] struct {
	Key   K   `json:"key"`
	Count int `json:"count"`
}

// KeyMean is one row of a grouped mean.
type KeyMean[K comparable] struct {
	Key   K       `json:"key"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// CountOf returns the count stored for key, or 0.
func CountOf[K comparable](rows []KeyCount[K], key K) int {
	for _, r := range rows {
		if r.Key == key {
			return r.Count
		}
	}
	return 0
}

// MeanOf returns the mean stored for key, or an invalid NullFloat.
func MeanOf[K comparable](rows []KeyMean[K], key K) NullFloat {
	for _, r := range rows {
		if r.Key == key {
			return Float(r.Mean)
		}
	}
	return NullFloat{}
}

// GroupedStats bundles the category-wise aggregates shared by every view.
type GroupedStats struct {
	RoomCounts               []KeyCount[int]    `json:"room_counts"`
	MeanPriceByRooms         []KeyMean[int]     `json:"mean_price_by_rooms"`
	LocationCounts           []KeyCount[string] `json:"location_counts"`
	MeanPriceByLocation      []KeyMean[string]  `json:"mean_price_by_location"`
	ElevatorCounts           []KeyCount[bool]   `json:"elevator_counts"`
	FloorLabelCounts         []KeyCount[string] `json:"floor_label_counts"`
	SellerCounts             []KeyCount[string] `json:"seller_counts"`
	MeanPriceBySeller        []KeyMean[string]  `json:"mean_price_by_seller"`
	MeanPricePerAreaBySeller []KeyMean[string]  `json:"mean_price_per_area_by_seller"`
}

// HistogramBin is one equal-width bucket.
type HistogramBin struct {
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
	Count      int     `json:"count"`
}

// BoxStats is the five-number summary of one group.
type BoxStats struct {
	Key    int     `json:"key"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe mirrors a dataframe describe() column.
type Describe struct {
	Variable string    `json:"variable"`
	Count    int       `json:"count"`
	Mean     NullFloat `json:"mean"`
	Std      NullFloat `json:"std"`
	Min      NullFloat `json:"min"`
	Q25      NullFloat `json:"q25"`
	Median   NullFloat `json:"median"`
	Q75      NullFloat `json:"q75"`
	Max      NullFloat `json:"max"`
}

// CorrelationMatrix is a square Pearson matrix over Variables. A cell is
// null when either variable is constant.
type CorrelationMatrix struct {
	Variables []string      `json:"variables"`
	Values    [][]NullFloat `json:"values"`
	Rows      int           `json:"rows"`
}

// Trendline is an ordinary least squares fit y = Intercept + Slope*x.
type Trendline struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	RSquared  float64 `json:"r_squared"`
}

// At evaluates the fitted line.
func (t Trendline) At(x float64) float64 { return t.Intercept + t.Slope*x }

// Point is one scatter sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scatter is a point cloud with an optional fitted line.
type Scatter struct {
	Points    []Point    `json:"points"`
	Trendline *Trendline `json:"trendline,omitempty"`
}

// SellerComparison is the individual vs agency block of the conclusions.
type SellerComparison struct {
	IndividualCount            int       `json:"individual_count"`
	AgencyCount                int       `json:"agency_count"`
	IndividualShare            NullFloat `json:"individual_share"`
	AgencyShare                NullFloat `json:"agency_share"`
	IndividualMeanPrice        NullFloat `json:"individual_mean_price"`
	AgencyMeanPrice            NullFloat `json:"agency_mean_price"`
	IndividualMeanPricePerArea NullFloat `json:"individual_mean_price_per_area"`
	AgencyMeanPricePerArea     NullFloat `json:"agency_mean_price_per_area"`
	PriceDifference            float64   `json:"price_difference"`
	PricePerAreaDifference     float64   `json:"price_per_area_difference"`
}

// Conclusions is the closing analysis of a dataset.
type Conclusions struct {
	MeanPrice        NullFloat        `json:"mean_price"`
	MedianPrice      NullFloat        `json:"median_price"`
	MinPrice         NullFloat        `json:"min_price"`
	MaxPrice         NullFloat        `json:"max_price"`
	MeanPricePerArea NullFloat        `json:"mean_price_per_area"`
	MeanArea         NullFloat        `json:"mean_area"`
	MedianArea       NullFloat        `json:"median_area"`
	Sellers          SellerComparison `json:"sellers"`
	Findings         []string         `json:"findings"`
	Recommendations  []string         `json:"recommendations"`
	RoomCounts       []KeyCount[int]  `json:"room_counts"`
}
