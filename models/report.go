package models

// Report is the full analysis of one filtered dataset, printed by the
// terminal report and embedded in the analysis tab.
type Report struct {
	Source      string       `json:"source"`
	Summary     Summary      `json:"summary"`
	Grouped     GroupedStats `json:"grouped"`
	Describe    []Describe   `json:"describe"`
	Expensive   []Listing    `json:"most_expensive"`
	Cheap       []Listing    `json:"cheapest"`
	Conclusions Conclusions  `json:"conclusions"`
}

// Analysis holds the distribution and relationship aggregates behind the
// analysis and details tabs.
type Analysis struct {
	PriceHistogram         []HistogramBin     `json:"price_histogram"`
	AreaHistogram          []HistogramBin     `json:"area_histogram"`
	PriceBoxByRooms        []BoxStats         `json:"price_box_by_rooms"`
	PricePerAreaByRooms    []KeyMean[int]     `json:"price_per_area_by_rooms"`
	PricePerAreaByLocation []KeyMean[string]  `json:"price_per_area_by_location"`
	Correlation            *CorrelationMatrix `json:"correlation,omitempty"`
	AreaPrice              Scatter            `json:"area_price"`
	FloorPrice             Scatter            `json:"floor_price"`
}
