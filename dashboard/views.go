package dashboard

import (
	"madrid-dashboard/models"
)

// dataPreviewRows bounds the rows embedded in the HTML data tab. The JSON
// view and the exports carry every row.
const dataPreviewRows = 200

// Header is the metric strip shown above every tab.
type Header struct {
	Total            int              `json:"total"`
	Filtered         int              `json:"filtered"`
	MeanPrice        models.NullFloat `json:"mean_price"`
	MeanPricePerArea models.NullFloat `json:"mean_price_per_area"`
	MeanArea         models.NullFloat `json:"mean_area"`
	IndividualCount  int              `json:"individual_count"`
	AgencyCount      int              `json:"agency_count"`
}

type OverviewView struct {
	RoomCounts        []models.KeyCount[int]    `json:"room_counts"`
	MeanPriceByRooms  []models.KeyMean[int]     `json:"mean_price_by_rooms"`
	SellerCounts      []models.KeyCount[string] `json:"seller_counts"`
	MeanPriceBySeller []models.KeyMean[string]  `json:"mean_price_by_seller"`
	Charts            []string                  `json:"charts"`
}

type AnalysisView struct {
	Describe            []models.Describe         `json:"describe"`
	PriceHistogram      []models.HistogramBin     `json:"price_histogram"`
	AreaHistogram       []models.HistogramBin     `json:"area_histogram"`
	PriceBoxByRooms     []models.BoxStats         `json:"price_box_by_rooms"`
	PricePerAreaByRooms []models.KeyMean[int]     `json:"price_per_area_by_rooms"`
	Correlation         *models.CorrelationMatrix `json:"correlation,omitempty"`
	AreaPrice           models.Scatter            `json:"area_price"`
	Charts              []string                  `json:"charts"`
}

type DetailsView struct {
	LocationCounts           []models.KeyCount[string] `json:"location_counts"`
	MeanPriceByLocation      []models.KeyMean[string]  `json:"mean_price_by_location"`
	PricePerAreaByLocation   []models.KeyMean[string]  `json:"price_per_area_by_location"`
	ElevatorCounts           []models.KeyCount[bool]   `json:"elevator_counts"`
	FloorLabelCounts         []models.KeyCount[string] `json:"floor_label_counts"`
	MeanPricePerAreaBySeller []models.KeyMean[string]  `json:"mean_price_per_area_by_seller"`
	FloorPrice               models.Scatter            `json:"floor_price"`
	Charts                   []string                  `json:"charts"`
}

type DataView struct {
	Count    int                    `json:"count"`
	Rows     []models.PricedListing `json:"rows"`
	Describe []models.Describe      `json:"describe"`
}

type ConclusionsView struct {
	Conclusions models.Conclusions `json:"conclusions"`
	Expensive   []models.Listing   `json:"most_expensive"`
	Cheap       []models.Listing   `json:"cheapest"`
}

// tabCharts lists the charts each tab embeds, in display order.
var tabCharts = map[Tab][]string{
	TabOverview: {ChartRooms, ChartSellers, ChartPriceByRooms, ChartPriceBySeller},
	TabAnalysis: {ChartPriceHistogram, ChartAreaHistogram, ChartPricePerAreaByRooms, ChartAreaPrice},
	TabDetails:  {ChartLocations, ChartPriceByLocation, ChartPricePerAreaByLocation, ChartElevator, ChartFloors, ChartFloorPrice},
}

func buildHeader(p *Pass) Header {
	s := p.Report.Summary
	return Header{
		Total:            p.Total,
		Filtered:         s.Count,
		MeanPrice:        s.MeanPrice,
		MeanPricePerArea: s.MeanPricePerArea,
		MeanArea:         s.MeanArea,
		IndividualCount:  models.CountOf(p.Report.Grouped.SellerCounts, models.SellerIndividual),
		AgencyCount:      models.CountOf(p.Report.Grouped.SellerCounts, models.SellerAgency),
	}
}

// buildView maps a pass to the view model of tab. rowLimit caps the data
// tab rows; zero means all.
func buildView(p *Pass, tab Tab, rowLimit int) any {
	g := p.Report.Grouped
	a := p.Analysis

	switch tab {
	case TabAnalysis:
		return AnalysisView{
			Describe:            p.Report.Describe,
			PriceHistogram:      a.PriceHistogram,
			AreaHistogram:       a.AreaHistogram,
			PriceBoxByRooms:     a.PriceBoxByRooms,
			PricePerAreaByRooms: a.PricePerAreaByRooms,
			Correlation:         a.Correlation,
			AreaPrice:           a.AreaPrice,
			Charts:              tabCharts[TabAnalysis],
		}
	case TabDetails:
		return DetailsView{
			LocationCounts:           g.LocationCounts,
			MeanPriceByLocation:      g.MeanPriceByLocation,
			PricePerAreaByLocation:   a.PricePerAreaByLocation,
			ElevatorCounts:           g.ElevatorCounts,
			FloorLabelCounts:         g.FloorLabelCounts,
			MeanPricePerAreaBySeller: g.MeanPricePerAreaBySeller,
			FloorPrice:               a.FloorPrice,
			Charts:                   tabCharts[TabDetails],
		}
	case TabData:
		rows := p.Priced
		if rowLimit > 0 && len(rows) > rowLimit {
			rows = rows[:rowLimit]
		}
		return DataView{Count: len(p.Priced), Rows: rows, Describe: p.Report.Describe}
	case TabConclusions:
		return ConclusionsView{
			Conclusions: p.Report.Conclusions,
			Expensive:   p.Report.Expensive,
			Cheap:       p.Report.Cheap,
		}
	default:
		return OverviewView{
			RoomCounts:        g.RoomCounts,
			MeanPriceByRooms:  g.MeanPriceByRooms,
			SellerCounts:      g.SellerCounts,
			MeanPriceBySeller: g.MeanPriceBySeller,
			Charts:            tabCharts[TabOverview],
		}
	}
}
