package dashboard

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"madrid-dashboard/config"
	"madrid-dashboard/models"
)

// Chart names served under /charts/{name}.png.
const (
	ChartRooms                  = "rooms"
	ChartSellers                = "sellers"
	ChartPriceByRooms           = "price-by-rooms"
	ChartPriceBySeller          = "price-by-seller"
	ChartPriceHistogram         = "price-histogram"
	ChartAreaHistogram          = "area-histogram"
	ChartPricePerAreaByRooms    = "price-per-area-by-rooms"
	ChartAreaPrice              = "area-price"
	ChartLocations              = "locations"
	ChartPriceByLocation        = "price-by-location"
	ChartPricePerAreaByLocation = "price-per-area-by-location"
	ChartElevator               = "elevator"
	ChartFloors                 = "floors"
	ChartFloorPrice             = "floor-price"
)

var (
	// ErrNoData is returned when a chart has nothing meaningful to draw.
	ErrNoData = errors.New("no data to chart")
	// ErrUnknownChart is returned for a name outside the chart list.
	ErrUnknownChart = errors.New("unknown chart")
)

const (
	chartHeight   = 420
	minChartWidth = 800
	barWidth      = 40
	barSpacing    = 20
)

// ChartRenderer draws PNG charts from a pass using the configured palette.
type ChartRenderer struct {
	primary   drawing.Color
	secondary drawing.Color
	accent    drawing.Color
	light     drawing.Color
}

func NewChartRenderer(p config.Palette) *ChartRenderer {
	return &ChartRenderer{
		primary:   drawing.ColorFromHex(p.Primary),
		secondary: drawing.ColorFromHex(p.Secondary),
		accent:    drawing.ColorFromHex(p.Accent),
		light:     drawing.ColorFromHex(p.Light),
	}
}

// Render writes chart name for p to w.
func (c *ChartRenderer) Render(w io.Writer, p *Pass, name string) error {
	g := p.Report.Grouped
	a := p.Analysis

	switch name {
	case ChartRooms:
		return c.bar(w, "Listings by rooms", countBars(g.RoomCounts, strconv.Itoa))
	case ChartSellers:
		return c.pie(w, "Seller type", countBars(g.SellerCounts, identity))
	case ChartPriceByRooms:
		return c.bar(w, "Mean price by rooms (€)", meanBars(g.MeanPriceByRooms, strconv.Itoa))
	case ChartPriceBySeller:
		return c.bar(w, "Mean price by seller (€)", meanBars(g.MeanPriceBySeller, identity))
	case ChartPriceHistogram:
		return c.bar(w, "Price distribution (€)", histogramBars(a.PriceHistogram))
	case ChartAreaHistogram:
		return c.bar(w, "Area distribution (m²)", histogramBars(a.AreaHistogram))
	case ChartPricePerAreaByRooms:
		return c.bar(w, "Mean price per m² by rooms (€)", meanBars(a.PricePerAreaByRooms, strconv.Itoa))
	case ChartAreaPrice:
		return c.scatter(w, "Price vs area", "Area (m²)", "Price (€)", a.AreaPrice)
	case ChartLocations:
		return c.bar(w, "Top locations by listings", countBars(g.LocationCounts, identity))
	case ChartPriceByLocation:
		return c.bar(w, "Top locations by mean price (€)", meanBars(g.MeanPriceByLocation, identity))
	case ChartPricePerAreaByLocation:
		return c.bar(w, "Top locations by price per m² (€)", meanBars(a.PricePerAreaByLocation, identity))
	case ChartElevator:
		return c.pie(w, "Elevator", countBars(g.ElevatorCounts, yesNo))
	case ChartFloors:
		return c.bar(w, "Top floors by listings", countBars(g.FloorLabelCounts, identity))
	case ChartFloorPrice:
		return c.scatter(w, "Price vs floor", "Floor", "Price (€)", a.FloorPrice)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

type barValue struct {
	label string
	value float64
}

func (c *ChartRenderer) bar(w io.Writer, title string, values []barValue) error {
	top := 0.0
	for _, v := range values {
		top = math.Max(top, v.value)
	}
	if len(values) == 0 || top <= 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(values))
	for i, v := range values {
		col := c.primary
		if i%2 == 1 {
			col = c.secondary
		}
		bars[i] = chart.Value{
			Label: v.label,
			Value: v.value,
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		}
	}

	graph := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		Width:      max(minChartWidth, 160+len(bars)*(barWidth+barSpacing)),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: compactFormatter,
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

func (c *ChartRenderer) pie(w io.Writer, title string, values []barValue) error {
	total := 0.0
	for _, v := range values {
		total += v.value
	}
	if total <= 0 {
		return ErrNoData
	}

	palette := []drawing.Color{c.primary, c.secondary, c.accent, c.light}
	slices := make([]chart.Value, len(values))
	for i, v := range values {
		col := palette[i%len(palette)]
		slices[i] = chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", v.label, v.value/total*100),
			Value: v.value,
			Style: chart.Style{FillColor: col, StrokeColor: drawing.ColorWhite, StrokeWidth: 2},
		}
	}

	graph := chart.PieChart{
		Title:  title,
		Width:  chartHeight + 80,
		Height: chartHeight + 80,
		Values: slices,
	}
	return graph.Render(chart.PNG, w)
}

// pointStyle renders points only, without connecting lines.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func (c *ChartRenderer) scatter(w io.Writer, title, xName, yName string, s models.Scatter) error {
	if len(s.Points) < 2 {
		return ErrNoData
	}
	xs := make([]float64, len(s.Points))
	ys := make([]float64, len(s.Points))
	minX, maxX := s.Points[0].X, s.Points[0].X
	minY, maxY := s.Points[0].Y, s.Points[0].Y
	for i, pt := range s.Points {
		xs[i], ys[i] = pt.X, pt.Y
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	if minX == maxX || minY == maxY {
		return ErrNoData
	}

	series := []chart.Series{
		chart.ContinuousSeries{Name: "Listings", XValues: xs, YValues: ys, Style: pointStyle(c.primary)},
	}
	if tl := s.Trendline; tl != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("Trend (R² %.2f)", tl.RSquared),
			XValues: []float64{minX, maxX},
			YValues: []float64{tl.At(minX), tl.At(maxX)},
			Style:   chart.Style{StrokeColor: c.accent, StrokeWidth: 2},
		})
	}

	graph := chart.Chart{
		Title:      title,
		Width:      minChartWidth,
		Height:     chartHeight + 60,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, ValueFormatter: compactFormatter},
		YAxis:      chart.YAxis{Name: yName, ValueFormatter: compactFormatter},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

func countBars[K comparable](rows []models.KeyCount[K], label func(K) string) []barValue {
	out := make([]barValue, len(rows))
	for i, r := range rows {
		out[i] = barValue{label: label(r.Key), value: float64(r.Count)}
	}
	return out
}

func meanBars[K comparable](rows []models.KeyMean[K], label func(K) string) []barValue {
	out := make([]barValue, len(rows))
	for i, r := range rows {
		out[i] = barValue{label: label(r.Key), value: r.Mean}
	}
	return out
}

func histogramBars(bins []models.HistogramBin) []barValue {
	out := make([]barValue, len(bins))
	for i, b := range bins {
		out[i] = barValue{label: compact(b.RangeStart), value: float64(b.Count)}
	}
	return out
}

func identity(s string) string { return s }

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func compactFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return compact(f)
	}
	return fmt.Sprint(v)
}

// compact renders v with a k/M suffix.
func compact(v float64) string {
	switch a := math.Abs(v); {
	case a >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case a >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
