package services

import (
	"fmt"
	"io"
	"strings"

	"madrid-dashboard/models"
	"madrid-dashboard/utils"
)

// InsightService builds and prints the terminal report.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate runs every aggregate over ds. A nil or empty dataset yields a
// report with null means and empty tables.
func (s *InsightService) Generate(ds *models.Dataset) *models.Report {
	summary := SummaryMetrics(ds)
	grouped := ComputeGroupedStats(ds)

	r := &models.Report{
		Source:      sourceOf(ds),
		Summary:     summary,
		Grouped:     grouped,
		Describe:    DescribeColumns(ds),
		Expensive:   TopByPrice(ds, TopN, true),
		Cheap:       TopByPrice(ds, TopN, false),
		Conclusions: BuildConclusions(ds, summary, grouped),
	}
	s.logger.Debug("[insights] Report generated for %d listings", summary.Count)
	return r
}

func (s *InsightService) Print(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 MADRID REAL ESTATE ANALYSIS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Source             : %s\n", r.Source)
	fmt.Fprintf(w, "  Listings           : \033[1m%d\033[0m\n", r.Summary.Count)
	if !r.Summary.MeanPrice.Valid {
		fmt.Fprintf(w, "  No data available\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}
	fmt.Fprintf(w, "  Mean price         : \033[1;32m€%s\033[0m\n", euros(r.Summary.MeanPrice))
	fmt.Fprintf(w, "  Mean price per m²  : \033[1;32m€%s\033[0m\n", euros(r.Summary.MeanPricePerArea))
	fmt.Fprintf(w, "  Mean area          : \033[1m%.1f m²\033[0m\n", r.Summary.MeanArea.Value)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Variables\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-14s %12s %12s %12s %12s\n", "", "min", "median", "mean", "max")
	for _, d := range r.Describe {
		fmt.Fprintf(w, "  %-14s %12.1f %12.1f %12.1f %12.1f\n",
			d.Variable, d.Min.Value, d.Median.Value, d.Mean.Value, d.Max.Value)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Rooms\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, rc := range r.Grouped.RoomCounts {
		mean := models.MeanOf(r.Grouped.MeanPriceByRooms, rc.Key)
		fmt.Fprintf(w, "  %2d rooms  %-28s (%d)  €%s\n",
			rc.Key, bar(rc.Count, r.Summary.Count, 28), rc.Count, euros(mean))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Locations\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Grouped.LocationCounts) == 0 {
		fmt.Fprintf(w, "  No location data\n")
	}
	for _, lc := range r.Grouped.LocationCounts {
		fmt.Fprintf(w, "  %-30s %s (%d)\n",
			truncate(lc.Key, 28), bar(lc.Count, r.Grouped.LocationCounts[0].Count, 20), lc.Count)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Most Expensive\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for i, l := range limit(r.Expensive, 5) {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-34s \033[1;31m€%s\033[0m\n",
			i+1, truncate(orDash(l.Location), 32), FormatThousands(l.Price))
	}
	fmt.Fprintln(w)

	c := r.Conclusions
	fmt.Fprintf(w, "\033[1;33m  Individual vs Agency\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-12s %8d listings  €%s mean  €%s/m²\n", models.SellerIndividual,
		c.Sellers.IndividualCount, euros(c.Sellers.IndividualMeanPrice), euros(c.Sellers.IndividualMeanPricePerArea))
	fmt.Fprintf(w, "  %-12s %8d listings  €%s mean  €%s/m²\n", models.SellerAgency,
		c.Sellers.AgencyCount, euros(c.Sellers.AgencyMeanPrice), euros(c.Sellers.AgencyMeanPricePerArea))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Findings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, f := range c.Findings {
		fmt.Fprintf(w, "  • %s\n", f)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func euros(v models.NullFloat) string {
	if !v.Valid {
		return "n/a"
	}
	return FormatThousands(v.Value)
}

func bar(count, max, width int) string {
	if max <= 0 {
		return ""
	}
	n := count * width / max
	if n == 0 && count > 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
