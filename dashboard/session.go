package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
	"madrid-dashboard/utils"
)

// ErrInvalidEvent is wrapped by every rejected event.
var ErrInvalidEvent = errors.New("invalid event")

// Tab names one of the dashboard views.
type Tab string

const (
	TabOverview    Tab = "overview"
	TabAnalysis    Tab = "analysis"
	TabDetails     Tab = "details"
	TabData        Tab = "data"
	TabConclusions Tab = "conclusions"
)

// Tabs lists the views in display order.
var Tabs = []Tab{TabOverview, TabAnalysis, TabDetails, TabData, TabConclusions}

// ParseTab validates s. An empty string selects the overview.
func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabOverview, nil
	}
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tab %q", ErrInvalidEvent, s)
}

// Session is the interactive state of one dashboard: the filter selection
// and the visible tab.
type Session struct {
	Criteria models.FilterCriteria `json:"criteria"`
	Tab      Tab                   `json:"tab"`
}

// EventKind identifies a user interaction.
type EventKind string

const (
	SetPriceRange  EventKind = "set_price_range"
	SetAreaRange   EventKind = "set_area_range"
	SetRooms       EventKind = "set_rooms"
	SetLocations   EventKind = "set_locations"
	SetSellerTypes EventKind = "set_seller_types"
	SetTab         EventKind = "set_tab"
	Reset          EventKind = "reset"
)

// Event is one user interaction. Only the fields relevant to Kind are read.
type Event struct {
	Kind   EventKind `json:"kind"`
	Min    float64   `json:"min,omitempty"`
	Max    float64   `json:"max,omitempty"`
	Rooms  []int     `json:"rooms,omitempty"`
	Values []string  `json:"values,omitempty"`
	Tab    string    `json:"tab,omitempty"`
}

// apply mutates s according to ev. s is left untouched on error.
func (s *Session) apply(ev Event, opts models.FilterOptions) error {
	switch ev.Kind {
	case SetPriceRange, SetAreaRange:
		if math.IsNaN(ev.Min) || math.IsNaN(ev.Max) {
			return fmt.Errorf("%w: %s: range bound is NaN", ErrInvalidEvent, ev.Kind)
		}
		if ev.Min > ev.Max {
			return fmt.Errorf("%w: %s: min %.2f exceeds max %.2f", ErrInvalidEvent, ev.Kind, ev.Min, ev.Max)
		}
		if ev.Kind == SetPriceRange {
			s.Criteria.PriceMin, s.Criteria.PriceMax = ev.Min, ev.Max
		} else {
			s.Criteria.AreaMin, s.Criteria.AreaMax = ev.Min, ev.Max
		}
	case SetRooms:
		s.Criteria.Rooms = append([]int(nil), ev.Rooms...)
	case SetLocations:
		s.Criteria.Locations = append([]string(nil), ev.Values...)
	case SetSellerTypes:
		s.Criteria.SellerTypes = append([]string(nil), ev.Values...)
	case SetTab:
		tab, err := ParseTab(ev.Tab)
		if err != nil {
			return err
		}
		s.Tab = tab
	case Reset:
		s.Criteria = opts.DefaultCriteria()
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
	return nil
}

// DatasetLoader is what the orchestrator needs from the storage layer.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*models.Dataset, error)
	FilterOptions(ctx context.Context, path string) (models.FilterOptions, error)
}

// Pass is the immutable result of one recomputation. Renderers only read it.
type Pass struct {
	Seq      uint64                 `json:"seq"`
	At       time.Time              `json:"at"`
	Session  Session                `json:"session"`
	Options  models.FilterOptions   `json:"options"`
	Total    int                    `json:"total"`
	Filtered *models.Dataset        `json:"-"`
	Priced   []models.PricedListing `json:"-"`
	Report   *models.Report         `json:"report"`
	Analysis models.Analysis        `json:"analysis"`
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Loader        DatasetLoader
	Path          string
	HistogramBins int
	Logger        *utils.Logger
}

// Orchestrator owns the session and turns each event into a full
// filter-aggregate pass. Passes run one at a time.
//
// There is a single Session per Orchestrator, shared by every HTTP client:
// a filter change or tab switch from one browser (including GET /?tab=)
// is what every other client sees next.
type Orchestrator struct {
	loader   DatasetLoader
	path     string
	bins     int
	logger   *utils.Logger
	insights *services.InsightService

	mu      sync.Mutex
	session Session
	latest  *Pass
	seq     uint64
}

// NewOrchestrator loads the dataset and computes the initial pass with
// every filter wide open. A load failure is returned unchanged.
func NewOrchestrator(ctx context.Context, cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDiscardLogger()
	}
	if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = 25
	}

	o := &Orchestrator{
		loader:   cfg.Loader,
		path:     cfg.Path,
		bins:     cfg.HistogramBins,
		logger:   cfg.Logger,
		insights: services.NewInsightService(cfg.Logger),
	}

	opts, err := o.loader.FilterOptions(ctx, o.path)
	if err != nil {
		return nil, err
	}
	o.session = Session{Criteria: opts.DefaultCriteria(), Tab: TabOverview}

	if _, err := o.run(ctx, o.session); err != nil {
		return nil, err
	}
	return o, nil
}

// Dispatch applies events in order to a copy of the session and recomputes.
// If any event is invalid, or the dataset cannot be read, nothing changes
// and the previous pass stays current.
func (o *Orchestrator) Dispatch(ctx context.Context, events ...Event) (*Pass, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	opts, err := o.loader.FilterOptions(ctx, o.path)
	if err != nil {
		return o.latest, err
	}

	next := Session{Criteria: o.session.Criteria.Clone(), Tab: o.session.Tab}
	for _, ev := range events {
		if err := next.apply(ev, opts); err != nil {
			o.logger.Warn("[dashboard] Rejected %s event: %v", ev.Kind, err)
			return o.latest, err
		}
	}

	p, err := o.run(ctx, next)
	if err != nil {
		return o.latest, err
	}
	o.session = next
	return p, nil
}

// Latest returns the most recent pass.
func (o *Orchestrator) Latest() *Pass {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// run is called with mu held, or before the orchestrator is shared.
func (o *Orchestrator) run(ctx context.Context, s Session) (*Pass, error) {
	start := time.Now()

	ds, err := o.loader.Load(ctx, o.path)
	if err != nil {
		return nil, err
	}
	opts, err := o.loader.FilterOptions(ctx, o.path)
	if err != nil {
		return nil, err
	}

	filtered := services.ApplyFilters(ds, s.Criteria)
	o.seq++
	p := &Pass{
		Seq:      o.seq,
		At:       time.Now(),
		Session:  Session{Criteria: s.Criteria.Clone(), Tab: s.Tab},
		Options:  opts,
		Total:    ds.Len(),
		Filtered: filtered,
		Priced:   services.WithPricePerArea(filtered),
		Report:   o.insights.Generate(filtered),
		Analysis: services.Analyze(filtered, o.bins),
	}
	o.latest = p

	o.logger.Debug("[dashboard] Pass %d: %d/%d listings in %v", p.Seq, filtered.Len(), ds.Len(), time.Since(start))
	return p, nil
}
