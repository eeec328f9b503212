package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"madrid-dashboard/config"
	"madrid-dashboard/models"
	"madrid-dashboard/storage"
	"madrid-dashboard/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxEventBody = 1 << 20

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	Palette        config.Palette
	Logger         *utils.Logger
}

// Server serves the HTML dashboard, its JSON API, charts and exports.
type Server struct {
	orch       *Orchestrator
	charts     *ChartRenderer
	tmpl       *template.Template
	logger     *utils.Logger
	httpServer *http.Server
}

func NewServer(cfg ServerConfig, orch *Orchestrator) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDiscardLogger()
	}

	tmpl, err := template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse templates: %w", err)
	}

	s := &Server{
		orch:   orch,
		charts: NewChartRenderer(cfg.Palette),
		tmpl:   tmpl,
		logger: cfg.Logger,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.routes(cfg.AllowedOrigins),
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("[http] Dashboard listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("[http] Stopping dashboard...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, LoggerMiddleware(s.logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", s.handleIndex)
	r.Post("/filters", s.handleFilters)
	r.Post("/reset", s.handleReset)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/state", s.handleState)
		r.Post("/events", s.handleEvents)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/views/{tab}", s.handleView)
	})

	r.Get("/charts/{name}.png", s.handleChart)
	r.Get("/export/listings.csv", s.handleExportCSV)
	r.Get("/export/listings.xlsx", s.handleExportXLSX)
	return r
}

// stateResponse is the body of /api/state and /api/events.
type stateResponse struct {
	Seq     uint64  `json:"seq"`
	Session Session `json:"session"`
	Header  Header  `json:"header"`
}

func newStateResponse(p *Pass) stateResponse {
	return stateResponse{Seq: p.Seq, Session: p.Session, Header: buildHeader(p)}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.orch.Latest().Options)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, newStateResponse(s.orch.Latest()))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	p := s.orch.Latest()
	respondWithJSON(w, http.StatusOK, struct {
		Summary models.Summary      `json:"summary"`
		Grouped models.GroupedStats `json:"grouped"`
	}{p.Report.Summary, p.Report.Grouped})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	tab, err := ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	p := s.orch.Latest()
	respondWithJSON(w, http.StatusOK, struct {
		Header Header `json:"header"`
		View   any    `json:"view"`
	}{buildHeader(p), buildView(p, tab, 0)})
}

// handleEvents accepts a single event object or an array of events, applied
// atomically.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var events []Event
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &events)
	} else {
		var ev Event
		err = json.Unmarshal(trimmed, &ev)
		events = []Event{ev}
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	p, err := s.orch.Dispatch(r.Context(), events...)
	if err != nil {
		status, msg := s.dispatchError(r, err)
		writeJSONError(w, status, msg)
		return
	}
	respondWithJSON(w, http.StatusOK, newStateResponse(p))
}

func (s *Server) dispatchError(r *http.Request, err error) (int, string) {
	if errors.Is(err, ErrInvalidEvent) {
		return http.StatusBadRequest, err.Error()
	}
	loggerFrom(r.Context(), s.logger).Error("[dashboard] Recompute failed: %v", err)
	return http.StatusServiceUnavailable, "Dataset unavailable"
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var buf bytes.Buffer
	err := s.charts.Render(&buf, s.orch.Latest(), name)
	switch {
	case errors.Is(err, ErrUnknownChart):
		http.NotFound(w, r)
		return
	case errors.Is(err, ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		loggerFrom(r.Context(), s.logger).Error("[charts] Render %s failed: %v", name, err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	p := s.orch.Latest()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="listings.csv"`)

	cw, err := storage.NewCSVWriter(w)
	if err == nil {
		err = storage.WriteAll(cw, p.Priced)
	}
	if err != nil {
		loggerFrom(r.Context(), s.logger).Error("[export] CSV export failed: %v", err)
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	p := s.orch.Latest()

	var buf bytes.Buffer
	xw, err := storage.NewXLSXWriter(&buf)
	if err == nil {
		err = storage.WriteAll(xw, p.Priced)
	}
	if err != nil {
		loggerFrom(r.Context(), s.logger).Error("[export] XLSX export failed: %v", err)
		http.Error(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="listings.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// pageData feeds templates/dashboard.html.
type pageData struct {
	Header   Header
	Session  Session
	Options  models.FilterOptions
	Tabs     []Tab
	View     any
	Charts   []string
	Seq      uint64
	Error    string
	Limited  bool
	RowLimit int
}

// handleIndex renders the page. A ?tab= parameter switches the shared
// session's tab.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p := s.orch.Latest()

	if q := r.URL.Query().Get("tab"); q != "" && Tab(q) != p.Session.Tab {
		next, err := s.orch.Dispatch(r.Context(), Event{Kind: SetTab, Tab: q})
		if err != nil {
			status, msg := s.dispatchError(r, err)
			s.render(w, r, status, p, msg)
			return
		}
		p = next
	}
	s.render(w, r, http.StatusOK, p, "")
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, s.orch.Latest(), "Invalid form")
		return
	}

	events, err := formEvents(r.PostForm)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, s.orch.Latest(), err.Error())
		return
	}

	p, err := s.orch.Dispatch(r.Context(), events...)
	if err != nil {
		status, msg := s.dispatchError(r, err)
		s.render(w, r, status, s.orch.Latest(), msg)
		return
	}
	http.Redirect(w, r, "/?tab="+url.QueryEscape(string(p.Session.Tab)), http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	p, err := s.orch.Dispatch(r.Context(), Event{Kind: Reset})
	if err != nil {
		status, msg := s.dispatchError(r, err)
		s.render(w, r, status, s.orch.Latest(), msg)
		return
	}
	http.Redirect(w, r, "/?tab="+url.QueryEscape(string(p.Session.Tab)), http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, p *Pass, errMsg string) {
	tab := p.Session.Tab
	data := pageData{
		Header:   buildHeader(p),
		Session:  p.Session,
		Options:  p.Options,
		Tabs:     Tabs,
		View:     buildView(p, tab, dataPreviewRows),
		Charts:   tabCharts[tab],
		Seq:      p.Seq,
		Error:    errMsg,
		Limited:  tab == TabData && len(p.Priced) > dataPreviewRows,
		RowLimit: dataPreviewRows,
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		loggerFrom(r.Context(), s.logger).Error("[dashboard] Template failed: %v", err)
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// formEvents converts the sidebar form into one event per widget.
func formEvents(form url.Values) ([]Event, error) {
	priceMin, err := formFloat(form, "price_min")
	if err != nil {
		return nil, err
	}
	priceMax, err := formFloat(form, "price_max")
	if err != nil {
		return nil, err
	}
	areaMin, err := formFloat(form, "area_min")
	if err != nil {
		return nil, err
	}
	areaMax, err := formFloat(form, "area_max")
	if err != nil {
		return nil, err
	}

	rooms := make([]int, 0, len(form["rooms"]))
	for _, raw := range form["rooms"] {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("rooms: not a number: %q", raw)
		}
		rooms = append(rooms, n)
	}

	events := []Event{
		{Kind: SetPriceRange, Min: priceMin, Max: priceMax},
		{Kind: SetAreaRange, Min: areaMin, Max: areaMax},
		{Kind: SetRooms, Rooms: rooms},
		{Kind: SetLocations, Values: form["locations"]},
		{Kind: SetSellerTypes, Values: form["sellers"]},
	}
	if tab := form.Get("tab"); tab != "" {
		events = append(events, Event{Kind: SetTab, Tab: tab})
	}
	return events, nil
}

func formFloat(form url.Values, key string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(form.Get(key)), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number: %q", key, form.Get(key))
	}
	return v, nil
}
