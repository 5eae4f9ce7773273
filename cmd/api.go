package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/pricing"
	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

type apiServer struct {
	store store.Store
	cfg   *config.Config
}

// newAPIHandler builds the HTTP surface over a store. Report endpoints read
// the full lead set; the store owns filtering for lead listings.
func newAPIHandler(s store.Store, cfg *config.Config) http.Handler {
	api := &apiServer{store: s, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", api.handleHealth)

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", api.handleCreateLead)
		r.Get("/", api.handleListLeads)
		r.Get("/{id}", api.handleGetLead)
		r.Patch("/{id}", api.handleUpdateLead)
		r.Post("/{id}/activities", api.handleAppendActivity)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/pipeline", api.handlePipelineReport)
		r.Get("/risk", api.handleRiskReport)
		r.Get("/forecast", api.handleForecastReport)
		r.Get("/scenario", api.handleScenarioReport)
		r.Get("/territory", api.handleTerritoryReport)
	})

	r.Post("/pricing/quote", api.handlePricingQuote)

	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiServer) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var lead model.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode lead"))
		return
	}

	created, err := a.store.Create(r.Context(), &lead)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *apiServer) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	leads, err := a.store.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(leads),
		"leads": leads,
	})
}

func (a *apiServer) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (a *apiServer) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var upd model.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode update"))
		return
	}

	lead, err := a.store.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// activityRequest mirrors model.ActivityEntry with an optional probability so
// an absent field can be told apart from an explicit zero.
type activityRequest struct {
	Timestamp        *time.Time         `json:"timestamp,omitempty"`
	Type             model.ActivityType `json:"type"`
	Notes            string             `json:"notes,omitempty"`
	StageAfter       model.Stage        `json:"stage_after,omitempty"`
	ProbabilityAfter *int               `json:"probability_after,omitempty"`
}

func (a *apiServer) handleAppendActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode activity"))
		return
	}

	entry := model.ActivityEntry{
		Type:             req.Type,
		Notes:            req.Notes,
		StageAfter:       req.StageAfter,
		ProbabilityAfter: -1,
	}
	if req.Timestamp != nil {
		entry.Timestamp = *req.Timestamp
	}
	if req.ProbabilityAfter != nil {
		entry.ProbabilityAfter = *req.ProbabilityAfter
	}

	lead, err := a.store.AppendActivity(r.Context(), chi.URLParam(r, "id"), entry)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (a *apiServer) handlePipelineReport(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	by := r.URL.Query().Get("group_by")
	if by == "" {
		by = "stage"
	}
	groupBy, err := report.ParseGroupBy(by)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	buckets, err := report.Aggregate(leads, groupBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": report.Summarize(leads),
		"buckets": buckets,
	})
}

func (a *apiServer) handleRiskReport(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	th := report.RiskThresholds{
		StaleDays:         a.cfg.Risk.StaleDays,
		LowProbability:    a.cfg.Risk.LowProbability,
		LargeDealMultiple: a.cfg.Risk.LargeDealMultiple,
	}
	writeJSON(w, http.StatusOK, report.EvaluateRisk(leads, th, time.Now().UTC()))
}

func (a *apiServer) handleForecastReport(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	horizon := a.cfg.Forecast.HorizonDays
	if v := r.URL.Query().Get("horizon"); v != "" {
		horizon, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: parse horizon"))
			return
		}
	}

	now := time.Now().UTC()
	f, err := report.ComputeForecast(leads, horizon, now, forecastFactors(a.cfg.Forecast))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	months, err := report.ForecastByMonth(leads, horizon, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"forecast": f,
		"months":   months,
	})
}

func (a *apiServer) handleScenarioReport(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	convAdj, err := queryFloat(r, "conversion_adj")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sizeAdj, err := queryFloat(r, "deal_size_adj")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, report.Scenario(leads, convAdj, sizeAdj))
}

func (a *apiServer) handleTerritoryReport(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.ListFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	targets, err := config.LoadExpansionTargets(a.cfg.Territory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overview":    report.TerritoryOverview(leads),
		"performance": report.TerritoryPerformance(leads),
		"expansion":   report.ExpansionTracking(leads, targets),
	})
}

func (a *apiServer) handlePricingQuote(w http.ResponseWriter, r *http.Request) {
	var in pricing.QuoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode quote input"))
		return
	}

	quote, err := pricing.Compute(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func filterFromQuery(r *http.Request) (store.ListFilter, error) {
	q := r.URL.Query()
	var f store.ListFilter
	var err error

	if v := q.Get("territory"); v != "" {
		if f.Territory, err = model.ParseTerritory(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("stage"); v != "" {
		if f.Stage, err = model.ParseStage(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("category"); v != "" {
		if f.Category, err = model.ParseCategory(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, eris.Wrap(err, "api: parse from date")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, eris.Wrap(err, "api: parse to date")
		}
		f.To = &t
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, eris.Wrap(err, "api: parse limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return f, eris.Wrap(err, "api: parse offset")
		}
	}
	return f, nil
}

func queryFloat(r *http.Request, key string) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "api: parse %s", key)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case eris.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
