package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/allocation"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/portfolio"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// RunStore persists run reports
type RunStore interface {
	SaveRun(ctx context.Context, run *portfolio.RunResult, specHash string) error
	GetRun(ctx context.Context, runID string) (*portfolio.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]portfolio.RunSummary, error)
}

// Defaults are the environment-level settings a request can override
type Defaults struct {
	Run       portfolio.Config
	Solver    frontier.Config
	Collector marketdata.Config
	Limits    SimulationLimits
}

// SimulationLimits caps the Monte Carlo work one request may ask for.
// A zero field means no cap.
type SimulationLimits struct {
	MaxIterations  int
	MaxTimeHorizon int
}

// check reports the first field over its cap; prefix is the field path
func (l SimulationLimits) check(prefix string, iterations, horizon int) error {
	if l.MaxIterations > 0 && iterations > l.MaxIterations {
		return strategyconfig.ValidationError{Field: prefix + "iterations", Message: fmt.Sprintf("must be <= %d", l.MaxIterations)}
	}
	if l.MaxTimeHorizon > 0 && horizon > l.MaxTimeHorizon {
		return strategyconfig.ValidationError{Field: prefix + "time_horizon", Message: fmt.Sprintf("must be <= %d", l.MaxTimeHorizon)}
	}
	return nil
}

// PortfolioHandler serves optimisation, simulation and frontier requests
// ⭐ SSOT: portfolio API handlers live here only
type PortfolioHandler struct {
	collector *marketdata.Collector
	allocator *allocation.Allocator
	projector *risk.Projector
	runs      RunStore
	defaults  Defaults
	logger    *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler; runs may be nil
func NewPortfolioHandler(
	collector *marketdata.Collector,
	projector *risk.Projector,
	runs RunStore,
	defaults Defaults,
	log *logger.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		collector: collector,
		allocator: allocation.NewAllocator(log),
		projector: projector,
		runs:      runs,
		defaults:  defaults,
		logger:    log.WithField("module", "api"),
	}
}

// OptimizeRequest is the body of POST /api/v1/optimize
type OptimizeRequest struct {
	Portfolio  strategyconfig.Portfolio  `json:"portfolio"`
	Optimizer  strategyconfig.Optimizer  `json:"optimizer"`
	Simulation strategyconfig.Simulation `json:"simulation"`
	Save       bool                      `json:"save"`
}

// FrontierRequest is the body of POST /api/v1/frontier
type FrontierRequest struct {
	Portfolio strategyconfig.Portfolio `json:"portfolio"`
	Optimizer strategyconfig.Optimizer `json:"optimizer"`
	Points    int                      `json:"points"`
}

// FrontierResponse lists frontier points from lowest to highest return
type FrontierResponse struct {
	Assets []string                  `json:"assets"`
	Points []contracts.FrontierPoint `json:"points"`
}

const (
	defaultFrontierPoints = 20
	maxFrontierPoints     = 200
)

// Optimize runs S0 → S4 for the submitted portfolio
// POST /api/v1/optimize
func (h *PortfolioHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg := &strategyconfig.Config{
		Meta:       strategyconfig.Meta{PortfolioID: "api"},
		Portfolio:  req.Portfolio,
		Optimizer:  req.Optimizer,
		Simulation: req.Simulation,
	}
	spec, ok := h.spec(w, cfg)
	if !ok {
		return
	}
	if err := h.defaults.Limits.check("simulation.", req.Simulation.Iterations, req.Simulation.TimeHorizon); err != nil {
		respondValidation(w, err)
		return
	}

	series, ok := h.fetch(r.Context(), w, spec)
	if !ok {
		return
	}

	constructor := h.constructor(cfg)
	run, err := constructor.Construct(r.Context(), spec, series)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", run.RunID).Warn("Portfolio run failed")
		respondJSON(w, statusFor(err), ErrorResponse{Error: err.Error(), CompletedStages: run.CompletedStages})
		return
	}

	if req.Save && h.runs != nil {
		hash, err := strategyconfig.Hash(cfg)
		if err == nil {
			err = h.runs.SaveRun(r.Context(), run, hash)
		}
		if err != nil {
			h.logger.WithError(err).WithField("run_id", run.RunID).Error("Failed to save run")
			respondError(w, http.StatusInternalServerError, "run completed but could not be saved")
			return
		}
	}

	run.Simulation.Paths = nil
	respondJSON(w, http.StatusOK, run)
}

// Simulate runs S4 on caller-supplied parameters
// POST /api/v1/simulate
func (h *PortfolioHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var params contracts.SimulationParams
	if err := decodeJSON(w, r, &params); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.defaults.Limits.check("", params.Iterations, params.TimeHorizon); err != nil {
		respondValidation(w, err)
		return
	}
	params.KeepPaths = false

	sim, err := h.projector.Project(r.Context(), params)
	if err != nil {
		h.logger.WithError(err).Error("Simulation failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sim)
}

// Frontier traces the efficient frontier for the submitted assets
// POST /api/v1/frontier
func (h *PortfolioHandler) Frontier(w http.ResponseWriter, r *http.Request) {
	var req FrontierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	points := req.Points
	if points == 0 {
		points = defaultFrontierPoints
	}
	if points < 2 || points > maxFrontierPoints {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "points must be in [2, 200]", Field: "points"})
		return
	}

	cfg := &strategyconfig.Config{
		Meta:      strategyconfig.Meta{PortfolioID: "api"},
		Portfolio: req.Portfolio,
		Optimizer: req.Optimizer,
	}
	spec, ok := h.spec(w, cfg)
	if !ok {
		return
	}

	series, ok := h.fetch(r.Context(), w, spec)
	if !ok {
		return
	}

	frontierPoints, err := h.constructor(cfg).Frontier(r.Context(), spec, series, points)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, FrontierResponse{Assets: spec.Assets(), Points: frontierPoints})
}

// GetRun returns a saved run
// GET /api/v1/runs/{id}
func (h *PortfolioHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "run storage is not configured")
		return
	}

	run, err := h.runs.GetRun(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, portfolio.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to retrieve run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// ListRuns returns the most recent saved runs
// GET /api/v1/runs?limit=20
func (h *PortfolioHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"runs": []portfolio.RunSummary{}})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be in [1, 500]", Field: "limit"})
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// spec validates the request and writes a 400 on failure
func (h *PortfolioHandler) spec(w http.ResponseWriter, cfg *strategyconfig.Config) (contracts.PortfolioSpec, bool) {
	if err := strategyconfig.Validate(cfg); err != nil {
		respondValidation(w, err)
		return contracts.PortfolioSpec{}, false
	}

	spec, err := cfg.Spec()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return contracts.PortfolioSpec{}, false
	}
	return spec, true
}

// fetch loads every asset's history and writes a 502 when the source fails
func (h *PortfolioHandler) fetch(ctx context.Context, w http.ResponseWriter, spec contracts.PortfolioSpec) ([]contracts.PriceSeries, bool) {
	series, err := h.collector.FetchSpecSeries(ctx, spec, h.defaults.Collector)
	if err != nil {
		h.logger.WithError(err).Warn("Price fetch failed")
		respondError(w, http.StatusBadGateway, "price data unavailable: "+err.Error())
		return nil, false
	}
	return series, true
}

// constructor builds a per-request constructor; the solver carries the
// request's risk-free rate so it cannot be shared
func (h *PortfolioHandler) constructor(cfg *strategyconfig.Config) *portfolio.Constructor {
	return portfolio.NewConstructor(
		cfg.RunConfig(h.defaults.Run),
		frontier.NewSolver(cfg.SolverConfig(h.defaults.Solver), h.logger),
		h.allocator,
		h.projector,
		h.logger,
	)
}
