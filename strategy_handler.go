package pitwall

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"justapengu.in/pitwall/internal/strategy"
)

// StrategyHandler is the JSON API surface over the StrategyManager.
type StrategyHandler struct {
	manager *StrategyManager
	live    *LiveHub
	logger  *logrus.Logger

	config PlannerConfig
}

func NewStrategyHandler(manager *StrategyManager, live *LiveHub, config PlannerConfig, logger *logrus.Logger) *StrategyHandler {
	return &StrategyHandler{
		manager: manager,
		live:    live,
		logger:  logger,
		config:  config,
	}
}

func (sh *StrategyHandler) Router() http.Handler {
	router := chi.NewRouter()

	router.Route("/api", func(r chi.Router) {
		r.Post("/models/fit", sh.fitModels)
		r.Get("/models", sh.listModels)
		r.Get("/models/{id}", sh.getModel)
		r.Delete("/models/{id}", sh.deleteModel)

		r.Post("/plans", sh.buildPlans)
		r.Get("/plans", sh.listPlans)
		r.Get("/plans/{id}", sh.getPlan)

		r.Post("/recommendation", sh.recommend)
	})

	router.Handle("/metrics", promhttp.Handler())

	if sh.live != nil {
		router.Get("/live", sh.live.Serve)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sh.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

type fitModelsRequest struct {
	Track    string               `json:"track"`
	Driver   string               `json:"driver"`
	Sessions []string             `json:"sessions"`
	UseFuel  bool                 `json:"use_fuel"`
	Persist  bool                 `json:"persist"`
	Laps     []strategy.LapRecord `json:"laps"`
}

func (sh *StrategyHandler) fitModels(w http.ResponseWriter, r *http.Request) {
	var request fitModelsRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sh.writeError(w, http.StatusBadRequest, err)
		return
	}

	saved, err := sh.manager.FitModels(request.Track, request.Driver, request.Sessions, request.Laps, request.UseFuel, request.Persist)

	if err != nil {
		sh.logger.WithError(err).Errorf("Could not fit models")
		sh.writeError(w, http.StatusInternalServerError, err)

		return
	}

	sh.writeJSON(w, http.StatusOK, saved)
}

func (sh *StrategyHandler) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := sh.manager.SavedModels()

	if err != nil {
		sh.logger.WithError(err).Errorf("Could not list models")
		sh.writeError(w, http.StatusInternalServerError, err)

		return
	}

	sh.writeJSON(w, http.StatusOK, models)
}

func (sh *StrategyHandler) getModel(w http.ResponseWriter, r *http.Request) {
	model, err := sh.manager.SavedModel(chi.URLParam(r, "id"))

	if errors.Is(err, ErrModelNotFound) {
		sh.writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		sh.writeError(w, http.StatusInternalServerError, err)
		return
	}

	sh.writeJSON(w, http.StatusOK, model)
}

func (sh *StrategyHandler) deleteModel(w http.ResponseWriter, r *http.Request) {
	err := sh.manager.DeleteModel(chi.URLParam(r, "id"))

	if errors.Is(err, ErrModelNotFound) {
		sh.writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		sh.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// planConstraints carries a planning request's constraint fields.
// Pointers distinguish "not supplied, use the configured default" from an
// explicit zero: a request genuinely asking for max_stops 0 must not have
// it replaced.
type planConstraints struct {
	TotalLaps            int      `json:"total_laps"`
	MaxStops             *int     `json:"max_stops"`
	MinStintLength       *int     `json:"min_stint_length"`
	PitLoss              *float64 `json:"pit_loss"`
	RequiredCompounds    *int     `json:"required_compounds"`
	DiversityMinLaps     int      `json:"diversity_min_laps"`
	AllowShortFinalStint bool     `json:"allow_short_final_stint"`
	StartFuel            float64  `json:"start_fuel"`
	FuelConsumption      float64  `json:"fuel_consumption"`

	MaxStintLengths map[strategy.Compound]int `json:"max_stint_lengths"`

	TopK *int `json:"top_k"`
}

func (c PlannerConfig) constraints(request planConstraints) strategy.Constraints {
	constraints := strategy.Constraints{
		TotalLaps:            request.TotalLaps,
		MaxStops:             c.MaxStops,
		MinStintLength:       c.MinStintLength,
		PitLoss:              c.PitLoss,
		RequiredCompounds:    c.RequiredCompounds,
		DiversityMinLaps:     request.DiversityMinLaps,
		AllowShortFinalStint: request.AllowShortFinalStint,
		StartFuel:            request.StartFuel,
		FuelConsumption:      request.FuelConsumption,
		MaxStintLengths:      request.MaxStintLengths,
		TopK:                 c.TopK,
	}

	if request.MaxStops != nil {
		constraints.MaxStops = *request.MaxStops
	}

	if request.MinStintLength != nil {
		constraints.MinStintLength = *request.MinStintLength
	}

	if request.PitLoss != nil {
		constraints.PitLoss = *request.PitLoss
	}

	if request.RequiredCompounds != nil {
		constraints.RequiredCompounds = *request.RequiredCompounds
	}

	if request.TopK != nil {
		constraints.TopK = *request.TopK
	}

	return constraints
}

type buildPlansRequest struct {
	ModelID string `json:"model_id"`

	// Models may be supplied inline instead of by ID; such requests are
	// evaluated but not persisted.
	Models map[string][]float64 `json:"models"`

	Constraints   planConstraints     `json:"constraints"`
	CompoundOrder []strategy.Compound `json:"compound_order"`
}

func (sh *StrategyHandler) buildPlans(w http.ResponseWriter, r *http.Request) {
	var request buildPlansRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sh.writeError(w, http.StatusBadRequest, err)
		return
	}

	constraints := sh.config.constraints(request.Constraints)

	if request.ModelID != "" {
		savedPlan, err := sh.manager.BuildPlans(request.ModelID, constraints, request.CompoundOrder)

		if err != nil {
			sh.writePlanError(w, err)
			return
		}

		sh.writeJSON(w, http.StatusOK, savedPlan)

		return
	}

	if len(request.Models) == 0 {
		sh.writeError(w, http.StatusBadRequest, errors.New("pitwall: request needs a model_id or inline models"))
		return
	}

	plans, err := sh.manager.BuildPlansForModels(inlineModelSet(request.Models), constraints, request.CompoundOrder)

	if err != nil {
		sh.writePlanError(w, err)
		return
	}

	sh.writeJSON(w, http.StatusOK, plans)
}

func (sh *StrategyHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := sh.manager.SavedPlans()

	if err != nil {
		sh.writeError(w, http.StatusInternalServerError, err)
		return
	}

	sh.writeJSON(w, http.StatusOK, plans)
}

func (sh *StrategyHandler) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := sh.manager.SavedPlan(chi.URLParam(r, "id"))

	if errors.Is(err, ErrPlanNotFound) {
		sh.writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		sh.writeError(w, http.StatusInternalServerError, err)
		return
	}

	sh.writeJSON(w, http.StatusOK, plan)
}

type recommendationRequest struct {
	ModelID string               `json:"model_id"`
	Models  map[string][]float64 `json:"models"`

	Situation     strategy.RaceSituation `json:"situation"`
	Constraints   planConstraints        `json:"constraints"`
	CompoundOrder []strategy.Compound    `json:"compound_order"`
	Horizon       int                    `json:"horizon"`
}

func (sh *StrategyHandler) recommend(w http.ResponseWriter, r *http.Request) {
	var request recommendationRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sh.writeError(w, http.StatusBadRequest, err)
		return
	}

	constraints := sh.config.constraints(request.Constraints)

	var recommendation *strategy.Recommendation
	var err error

	if request.ModelID != "" {
		recommendation, err = sh.manager.LiveRecommendation(request.ModelID, request.Situation, constraints, request.CompoundOrder, request.Horizon)
	} else {
		recommendation, err = sh.manager.RecommendForModels(inlineModelSet(request.Models), request.Situation, constraints, request.CompoundOrder, request.Horizon)
	}

	if err != nil {
		sh.writePlanError(w, err)
		return
	}

	if recommendation == nil {
		// a valid terminal outcome, not an error
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sh.writeJSON(w, http.StatusOK, recommendation)
}

func inlineModelSet(models map[string][]float64) strategy.ModelSet {
	set := make(strategy.ModelSet)

	for compound, coefficients := range models {
		if model, ok := strategy.ModelFromCoefficients(coefficients); ok {
			set[strategy.Compound(compound)] = model
		}
	}

	return set
}

// writePlanError distinguishes caller mistakes from internal faults:
// invalid constraints are the caller's bug, a missing model is a 404,
// anything else is ours.
func (sh *StrategyHandler) writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrInvalidConstraints):
		sh.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrModelNotFound):
		sh.writeError(w, http.StatusNotFound, err)
	default:
		sh.logger.WithError(err).Errorf("Could not complete planning request")
		sh.writeError(w, http.StatusInternalServerError, err)
	}
}

func (sh *StrategyHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		sh.logger.WithError(err).Errorf("Could not encode JSON response")
	}
}

func (sh *StrategyHandler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf("%s", err),
	})
}
