package pitwall

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"justapengu.in/pitwall/internal/strategy"
)

var (
	modelFitsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pitwall_model_fits_total",
		Help: "Number of degradation model fits performed",
	})

	planRequestsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pitwall_plan_requests_total",
		Help: "Number of full-race plan enumerations performed",
	})

	planDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitwall_plan_duration_seconds",
		Help:    "Wall time of full-race plan enumerations",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	recommendationsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pitwall_recommendations_total",
		Help: "Number of live pit recommendations computed",
	})
)

// StrategyManager ties the fitting and planning core to the store. It is
// the only place the HTTP layer talks to.
type StrategyManager struct {
	store  Store
	config PlannerConfig
	logger *logrus.Logger
}

func NewStrategyManager(store Store, config PlannerConfig, logger *logrus.Logger) *StrategyManager {
	return &StrategyManager{
		store:  store,
		config: config,
		logger: logger,
	}
}

// FitModels fits degradation models from laps and, when persist is set,
// saves them under a fresh ID.
func (sm *StrategyManager) FitModels(track, driver string, sessions []string, laps []strategy.LapRecord, useFuel, persist bool) (*SavedModel, error) {
	modelFitsCounter.Inc()

	set := strategy.FitDegradationModels(laps, strategy.FitOptions{UseFuel: useFuel}, sm.logger)

	sm.logger.Infof("Fitted %d compound models from %d laps for %s at %s", len(set), len(laps), driver, track)

	saved := NewSavedModel(track, driver, sessions, useFuel, set)

	if persist {
		if err := sm.store.UpsertModel(saved); err != nil {
			return nil, err
		}
	}

	return saved, nil
}

// BuildPlans enumerates ranked strategies for a saved model under the
// given constraints and records the outcome.
func (sm *StrategyManager) BuildPlans(modelID string, constraints strategy.Constraints, compoundOrder []strategy.Compound) (*SavedPlan, error) {
	saved, err := sm.store.FindModelByID(modelID)

	if err != nil {
		return nil, err
	}

	plans, err := sm.enumerate(saved.ModelSet(), constraints, compoundOrder)

	if err != nil {
		return nil, err
	}

	savedPlan := &SavedPlan{
		ID:          uuid.New().String(),
		ModelID:     modelID,
		Constraints: constraints,
		Plans:       plans,
		CreatedAt:   time.Now(),
	}

	if err := sm.store.UpsertPlan(savedPlan); err != nil {
		return nil, err
	}

	return savedPlan, nil
}

// BuildPlansForModels is BuildPlans for callers supplying models inline
// rather than by ID. Nothing is persisted.
func (sm *StrategyManager) BuildPlansForModels(models strategy.ModelSet, constraints strategy.Constraints, compoundOrder []strategy.Compound) ([]*strategy.Plan, error) {
	return sm.enumerate(models, constraints, compoundOrder)
}

func (sm *StrategyManager) enumerate(models strategy.ModelSet, constraints strategy.Constraints, compoundOrder []strategy.Compound) ([]*strategy.Plan, error) {
	planRequestsCounter.Inc()

	started := time.Now()

	plans, err := strategy.EnumeratePlans(models, constraints, compoundOrder, sm.logger)

	if err != nil {
		return nil, err
	}

	planDurationHistogram.Observe(time.Since(started).Seconds())

	sm.logger.Debugf("Enumerated %d plans for a %d lap race in %s", len(plans), constraints.TotalLaps, time.Since(started))

	return plans, nil
}

// LiveRecommendation evaluates the next-stop question for a saved model.
func (sm *StrategyManager) LiveRecommendation(modelID string, situation strategy.RaceSituation, constraints strategy.Constraints, compoundOrder []strategy.Compound, horizon int) (*strategy.Recommendation, error) {
	saved, err := sm.store.FindModelByID(modelID)

	if err != nil {
		return nil, err
	}

	return sm.RecommendForModels(saved.ModelSet(), situation, constraints, compoundOrder, horizon)
}

func (sm *StrategyManager) RecommendForModels(models strategy.ModelSet, situation strategy.RaceSituation, constraints strategy.Constraints, compoundOrder []strategy.Compound, horizon int) (*strategy.Recommendation, error) {
	recommendationsCounter.Inc()

	if horizon <= 0 {
		horizon = sm.config.Horizon
	}

	return strategy.Recommend(situation, models, constraints, compoundOrder, horizon, sm.logger)
}

func (sm *StrategyManager) SavedModels() ([]*SavedModel, error) {
	return sm.store.ListModels()
}

func (sm *StrategyManager) SavedModel(id string) (*SavedModel, error) {
	return sm.store.FindModelByID(id)
}

func (sm *StrategyManager) DeleteModel(id string) error {
	return sm.store.DeleteModel(id)
}

func (sm *StrategyManager) SavedPlans() ([]*SavedPlan, error) {
	return sm.store.ListPlans()
}

func (sm *StrategyManager) SavedPlan(id string) (*SavedPlan, error) {
	return sm.store.FindPlanByID(id)
}
