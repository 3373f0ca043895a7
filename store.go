package pitwall

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"justapengu.in/pitwall/internal/strategy"
)

var (
	ErrModelNotFound = errors.New("pitwall: model not found")
	ErrPlanNotFound  = errors.New("pitwall: plan not found")
)

// SavedModel is the persisted form of a fitted model set: metadata about
// where the data came from plus one coefficient list per compound, in the
// stable [intercept, age_slope(, fuel_slope)] order.
type SavedModel struct {
	ID       string    `json:"id"`
	Track    string    `json:"track"`
	Driver   string    `json:"driver"`
	Sessions []string  `json:"sessions"`
	UsedFuel bool      `json:"used_fuel"`
	SavedAt  time.Time `json:"saved_at"`

	Models map[string][]float64 `json:"models"`
}

func NewSavedModel(track, driver string, sessions []string, usedFuel bool, set strategy.ModelSet) *SavedModel {
	saved := &SavedModel{
		ID:       uuid.New().String(),
		Track:    track,
		Driver:   driver,
		Sessions: sessions,
		UsedFuel: usedFuel,
		SavedAt:  time.Now(),
		Models:   make(map[string][]float64),
	}

	for compound, model := range set {
		saved.Models[string(compound)] = model.Coefficients()
	}

	return saved
}

// ModelSet rebuilds the in-memory model set. Coefficient lists of an
// unexpected length are skipped, which keeps a corrupted entry from
// poisoning a whole planning request.
func (m *SavedModel) ModelSet() strategy.ModelSet {
	set := make(strategy.ModelSet)

	for compound, coefficients := range m.Models {
		if model, ok := strategy.ModelFromCoefficients(coefficients); ok {
			set[strategy.Compound(compound)] = model
		}
	}

	return set
}

// SavedPlan records the outcome of one planning request against a saved
// model, so a strategy agreed before the race can be pulled up during it.
type SavedPlan struct {
	ID          string               `json:"id"`
	ModelID     string               `json:"model_id"`
	Constraints strategy.Constraints `json:"constraints"`
	Plans       []*strategy.Plan     `json:"plans"`
	CreatedAt   time.Time            `json:"created_at"`
}

type Store interface {
	UpsertModel(model *SavedModel) error
	FindModelByID(id string) (*SavedModel, error)
	ListModels() ([]*SavedModel, error)
	DeleteModel(id string) error

	UpsertPlan(plan *SavedPlan) error
	FindPlanByID(id string) (*SavedPlan, error)
	ListPlans() ([]*SavedPlan, error)

	Close() error
}

var (
	modelsBucketName = []byte("models")
	plansBucketName  = []byte("plans")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second * 5})

	if err != nil {
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) UpsertModel(model *SavedModel) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(modelsBucketName)

		if err != nil {
			return err
		}

		encoded, err := json.Marshal(model)

		if err != nil {
			return err
		}

		return bucket.Put([]byte(model.ID), encoded)
	})
}

func (s *BoltStore) FindModelByID(id string) (*SavedModel, error) {
	var model *SavedModel

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(modelsBucketName)

		if bucket == nil {
			return ErrModelNotFound
		}

		encoded := bucket.Get([]byte(id))

		if encoded == nil {
			return ErrModelNotFound
		}

		return json.Unmarshal(encoded, &model)
	})

	if err != nil {
		return nil, err
	}

	return model, nil
}

func (s *BoltStore) ListModels() ([]*SavedModel, error) {
	models := make([]*SavedModel, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(modelsBucketName)

		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(_, encoded []byte) error {
			var model *SavedModel

			if err := json.Unmarshal(encoded, &model); err != nil {
				return err
			}

			models = append(models, model)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].SavedAt.After(models[j].SavedAt)
	})

	return models, nil
}

func (s *BoltStore) DeleteModel(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(modelsBucketName)

		if bucket == nil {
			return ErrModelNotFound
		}

		if bucket.Get([]byte(id)) == nil {
			return ErrModelNotFound
		}

		return bucket.Delete([]byte(id))
	})
}

func (s *BoltStore) UpsertPlan(plan *SavedPlan) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(plansBucketName)

		if err != nil {
			return err
		}

		encoded, err := json.Marshal(plan)

		if err != nil {
			return err
		}

		return bucket.Put([]byte(plan.ID), encoded)
	})
}

func (s *BoltStore) FindPlanByID(id string) (*SavedPlan, error) {
	var plan *SavedPlan

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(plansBucketName)

		if bucket == nil {
			return ErrPlanNotFound
		}

		encoded := bucket.Get([]byte(id))

		if encoded == nil {
			return ErrPlanNotFound
		}

		return json.Unmarshal(encoded, &plan)
	})

	if err != nil {
		return nil, err
	}

	return plan, nil
}

func (s *BoltStore) ListPlans() ([]*SavedPlan, error) {
	plans := make([]*SavedPlan, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(plansBucketName)

		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(_, encoded []byte) error {
			var plan *SavedPlan

			if err := json.Unmarshal(encoded, &plan); err != nil {
				return err
			}

			plans = append(plans, plan)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})

	return plans, nil
}
