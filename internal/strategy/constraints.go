package strategy

import "fmt"

const (
	DefaultTopK    = 3
	DefaultHorizon = 12
)

// defaultMaxStintLengths mirrors typical compound life when no telemetry is
// available to derive a limit from.
var defaultMaxStintLengths = map[Compound]int{
	CompoundSoft:   18,
	CompoundMedium: 28,
	CompoundHard:   40,
}

const fallbackMaxStintLength = 25

// Constraints is the immutable planning envelope supplied per request.
type Constraints struct {
	TotalLaps      int     `json:"total_laps" yaml:"total_laps"`
	MaxStops       int     `json:"max_stops" yaml:"max_stops"`
	MinStintLength int     `json:"min_stint_length" yaml:"min_stint_length"`
	PitLoss        float64 `json:"pit_loss" yaml:"pit_loss"`

	// RequiredCompounds is the number of distinct compounds a plan must
	// use. Zero or one disables the diversity rule.
	RequiredCompounds int `json:"required_compounds" yaml:"required_compounds"`

	// DiversityMinLaps exempts races at or below this length from the
	// diversity rule. Zero means the rule always applies.
	DiversityMinLaps int `json:"diversity_min_laps" yaml:"diversity_min_laps"`

	// AllowShortFinalStint permits a final stint shorter than
	// MinStintLength when it exactly completes the race.
	AllowShortFinalStint bool `json:"allow_short_final_stint" yaml:"allow_short_final_stint"`

	// StartFuel and FuelConsumption enable fuel feasibility checks when
	// FuelConsumption is positive. Stops do not refuel.
	StartFuel       float64 `json:"start_fuel" yaml:"start_fuel"`
	FuelConsumption float64 `json:"fuel_consumption" yaml:"fuel_consumption"`

	// MaxStintLengths optionally caps stint length per compound. A
	// compound missing from the map is uncapped.
	MaxStintLengths map[Compound]int `json:"max_stint_lengths,omitempty" yaml:"max_stint_lengths,omitempty"`

	// TopK is the number of ranked plans to return. Zero means
	// DefaultTopK.
	TopK int `json:"top_k" yaml:"top_k"`
}

// Validate reports caller programming errors. Infeasibility is not an
// error; an impossible-but-well-formed request simply yields no plans.
func (c Constraints) Validate() error {
	if c.TotalLaps <= 0 {
		return fmt.Errorf("%w: total laps must be positive, got %d", ErrInvalidConstraints, c.TotalLaps)
	}

	if c.MinStintLength < 1 {
		return fmt.Errorf("%w: minimum stint length must be at least 1, got %d", ErrInvalidConstraints, c.MinStintLength)
	}

	if c.MinStintLength > c.TotalLaps {
		return fmt.Errorf("%w: minimum stint length (%d) exceeds total laps (%d)", ErrInvalidConstraints, c.MinStintLength, c.TotalLaps)
	}

	if c.MaxStops < 0 {
		return fmt.Errorf("%w: maximum stops must not be negative, got %d", ErrInvalidConstraints, c.MaxStops)
	}

	if c.PitLoss < 0 {
		return fmt.Errorf("%w: pit loss must not be negative, got %.2f", ErrInvalidConstraints, c.PitLoss)
	}

	if c.RequiredCompounds < 0 {
		return fmt.Errorf("%w: required compounds must not be negative, got %d", ErrInvalidConstraints, c.RequiredCompounds)
	}

	if c.FuelConsumption < 0 {
		return fmt.Errorf("%w: fuel consumption must not be negative, got %.3f", ErrInvalidConstraints, c.FuelConsumption)
	}

	if c.StartFuel < 0 {
		return fmt.Errorf("%w: start fuel must not be negative, got %.3f", ErrInvalidConstraints, c.StartFuel)
	}

	if c.FuelConsumption > 0 && c.StartFuel == 0 {
		return fmt.Errorf("%w: fuel consumption set without a starting fuel load", ErrInvalidConstraints)
	}

	if c.TopK < 0 {
		return fmt.Errorf("%w: top k must not be negative, got %d", ErrInvalidConstraints, c.TopK)
	}

	return nil
}

func (c Constraints) fuelLimited() bool {
	return c.FuelConsumption > 0
}

func (c Constraints) topK() int {
	if c.TopK > 0 {
		return c.TopK
	}

	return DefaultTopK
}

func (c Constraints) diversityRequired() int {
	if c.RequiredCompounds <= 1 {
		return 1
	}

	if c.DiversityMinLaps > 0 && c.TotalLaps <= c.DiversityMinLaps {
		return 1
	}

	return c.RequiredCompounds
}

func (c Constraints) maxStintLength(compound Compound, remaining int) int {
	max := remaining

	if c.MaxStintLengths != nil {
		if limit, ok := c.MaxStintLengths[compound]; ok && limit < max {
			max = limit
		}
	}

	return max
}

// MaxStintLengthsFromSamples derives per-compound stint length caps from
// observed tyre ages: the longest age seen plus two laps, or a conservative
// default for compounds with no samples.
func MaxStintLengthsFromSamples(samples []LapRecord, compounds []Compound) map[Compound]int {
	maxAges := make(map[Compound]int)

	for _, sample := range samples {
		if maxAge, ok := maxAges[sample.Compound]; !ok || sample.TyreAge > maxAge {
			maxAges[sample.Compound] = sample.TyreAge
		}
	}

	out := make(map[Compound]int)

	for _, compound := range compounds {
		if maxAge, ok := maxAges[compound]; ok {
			out[compound] = maxAge + 2
			continue
		}

		if fallback, ok := defaultMaxStintLengths[compound]; ok {
			out[compound] = fallback
		} else {
			out[compound] = fallbackMaxStintLength
		}
	}

	return out
}
