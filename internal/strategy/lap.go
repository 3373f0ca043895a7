package strategy

type Compound string

const (
	CompoundSoft         Compound = "Soft"
	CompoundMedium       Compound = "Medium"
	CompoundHard         Compound = "Hard"
	CompoundIntermediate Compound = "Intermediate"
	CompoundWet          Compound = "Wet"
)

// DefaultCompoundOrder is the compound ordering used for deterministic
// tie-breaks when the caller does not supply one of their own.
var DefaultCompoundOrder = []Compound{
	CompoundSoft,
	CompoundMedium,
	CompoundHard,
	CompoundIntermediate,
	CompoundWet,
}

// LapRecord is one completed lap as produced by the telemetry collaborator.
// Lap times are always in seconds. Fuel is nil when the session export did
// not carry a fuel column.
type LapRecord struct {
	Lap      int      `json:"lap"`
	Session  string   `json:"session,omitempty"`
	Compound Compound `json:"compound"`
	TyreAge  int      `json:"tyre_age"`
	LapTime  float64  `json:"lap_time"`
	Fuel     *float64 `json:"fuel,omitempty"`
}
