package strategy

import (
	"math"
)

const (
	// DefaultMinFitSamples is the minimum number of laps a compound needs
	// before a model is fitted for it. Never allowed below 2.
	DefaultMinFitSamples = 5

	// minFuelSpread is the minimum standard deviation the fuel column must
	// show before it is worth using as a regressor.
	minFuelSpread = 0.5

	outlierZScore = 3.0

	pivotEpsilon = 1e-9
)

type FitOptions struct {
	// UseFuel requests a fuel regressor. It is only honoured when enough
	// samples carry fuel values and those values actually vary.
	UseFuel bool

	// MinSamples overrides DefaultMinFitSamples when at least 2.
	MinSamples int
}

func (o FitOptions) minSamples() int {
	if o.MinSamples >= 2 {
		return o.MinSamples
	}

	return DefaultMinFitSamples
}

// FitDegradationModels fits one linear degradation model per compound from
// the given laps. Compounds with too few samples, no age variation or a
// rank-deficient fit are omitted from the result rather than reported as
// errors; planning code treats absence as "do not use this compound".
func FitDegradationModels(samples []LapRecord, opts FitOptions, logger Logger) ModelSet {
	logger = ensureLogger(logger)

	models := make(ModelSet)

	if len(samples) == 0 {
		return models
	}

	fitWithFuel := opts.UseFuel && fuelUsable(samples, opts.minSamples())

	byCompound := make(map[Compound][]LapRecord)

	for _, sample := range samples {
		if sample.LapTime <= 0 {
			continue
		}

		byCompound[sample.Compound] = append(byCompound[sample.Compound], sample)
	}

	for compound, laps := range byCompound {
		if fitWithFuel {
			laps = lapsWithFuel(laps)
		}

		if len(laps) < opts.minSamples() {
			logger.Debugf("Compound %s has %d usable laps (minimum %d), skipping fit", compound, len(laps), opts.minSamples())
			continue
		}

		laps = trimLapTimeOutliers(laps)

		if len(laps) < opts.minSamples() {
			logger.Debugf("Compound %s has too few laps after outlier trim, skipping fit", compound)
			continue
		}

		if distinctAges(laps) < 2 {
			logger.Debugf("Compound %s has no tyre age variation, skipping fit", compound)
			continue
		}

		model, ok := fitCompound(laps, fitWithFuel)

		if !ok {
			logger.Debugf("Compound %s produced a rank-deficient fit, skipping", compound)
			continue
		}

		models[compound] = model
	}

	return models
}

func fitCompound(laps []LapRecord, withFuel bool) (DegradationModel, bool) {
	columns := 2

	if withFuel {
		columns = 3
	}

	rows := make([][]float64, 0, len(laps))
	observed := make([]float64, 0, len(laps))
	maxAge := 0

	for _, lap := range laps {
		row := make([]float64, columns)
		row[0] = 1
		row[1] = float64(lap.TyreAge)

		if withFuel {
			row[2] = *lap.Fuel
		}

		rows = append(rows, row)
		observed = append(observed, lap.LapTime)

		if lap.TyreAge > maxAge {
			maxAge = lap.TyreAge
		}
	}

	coefficients, ok := solveLeastSquares(rows, observed)

	if !ok {
		return DegradationModel{}, false
	}

	model := DegradationModel{
		Intercept:      coefficients[0],
		AgeSlope:       coefficients[1],
		SampleCount:    len(laps),
		MaxObservedAge: maxAge,
	}

	if withFuel {
		model.FuelSlope = coefficients[2]
		model.HasFuel = true
	}

	return model, true
}

// solveLeastSquares solves min ||A*x - y|| through the normal equations.
// The design matrix has at most three columns so the system is accumulated
// into a fixed-size table and solved by Gaussian elimination with partial
// pivoting. A pivot collapsing towards zero means the matrix is
// rank-deficient and the fit is rejected.
func solveLeastSquares(rows [][]float64, observed []float64) ([]float64, bool) {
	if len(rows) == 0 {
		return nil, false
	}

	n := len(rows[0])

	// augmented [A'A | A'y]
	system := make([][]float64, n)

	for i := range system {
		system[i] = make([]float64, n+1)
	}

	for r, row := range rows {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				system[i][j] += row[i] * row[j]
			}

			system[i][n] += row[i] * observed[r]
		}
	}

	scale := 0.0

	for i := 0; i < n; i++ {
		if math.Abs(system[i][i]) > scale {
			scale = math.Abs(system[i][i])
		}
	}

	if scale == 0 {
		return nil, false
	}

	for col := 0; col < n; col++ {
		pivot := col

		for row := col + 1; row < n; row++ {
			if math.Abs(system[row][col]) > math.Abs(system[pivot][col]) {
				pivot = row
			}
		}

		if math.Abs(system[pivot][col]) < pivotEpsilon*scale {
			return nil, false
		}

		system[col], system[pivot] = system[pivot], system[col]

		for row := col + 1; row < n; row++ {
			factor := system[row][col] / system[col][col]

			for j := col; j <= n; j++ {
				system[row][j] -= factor * system[col][j]
			}
		}
	}

	coefficients := make([]float64, n)

	for i := n - 1; i >= 0; i-- {
		sum := system[i][n]

		for j := i + 1; j < n; j++ {
			sum -= system[i][j] * coefficients[j]
		}

		coefficients[i] = sum / system[i][i]
	}

	return coefficients, true
}

func fuelUsable(samples []LapRecord, minSamples int) bool {
	var values []float64

	for _, sample := range samples {
		if sample.Fuel != nil {
			values = append(values, *sample.Fuel)
		}
	}

	if len(values) < minSamples {
		return false
	}

	return stdDev(values) > minFuelSpread
}

func lapsWithFuel(laps []LapRecord) []LapRecord {
	out := make([]LapRecord, 0, len(laps))

	for _, lap := range laps {
		if lap.Fuel != nil {
			out = append(out, lap)
		}
	}

	return out
}

// trimLapTimeOutliers drops laps more than three standard deviations from
// the compound's mean lap time. Traffic and mistakes would otherwise drag
// the fitted slope around.
func trimLapTimeOutliers(laps []LapRecord) []LapRecord {
	times := make([]float64, len(laps))

	for i, lap := range laps {
		times[i] = lap.LapTime
	}

	deviation := stdDev(times)

	if deviation == 0 {
		return laps
	}

	mean := meanOf(times)

	out := make([]LapRecord, 0, len(laps))

	for _, lap := range laps {
		if math.Abs(lap.LapTime-mean)/deviation < outlierZScore {
			out = append(out, lap)
		}
	}

	return out
}

func distinctAges(laps []LapRecord) int {
	ages := make(map[int]bool)

	for _, lap := range laps {
		ages[lap.TyreAge] = true
	}

	return len(ages)
}

func meanOf(values []float64) float64 {
	sum := 0.0

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := meanOf(values)
	sum := 0.0

	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}

	return math.Sqrt(sum / float64(len(values)))
}
