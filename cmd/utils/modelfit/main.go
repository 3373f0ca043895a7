// modelfit fits degradation models from session telemetry on disk and
// saves them to a pitwall store, for use before a server is running or
// from scripts.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"

	"justapengu.in/pitwall"
	"justapengu.in/pitwall/internal/strategy"
	"justapengu.in/pitwall/pkg/telemetry"
)

var (
	dataRoot  string
	track     string
	driver    string
	storePath string
	useFuel   bool
)

func init() {
	flag.StringVar(&dataRoot, "data", "./data", "telemetry data root")
	flag.StringVar(&track, "track", "", "track name")
	flag.StringVar(&driver, "driver", "", "driver name")
	flag.StringVar(&storePath, "store", "./pitwall.db", "store path")
	flag.BoolVar(&useFuel, "fuel", false, "fit a fuel regressor when the data allows it")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if track == "" || driver == "" {
		logger.Fatal("Both -track and -driver are required")
	}

	laps, sessions, err := telemetry.CollectPracticeData(dataRoot, track, driver, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not collect practice data")
	}

	if len(laps) == 0 {
		logger.Warnf("No practice data for %s at %s, sampling race laps instead", driver, track)

		laps, sessions, err = telemetry.CollectRaceSample(dataRoot, track, driver, logger)

		if err != nil {
			logger.WithError(err).Fatal("Could not collect race sample")
		}
	}

	if len(laps) == 0 {
		logger.Fatalf("No telemetry found for %s at %s", driver, track)
	}

	started := time.Now()

	models := strategy.FitDegradationModels(laps, strategy.FitOptions{UseFuel: useFuel}, logger)

	if len(models) == 0 {
		logger.Fatalf("No compound had enough usable laps to fit (%d laps read)", len(laps))
	}

	store, err := pitwall.NewBoltStore(storePath)

	if err != nil {
		logger.WithError(err).Fatal("Could not open store")
	}

	defer store.Close()

	saved := pitwall.NewSavedModel(track, driver, sessions, useFuel, models)

	if err := store.UpsertModel(saved); err != nil {
		logger.WithError(err).Fatal("Could not save models")
	}

	color.Green("Fitted %d compound models from %d laps in %s", len(models), len(laps), durafmt.Parse(time.Since(started)).LimitFirstN(2))
	color.Green("Saved as model %s", saved.ID)

	for _, compound := range models.Compounds(strategy.DefaultCompoundOrder) {
		model := models[compound]

		line := fmt.Sprintf("  %-14s base %7.3fs  +%.4fs/lap of age", compound, model.Intercept, model.AgeSlope)

		if model.HasFuel {
			line += fmt.Sprintf("  %+.4fs/unit of fuel", model.FuelSlope)
		}

		line += fmt.Sprintf("  (%d laps, ages 0-%d)", model.SampleCount, model.MaxObservedAge)

		color.White(line)
	}
}
