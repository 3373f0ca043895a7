package telemetry

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"justapengu.in/pitwall/internal/strategy"
)

// practiceSessionNames are the session directory names treated as practice
// running, the only data worth fitting degradation models from under
// normal circumstances.
var practiceSessionNames = map[string]bool{
	"Practice 1": true,
	"Practice 2": true,
	"Practice 3": true,
	"Practice":   true,
	"FP1":        true,
	"FP2":        true,
	"FP3":        true,
}

const raceSampleMaxLaps = 12

// CollectPracticeData walks dataRoot/<track>/<session>/<driver>/*.csv for
// every practice session and returns the combined lap summary. A missing
// track directory is not an error, just no laps.
func CollectPracticeData(dataRoot, track, driver string, logger strategy.Logger) ([]strategy.LapRecord, []string, error) {
	trackDir := filepath.Join(dataRoot, track)

	sessions, err := sessionDirectories(trackDir, isPracticeSession)

	if err != nil {
		return nil, nil, err
	}

	var laps []strategy.LapRecord
	var usedSessions []string

	for _, session := range sessions {
		sessionLaps := collectSessionLaps(filepath.Join(trackDir, session), session, driver, logger)

		if len(sessionLaps) > 0 {
			laps = append(laps, sessionLaps...)
			usedSessions = append(usedSessions, session)
		}
	}

	return laps, usedSessions, nil
}

// CollectRaceSample is the fallback when no practice data exists: the
// opening laps of a race give a rough degradation estimate, which beats
// having no model at all.
func CollectRaceSample(dataRoot, track, driver string, logger strategy.Logger) ([]strategy.LapRecord, []string, error) {
	raceDir := filepath.Join(dataRoot, track, "Race")

	if _, err := os.Stat(raceDir); os.IsNotExist(err) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}

	laps := collectSessionLaps(raceDir, "RaceSample", driver, logger)

	sort.Slice(laps, func(i, j int) bool {
		return laps[i].Lap < laps[j].Lap
	})

	if len(laps) > raceSampleMaxLaps {
		laps = laps[:raceSampleMaxLaps]
	}

	if len(laps) == 0 {
		return nil, nil, nil
	}

	return laps, []string{"RaceSample"}, nil
}

func collectSessionLaps(sessionDir, sessionName, driver string, logger strategy.Logger) []strategy.LapRecord {
	var laps []strategy.LapRecord

	err := filepath.Walk(sessionDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		if filepath.Base(filepath.Dir(path)) != driver {
			return nil
		}

		rows, err := LoadSessionCSV(path)

		if err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Could not read session csv: %s, skipping", path)
			}

			return nil
		}

		laps = append(laps, BuildLapSummary(rows, sessionName)...)

		return nil
	})

	if err != nil && logger != nil {
		logger.WithError(err).Errorf("Could not walk session directory: %s", sessionDir)
	}

	return laps
}

func sessionDirectories(trackDir string, match func(string) bool) ([]string, error) {
	entries, err := ioutil.ReadDir(trackDir)

	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var sessions []string

	for _, entry := range entries {
		if entry.IsDir() && match(entry.Name()) {
			sessions = append(sessions, entry.Name())
		}
	}

	sort.Strings(sessions)

	return sessions, nil
}

func isPracticeSession(name string) bool {
	return practiceSessionNames[name] || strings.HasPrefix(name, "Practice")
}
