package storage

import (
	"fmt"

	"facecam/internal/model"
	"facecam/internal/repository"
)

// Observation converts a log entry back into an observation.
func (e LogEntry) Observation() (model.Observation, error) {
	ts, err := model.ParseTimestamp(e.Timestamp)
	if err != nil {
		return model.Observation{}, fmt.Errorf("invalid timestamp %q: %w", e.Timestamp, err)
	}
	obs := model.NewObservation(ts, nil, e.Gender, e.Race)
	obs.Age = e.Age
	return obs, nil
}

// ImportStats counts what ImportLog did with each entry.
type ImportStats struct {
	Imported int
	Skipped  int
}

// ImportLog inserts every entry of a JSON log into repo. Entries with an
// unreadable timestamp are skipped; an insert failure stops the import.
func ImportLog(log *JSONLog, repo repository.ObservationRepository) (ImportStats, error) {
	var stats ImportStats

	entries, err := log.ReadAll()
	if err != nil {
		return stats, fmt.Errorf("failed to read %s: %w", log.Path(), err)
	}

	for _, entry := range entries {
		obs, err := entry.Observation()
		if err != nil {
			stats.Skipped++
			continue
		}
		if _, err := repo.Insert(&obs); err != nil {
			return stats, fmt.Errorf("failed to insert entry from %s: %w", log.Path(), err)
		}
		stats.Imported++
	}
	return stats, nil
}
