package repository

import (
	"facecam/internal/model"
)

// ObservationRepository defines the relational operations on observations.
type ObservationRepository interface {
	// Lifecycle
	Initialize() error
	Clear() error
	Reset() error

	// Create operations
	Insert(obs *model.Observation) (int64, error)

	// Read operations
	Query(filter model.ObservationFilter) ([]model.Observation, error)
	Count(filter model.ObservationFilter) (int, error)
}
