package storage

import (
	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/repository"
)

// RecordResult reports each backend separately. The backends are independent:
// a failure in one is never rolled back in the other.
type RecordResult struct {
	LogErr error
	DBErr  error
}

func (r RecordResult) OK() bool {
	return r.LogErr == nil && r.DBErr == nil
}

// Partial is true when exactly one backend stored the observation.
func (r RecordResult) Partial() bool {
	return (r.LogErr == nil) != (r.DBErr == nil)
}

// Sink writes every observation to the JSON log and the relational store.
type Sink struct {
	log    *JSONLog
	repo   repository.ObservationRepository
	logger logger.Log
}

// NewSink accepts a nil log or repo to disable that backend.
func NewSink(log *JSONLog, repo repository.ObservationRepository, logger logger.Log) *Sink {
	return &Sink{log: log, repo: repo, logger: logger}
}

// Initialize prepares the relational store.
func (s *Sink) Initialize() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Initialize()
}

// Record never fails the caller; problems are logged and returned for inspection.
func (s *Sink) Record(obs model.Observation) RecordResult {
	var result RecordResult

	if s.log != nil {
		if err := s.log.Append(obs); err != nil {
			result.LogErr = err
			s.logger.Error("Save analysis error (%s): %v", s.log.Path(), err)
		} else {
			s.logger.Info("Analysis saved: %s", obs.Digest())
		}
	}

	if s.repo != nil {
		if _, err := s.repo.Insert(&obs); err != nil {
			result.DBErr = err
			s.logger.Error("Save analysis to database error: %v", err)
		}
	}

	if result.Partial() {
		s.logger.Warning("Observation at %s stored in only one backend", obs.FormattedTimestamp())
	}
	return result
}
