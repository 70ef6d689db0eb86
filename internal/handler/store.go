package handler

import (
	"net/http"

	"facecam/internal/logger"
	"facecam/internal/repository"
	"facecam/internal/service/storage"
)

// ResetStoreHandler destroys the observation database and recreates it empty.
func ResetStoreHandler(repo repository.ObservationRepository, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := repo.Reset(); err != nil {
			logger.Error("Error resetting database: %v", err)
			http.Error(w, "Unable to reset database", http.StatusInternalServerError)
			return
		}
		if err := repo.Initialize(); err != nil {
			logger.Error("Error initializing database: %v", err)
			http.Error(w, "Unable to initialize database", http.StatusInternalServerError)
			return
		}
		logger.Info("Database reset")
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearStoreHandler deletes every observation row and empties the JSON logs.
func ClearStoreHandler(repo repository.ObservationRepository, logs []*storage.JSONLog, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		failed := false
		if err := repo.Clear(); err != nil {
			logger.Error("Error clearing database: %v", err)
			failed = true
		}
		for _, log := range logs {
			if err := log.Clear(); err != nil {
				logger.Error("Error clearing %s: %v", log.Path(), err)
				failed = true
			}
		}
		if failed {
			http.Error(w, "Unable to clear all stores", http.StatusInternalServerError)
			return
		}

		logger.Info("All observations cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
