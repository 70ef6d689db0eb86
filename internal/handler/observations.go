package handler

import (
	"net/http"
	"strconv"

	"facecam/internal/dto"
	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/repository"
)

// GetObservationsHandler returns filtered observations, newest first.
func GetObservationsHandler(repo repository.ObservationRepository, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := model.ObservationFilter{
			Gender: q.Get("gender"),
			Race:   q.Get("race"),
		}
		var err error
		if filter.MinAge, err = parseAge(q.Get("minAge")); err != nil {
			http.Error(w, "Invalid minAge", http.StatusBadRequest)
			return
		}
		if filter.MaxAge, err = parseAge(q.Get("maxAge")); err != nil {
			http.Error(w, "Invalid maxAge", http.StatusBadRequest)
			return
		}

		observations, err := repo.Query(filter)
		if err != nil {
			logger.Error("Error querying observations from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rows := make([]dto.ObservationInfo, 0, len(observations))
		for _, obs := range observations {
			rows = append(rows, dto.NewObservationInfo(obs))
		}

		data := dto.ObservationsData{
			Observations: rows,
			Length:       len(rows),
			Filters: dto.FilterEcho{
				Gender: filter.Gender,
				Race:   filter.Race,
				MinAge: filter.MinAge,
				MaxAge: filter.MaxAge,
			},
		}
		writeJSON(w, http.StatusOK, data, logger)
	}
}

// parseAge returns nil for an empty value.
func parseAge(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	age, err := strconv.Atoi(v)
	if err != nil || age < 0 {
		return nil, strconv.ErrSyntax
	}
	return &age, nil
}
