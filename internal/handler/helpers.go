package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"facecam/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger logger.Log) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// positiveParam returns def when s is empty and an error unless s is an integer >= 1.
func positiveParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 1 {
		return 0, fmt.Errorf("%d must be at least 1", v)
	}
	return v, nil
}
