package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/service/ai"
	"facecam/internal/service/camera"
	"facecam/internal/service/runner"
)

// RunnerState is returned by the runner endpoints.
type RunnerState struct {
	Status runner.Status   `json:"status"`
	Last   *runner.Summary `json:"last,omitempty"`
}

func runnerState(rn *runner.Runner) RunnerState {
	state := RunnerState{Status: rn.Status()}
	if last, ok := rn.Last(); ok {
		state.Last = &last
	}
	return state
}

// StartRunnerHandler handles POST /api/runner/start. Query parameters
// override the configured defaults: strategy (required), devices, every,
// framerate and budget.
func StartRunnerHandler(rn *runner.Runner, strategies map[string]ai.Strategy, defaults runner.Params, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		name := q.Get("strategy")
		strategy, ok := strategies[name]
		if !ok {
			http.Error(w, "Unknown strategy: "+name, http.StatusBadRequest)
			return
		}

		params := defaults
		if devices := config.SplitList(q.Get("devices")); len(devices) > 0 {
			params.Devices = devices
		}
		every, err := positiveParam(q.Get("every"), params.SampleEvery)
		if err != nil {
			http.Error(w, "Invalid every: "+err.Error(), http.StatusBadRequest)
			return
		}
		params.SampleEvery = every
		framerate, err := positiveParam(q.Get("framerate"), params.Framerate)
		if err != nil {
			http.Error(w, "Invalid framerate: "+err.Error(), http.StatusBadRequest)
			return
		}
		params.Framerate = framerate
		if v := q.Get("budget"); v != "" {
			budget, err := parseBudget(v)
			if err != nil {
				http.Error(w, "Invalid budget: "+v, http.StatusBadRequest)
				return
			}
			params.MaxDuration = budget
		}

		if err := rn.Start(strategy, params); err != nil {
			logger.Error("Failed to start %s runner: %v", name, err)
			switch {
			case errors.Is(err, runner.ErrNoDevices), errors.Is(err, runner.ErrInvalidInterval):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, camera.ErrUnavailable):
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		logger.Info("Runner started with %s strategy on %v", name, params.Devices)
		writeJSON(w, http.StatusAccepted, runnerState(rn), logger)
	}
}

// StopRunnerHandler handles POST /api/runner/stop and returns once the runner is idle.
func StopRunnerHandler(rn *runner.Runner, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rn.Cancel()
		writeJSON(w, http.StatusOK, runnerState(rn), logger)
	}
}

func RunnerStatusHandler(rn *runner.Runner, logger logger.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, runnerState(rn), logger)
	}
}

// parseBudget accepts Go durations ("20s") or plain seconds ("20").
func parseBudget(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, errors.New("invalid duration")
	}
	return time.Duration(secs) * time.Second, nil
}
