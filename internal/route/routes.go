package route

import (
	"net/http"
	"os"
	"path/filepath"

	"facecam/internal/config"
	"facecam/internal/handler"
	"facecam/internal/logger"
	"facecam/internal/middleware"
	"facecam/internal/repository"
	"facecam/internal/service/ai"
	"facecam/internal/service/runner"
	"facecam/internal/service/storage"
	"facecam/internal/service/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Runner     *runner.Runner
	Strategies map[string]ai.Strategy
	Defaults   runner.Params
	Repo       repository.ObservationRepository
	Logs       []*storage.JSONLog
	Hub        *websocket.HubService
	Gatherer   prometheus.Gatherer
}

// staticHTMLHandler serves /path as <dir>/path.html if the file exists; otherwise 404.
func staticHTMLHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	cfg, log := d.Config, d.Logger

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Runner control
	mux.HandleFunc("/api/runner/start", handler.StartRunnerHandler(d.Runner, d.Strategies, d.Defaults, log))
	mux.HandleFunc("/api/runner/stop", handler.StopRunnerHandler(d.Runner, log))
	mux.HandleFunc("/api/runner/status", handler.RunnerStatusHandler(d.Runner, log))
	mux.HandleFunc("/api/progress", handler.ProgressWebsocketHandler(d.Hub, log))

	// Observations
	mux.HandleFunc("/api/observations", handler.GetObservationsHandler(d.Repo, log))
	mux.HandleFunc("/api/store/reset", handler.ResetStoreHandler(d.Repo, log))
	mux.HandleFunc("/api/store/clear", handler.ClearStoreHandler(d.Repo, d.Logs, log))

	mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(log, file, log))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> static/login.html
	mux.HandleFunc("/", staticHTMLHandler(cfg.StaticDirectory))

	return middleware.AuthMiddleware(mux)
}
