package route

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/repository/sqlite"
	"facecam/internal/service/ai"
	"facecam/internal/service/camera"
	"facecam/internal/service/runner"
	"facecam/internal/service/storage"
	"facecam/internal/service/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	dir := t.TempDir()
	static := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(static, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "login.html"), []byte("<h1>login</h1>"), 0644))

	cfg := &config.Config{Password: "pw", StaticDirectory: static}
	log := logger.NewTestLogger(t)
	registry := prometheus.NewRegistry()

	repo := sqlite.NewObservationRepository(sqlite.New(filepath.Join(dir, "faces.db")))
	require.NoError(t, repo.Initialize())

	opener := camera.OpenerFunc(func(id string, framerate int) (camera.Source, error) {
		return nil, camera.ErrUnavailable
	})
	rn := runner.New(opener, nil, log, runner.NewMetrics(registry))

	server := httptest.NewServer(SetupRoutes(Deps{
		Config:     cfg,
		Logger:     log,
		Runner:     rn,
		Strategies: map[string]ai.Strategy{},
		Defaults:   runner.DefaultParams(),
		Repo:       repo,
		Logs:       []*storage.JSONLog{storage.NewJSONLog(filepath.Join(dir, "analysis.json"))},
		Hub:        websocket.NewHubService(8, log),
		Gatherer:   registry,
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSetupRoutes(t *testing.T) {
	server := newTestServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(server.URL + "/api/runner/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(server.URL + "/login")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "login")

	resp, err = client.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "facecam_frames_read_total")

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/runner/status", nil)
	req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
	resp, err = client.Do(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `"state":"idle"`))

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/missing-page", nil)
	req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
