package handler

import (
	"net/http"
	"time"

	"facecam/internal/logger"
	"facecam/internal/service/websocket"

	gorilla "github.com/gorilla/websocket"
)

const (
	viewerReadTimeout = 60 * time.Second
	viewerWriteWait   = 5 * time.Second
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressWebsocketHandler registers viewers with the hub so they receive
// runner progress messages.
func ProgressWebsocketHandler(hub *websocket.HubService, logger logger.Log) http.HandlerFunc {
	return progressWebsocketHandler(hub, logger, viewerReadTimeout)
}

// progressWebsocketHandler pings every viewer at 9/10 of readTimeout so
// passive browsers keep their read deadline alive through pongs.
func progressWebsocketHandler(hub *websocket.HubService, logger logger.Log, readTimeout time.Duration) http.HandlerFunc {
	pingPeriod := readTimeout * 9 / 10
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(readTimeout))
		connection.SetPongHandler(func(string) error {
			connection.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		stop := make(chan struct{})
		defer close(stop)
		go pingViewer(connection, pingPeriod, stop)

		logger.Info("Viewer connected")

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
			connection.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}
}

// pingViewer uses WriteControl, which gorilla allows concurrently with the
// hub's WriteMessage calls.
func pingViewer(connection *gorilla.Conn, period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := connection.WriteControl(gorilla.PingMessage, nil, time.Now().Add(viewerWriteWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
