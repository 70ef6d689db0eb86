package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"facecam/internal/logger"
	"facecam/internal/service/websocket"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestProgressWebsocket_PassiveViewerStaysConnected(t *testing.T) {
	log := logger.NewTestLogger(t)
	hub := websocket.NewHubService(16, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	readTimeout := 200 * time.Millisecond
	server := httptest.NewServer(progressWebsocketHandler(hub, log, readTimeout))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The viewer only reads; gorilla answers pings from inside ReadMessage.
	messages := make(chan string, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var msg websocket.Progress
			if json.Unmarshal(data, &msg) == nil {
				messages <- msg.Message
			}
		}
	}()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(4 * readTimeout)
	select {
	case err := <-readErr:
		t.Fatalf("viewer disconnected: %v", err)
	default:
	}
	require.Equal(t, 1, hub.GetClientCount())

	hub.Broadcast("Processing frame 24")
	select {
	case msg := <-messages:
		require.Equal(t, "Processing frame 24", msg)
	case err := <-readErr:
		t.Fatalf("viewer disconnected: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("no progress delivered")
	}
}
