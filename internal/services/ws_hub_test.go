package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *WSHub, eventID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(eventID, conn)
		close(registered)
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer was not registered")
	}
	return client
}

func TestWSHubPublish(t *testing.T) {
	hub := NewWSHub()
	viewer := dialHub(t, hub, "e1")
	other := dialHub(t, hub, "e2")
	assert.Equal(t, 1, hub.Viewers("e1"))

	require.NoError(t, hub.Publish("e1", WSMessage{Type: "upload_created", EventID: "e1", Data: "x"}))

	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, viewer.ReadJSON(&msg))
	assert.Equal(t, "upload_created", msg.Type)
	assert.Equal(t, "e1", msg.EventID)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestWSHubCloseEvent(t *testing.T) {
	hub := NewWSHub()
	viewer := dialHub(t, hub, "e1")

	hub.CloseEvent("e1")
	assert.Equal(t, 0, hub.Viewers("e1"))

	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := viewer.ReadMessage()
	assert.Error(t, err)

	require.NoError(t, hub.Publish("e1", WSMessage{Type: "upload_created"}))
}
