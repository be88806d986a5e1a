package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"support-service/internal/models"
)

// dialPair opens a real websocket connection and returns both ends so
// the server side can be registered in a hub and the client side read.
func dialPair(t *testing.T) (client, server *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	server = <-accepted
	t.Cleanup(func() { server.Close() })
	return client, server
}

func readChatEvent(t *testing.T, client *websocket.Conn) models.ChatEvent {
	t.Helper()
	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, payload, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event models.ChatEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return event
}

func TestBroadcastMessageReachesRoomAndOwnerInbox(t *testing.T) {
	hub := NewHub()

	roomClient, roomServer := dialPair(t)
	hub.AddRequestClient("r1", roomServer, ConnInfo{ConnID: "c1", UserID: "admin-1", Role: models.RoleAdmin})

	ownerClient, ownerServer := dialPair(t)
	hub.AddInboxClient(ownerServer, ConnInfo{ConnID: "c2", UserID: "dealer-1", Role: models.RoleDealer})

	strangerClient, strangerServer := dialPair(t)
	hub.AddInboxClient(strangerServer, ConnInfo{ConnID: "c3", UserID: "dealer-2", Role: models.RoleDealer})

	req := models.Request{ID: "r1", UserID: "dealer-1"}
	msg := models.Message{ID: "m1", RequestID: "r1", UserID: "dealer-1", Content: "hello"}
	hub.BroadcastMessage(req, msg)

	roomEvent := readChatEvent(t, roomClient)
	if roomEvent.Type != "message" || roomEvent.Message == nil || roomEvent.Message.ID != "m1" {
		t.Fatalf("unexpected room event: %+v", roomEvent)
	}

	ownerEvent := readChatEvent(t, ownerClient)
	if ownerEvent.Type != "message" || ownerEvent.RequestID != "r1" {
		t.Fatalf("unexpected inbox event: %+v", ownerEvent)
	}

	if err := strangerClient.SetReadDeadline(time.Now().Add(150 * time.Millisecond)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if _, _, err := strangerClient.ReadMessage(); err == nil {
		t.Fatalf("expected no event for a dealer who does not own the request")
	}
}

func TestBroadcastRequestUpdatedReachesAdminInbox(t *testing.T) {
	hub := NewHub()

	adminClient, adminServer := dialPair(t)
	hub.AddInboxClient(adminServer, ConnInfo{ConnID: "c1", UserID: "admin-1", Role: models.RoleAdmin})

	hub.BroadcastRequestUpdated(models.Request{ID: "r1", UserID: "dealer-1", Status: models.StatusInProgress})

	event := readChatEvent(t, adminClient)
	if event.Type != "request_updated" || event.Request == nil || event.Request.ID != "r1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
