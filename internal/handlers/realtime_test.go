package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"support-service/internal/mocks"
	"support-service/internal/models"
	"support-service/internal/ws"
)

// joinRequestRoom opens a real websocket connection and registers its
// server side in the hub's room for requestID, returning the client
// side for reading delivered events.
func joinRequestRoom(t *testing.T, hub *ws.Hub, requestID string, info ws.ConnInfo) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.AddRequestClient(requestID, conn, info)
		close(registered)
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	<-registered
	return client
}

func readEvent(t *testing.T, client *websocket.Conn) models.ChatEvent {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	var event models.ChatEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func requireNoEvent(t *testing.T, client *websocket.Conn) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
}

func TestPostMessageDeliversToRoomAndMarksRead(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	hub := ws.NewHub()
	handler := NewMessageHandler(requestRepo, messageRepo, userRepo, new(mocks.ObjectStorageMock), hub, nil)
	router := setupMessageRouter(handler, "dealer-1", models.RoleDealer)

	viewer := joinRequestRoom(t, hub, "r1", ws.ConnInfo{ConnID: "c1", UserID: "admin-1", Role: models.RoleAdmin})

	sender := models.User{ID: "dealer-1", Name: "Taras", Role: models.RoleDealer}
	sent := models.Message{ID: "m1", RequestID: "r1", UserID: "dealer-1", Content: "hello"}

	requestRepo.On("GetByID", mock.Anything, "r1").Return(models.Request{ID: "r1", UserID: "dealer-1"}, nil).Once()
	userRepo.On("GetByID", mock.Anything, "dealer-1").Return(sender, nil).Once()
	messageRepo.On("Create", mock.Anything, "r1", sender, "hello", models.AttachmentList(nil)).Return(sent, nil).Once()
	requestRepo.On("Touch", mock.Anything, "r1").Return(nil).Once()
	messageRepo.On("MarkRead", mock.Anything, "m1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/requests/r1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	event := readEvent(t, viewer)
	require.Equal(t, "message", event.Type)
	require.Equal(t, "r1", event.RequestID)
	require.NotNil(t, event.Message)
	require.Equal(t, "m1", event.Message.ID)

	requireNoEvent(t, viewer)

	messageRepo.AssertExpectations(t)
	requestRepo.AssertExpectations(t)
}

func TestPostMessageNoMarkReadWhenOnlySenderConnected(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	hub := ws.NewHub()
	handler := NewMessageHandler(requestRepo, messageRepo, userRepo, new(mocks.ObjectStorageMock), hub, nil)
	router := setupMessageRouter(handler, "dealer-1", models.RoleDealer)

	own := joinRequestRoom(t, hub, "r1", ws.ConnInfo{ConnID: "c1", UserID: "dealer-1", Role: models.RoleDealer})

	sender := models.User{ID: "dealer-1", Name: "Taras", Role: models.RoleDealer}
	sent := models.Message{ID: "m1", RequestID: "r1", UserID: "dealer-1", Content: "hello"}

	requestRepo.On("GetByID", mock.Anything, "r1").Return(models.Request{ID: "r1", UserID: "dealer-1"}, nil).Once()
	userRepo.On("GetByID", mock.Anything, "dealer-1").Return(sender, nil).Once()
	messageRepo.On("Create", mock.Anything, "r1", sender, "hello", models.AttachmentList(nil)).Return(sent, nil).Once()
	requestRepo.On("Touch", mock.Anything, "r1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/requests/r1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The sender's own device still receives the room event.
	event := readEvent(t, own)
	require.Equal(t, "message", event.Type)
	require.Equal(t, "m1", event.Message.ID)

	messageRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}
