package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-service/internal/models"
	"support-service/internal/observability"
)

// Hub maintains active websocket connections: one room per support
// request plus a flat inbox stream used by list screens.
type Hub struct {
	requestRooms map[string]map[*websocket.Conn]ConnInfo
	inboxConns   map[*websocket.Conn]ConnInfo
	mu           sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		requestRooms: make(map[string]map[*websocket.Conn]ConnInfo),
		inboxConns:   make(map[*websocket.Conn]ConnInfo),
	}
}

// AddRequestClient registers a websocket connection to a request room.
func (h *Hub) AddRequestClient(requestID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.requestRooms[requestID]; !ok {
		h.requestRooms[requestID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.requestRooms[requestID][conn] = info
}

// RemoveRequestClient removes a request room connection.
func (h *Hub) RemoveRequestClient(requestID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.requestRooms[requestID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.requestRooms, requestID)
		}
	}
}

// AddInboxClient registers an inbox stream connection.
func (h *Hub) AddInboxClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inboxConns[conn] = info
}

// RemoveInboxClient removes an inbox stream connection.
func (h *Hub) RemoveInboxClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inboxConns, conn)
}

// RequestViewers returns a snapshot of who is currently connected to a
// request room, used to mark freshly delivered messages as read.
func (h *Hub) RequestViewers(requestID string) []ConnInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	infos := make([]ConnInfo, 0, len(h.requestRooms[requestID]))
	for _, info := range h.requestRooms[requestID] {
		infos = append(infos, info)
	}
	return infos
}

// BroadcastMessage delivers a new message to its request room and to
// inbox subscribers who can see the owning request (its owner and all
// admins). Delivery is best-effort; a failed write drops the connection.
func (h *Hub) BroadcastMessage(req models.Request, msg models.Message) {
	event := models.ChatEvent{Type: "message", Message: &msg, RequestID: req.ID}
	payload, _ := json.Marshal(event)

	h.mu.RLock()
	conns := h.requestRooms[req.ID]
	h.mu.RUnlock()
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveRequestClient(req.ID, conn)
			h.publishWSError("request", req.ID, conn, err)
		}
	}

	h.broadcastInbox(req, payload)
}

// BroadcastRequestUpdated tells inbox subscribers to re-fetch their
// summaries. Inbox clients re-run the full summary query rather than
// patching incrementally.
func (h *Hub) BroadcastRequestUpdated(req models.Request) {
	event := models.ChatEvent{Type: "request_updated", Request: &req, RequestID: req.ID}
	payload, _ := json.Marshal(event)
	h.broadcastInbox(req, payload)
}

func (h *Hub) broadcastInbox(req models.Request, payload []byte) {
	h.mu.RLock()
	targets := make(map[*websocket.Conn]ConnInfo, len(h.inboxConns))
	for conn, info := range h.inboxConns {
		if info.UserID == req.UserID || info.Role == models.RoleAdmin || info.Role == models.RoleSuperadmin {
			targets[conn] = info
		}
	}
	h.mu.RUnlock()

	for conn := range targets {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveInboxClient(conn)
			h.publishWSError("inbox", req.ID, conn, err)
		}
	}
}

func (h *Hub) publishWSError(kind, resourceID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind, resourceID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "request" {
		if infos, ok := h.requestRooms[resourceID]; ok {
			info, exists := infos[conn]
			return info, exists
		}
		return ConnInfo{}, false
	}
	info, exists := h.inboxConns[conn]
	return info, exists
}

func wsRoutingKey(kind string) string {
	if kind == "inbox" {
		return "ws_events.inbox"
	}
	return "ws_events.requests"
}
