package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"support-service/internal/auth"
	"support-service/internal/observability"
)

// InboxWebSocketHandler handles the per-user inbox stream used by list
// screens: new-message and request-updated notifications.
type InboxWebSocketHandler struct {
	hub    *Hub
	issuer *auth.TokenIssuer
}

// NewInboxWebSocketHandler constructs an InboxWebSocketHandler.
func NewInboxWebSocketHandler(hub *Hub, issuer *auth.TokenIssuer) *InboxWebSocketHandler {
	return &InboxWebSocketHandler{hub: hub, issuer: issuer}
}

// Handle upgrades the connection and registers the inbox client.
func (h *InboxWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("support-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claims, err := validateWSToken(h.issuer, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	reqID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		Role:        claims.Role,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   reqID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddInboxClient(conn, info)

	observability.IncWSActive("inbox")
	observability.IncWSEvent("inbox", "ws_connect")
	publishWSEvent(ctx, "inbox", "", "ws_connect", info, "", reqID, traceID)

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveInboxClient(conn)
			observability.DecWSActive("inbox")
			observability.IncWSEvent("inbox", "ws_disconnect")
			publishWSEvent(ctx, "inbox", "", "ws_disconnect", info, closeReason, reqID, traceID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("inbox", "ws_error")
					publishWSEvent(ctx, "inbox", "", "ws_error", info, closeReason, reqID, traceID)
				}
				return
			}
		}
	}()
}
