package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"support-service/internal/auth"
	"support-service/internal/models"
	"support-service/internal/observability"
	"support-service/internal/repositories"
)

// RequestWebSocketHandler handles per-request chat room connections.
type RequestWebSocketHandler struct {
	hub         *Hub
	requestRepo repositories.RequestRepository
	issuer      *auth.TokenIssuer
}

// NewRequestWebSocketHandler constructs a RequestWebSocketHandler.
func NewRequestWebSocketHandler(hub *Hub, requestRepo repositories.RequestRepository, issuer *auth.TokenIssuer) *RequestWebSocketHandler {
	return &RequestWebSocketHandler{hub: hub, requestRepo: requestRepo, issuer: issuer}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in its room.
// Dealers must own the request; admins may join any room.
func (h *RequestWebSocketHandler) Handle(c *gin.Context) {
	requestID := c.Param("request_id")

	ctx, span := otel.Tracer("support-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claims, err := validateWSToken(h.issuer, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	req, err := h.requestRepo.GetByID(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		return
	}
	admin := claims.Role == models.RoleAdmin || claims.Role == models.RoleSuperadmin
	if !admin && req.UserID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for request"})
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
	h.hub.AddRequestClient(requestID, conn, info)

	observability.IncWSActive("request")
	observability.IncWSEvent("request", "ws_connect")
	publishWSEvent(ctx, "request", requestID, "ws_connect", info, "", reqID, traceID)

	// Keep connection alive and clean up on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveRequestClient(requestID, conn)
			observability.DecWSActive("request")
			observability.IncWSEvent("request", "ws_disconnect")
			publishWSEvent(ctx, "request", requestID, "ws_disconnect", info, closeReason, reqID, traceID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("request", "ws_error")
					publishWSEvent(ctx, "request", requestID, "ws_error", info, closeReason, reqID, traceID)
				}
				return
			}
		}
	}()
}

func validateWSToken(issuer *auth.TokenIssuer, c *gin.Context) (*auth.SessionClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return issuer.Validate(parts[1])
	}
	return nil, fmt.Errorf("invalid token")
}

func publishWSEvent(ctx context.Context, kind, resourceID, event string, info ConnInfo, reason, requestID, traceID string) {
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))
}
