package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/contextutil"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Origin enforcement happens at the edge proxy; the gateway trusts the JWT
// on the handshake instead.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Handler struct {
	gateway *Gateway
	logger  *zap.Logger
}

func NewHandler(gateway *Gateway, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("realtime.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.handler")
	}
	return &Handler{gateway: gateway, logger: l}
}

// ServeWS upgrades an authenticated request to a websocket and registers the
// connection. AuthMiddleware ran before this, so the claims on the context
// are trusted.
func (h *Handler) ServeWS(c *gin.Context) {
	claims := middleware.AuthClaims{
		UserID:     c.GetString("user_id"),
		TenantID:   c.GetString("company_id"),
		EmployeeID: c.GetString("employee_id"),
		Role:       c.GetString("role"),
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("request_id", contextutil.GetRequestID(c.Request.Context())),
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return
	}

	client := newClient(h.gateway, conn, claims)
	h.gateway.register(c.Request.Context(), client)

	go client.writePump()
	go client.readPump()
}

func (h *Handler) Online(c *gin.Context) {
	tenantID := c.GetString("company_id")

	users, err := h.gateway.WhoIsOnline(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("who is online query failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to query presence", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"online": users}, nil)
}

type BroadcastRequest struct {
	TenantID  string          `json:"tenant_id" binding:"required"`
	EventType string          `json:"event_type" binding:"required"`
	RoomID    string          `json:"room_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Broadcast pushes an event to a tenant (or a room) right now, without going
// through the broker. Internal services use it for operational announcements.
func (h *Handler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	env, err := events.NewEnvelope(req.EventType, req.TenantID, req.Payload)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if req.RoomID != "" {
		env = env.WithRoom(req.RoomID)
	}

	h.gateway.Broadcast(c.Request.Context(), env)
	response.Success(c, http.StatusAccepted, gin.H{"event_id": env.EventID}, nil)
}

type SendRequest struct {
	TenantID  string          `json:"tenant_id" binding:"required"`
	UserID    string          `json:"user_id" binding:"required"`
	EventType string          `json:"event_type" binding:"required"`
	Payload   json.RawMessage `json:"payload"`
}

// Send pushes an event to one user right now, without going through the
// broker.
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
		return
	}

	env, err := events.NewEnvelope(req.EventType, req.TenantID, req.Payload)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	h.gateway.Broadcast(c.Request.Context(), env.WithTargetUser(req.UserID))
	response.Success(c, http.StatusAccepted, gin.H{"event_id": env.EventID}, nil)
}
