package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/fogline/internal/app/middleware"
	"github.com/FACorreiaa/fogline/internal/app/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, you should validate the origin
		return true
	},
}

// Inbound websocket message budget per client.
const (
	wsMessagesPerSecond = 0.5
	wsMessageBurst      = 5
	wsWriteTimeout      = 10 * time.Second
)

type Handler struct {
	service Service
	hub     *Hub
	logger  *zap.Logger
}

func NewHandler(service Service, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

func (h *Handler) handleChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat data", "details": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed", "details": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	default:
		h.logger.Error("Chat operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat operation failed", "details": "An internal error occurred. Please try again later."})
	}
}

// CreateRoom opens a room with the caller plus invited connections.
func (h *Handler) CreateRoom(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), userID, req)
	if err != nil {
		h.handleChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms returns the caller's rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	rooms, err := h.service.ListRooms(c.Request.Context(), userID)
	if err != nil {
		h.handleChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// SendMessage posts a message over REST.
func (h *Handler) SendMessage(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), userID, req)
	if err != nil {
		h.handleChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// History returns the newest messages in a room.
func (h *Handler) History(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.service.History(c.Request.Context(), userID, roomID, limit)
	if err != nil {
		h.handleChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// TopRooms ranks rooms by current live subscribers.
func (h *Handler) TopRooms(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, h.service.TopRooms(n))
}

// JoinRoom upgrades to a websocket, streams broadcasts out and accepts
// rate-limited message sends in.
func (h *Handler) JoinRoom(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room id"})
		return
	}

	member, err := h.service.IsMember(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleChatError(c, err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a room member"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(roomID.String(), userID.String())
	defer h.hub.Unsubscribe(roomID.String(), sub)

	l := h.logger.With(zap.String("roomID", roomID.String()), zap.String("userID", userID.String()))
	l.Info("Websocket session opened")

	// Writer: pump hub broadcasts to the socket until the subscriber channel
	// closes (unsubscribe or pruning).
	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range sub.C {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				l.Debug("Websocket write failed", zap.Error(err))
				return
			}
		}
	}()

	// Reader: accept inbound sends, throttled per connection.
	limiter := rate.NewLimiter(rate.Limit(wsMessagesPerSecond), wsMessageBurst)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !limiter.Allow() {
			l.Warn("Dropping message over rate limit")
			continue
		}

		var req models.SendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			l.Debug("Ignoring malformed websocket payload", zap.Error(err))
			continue
		}
		req.RoomID = roomID

		if _, err := h.service.SendMessage(c.Request.Context(), userID, req); err != nil {
			l.Warn("Websocket send rejected", zap.Error(err))
		}
	}

	_ = conn.Close()
	<-done
	l.Info("Websocket session closed")
}
