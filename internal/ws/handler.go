package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cardroom-service/internal/service/auth"
	"cardroom-service/internal/service/game"
	"cardroom-service/internal/service/presence"
	pkgAuth "cardroom-service/pkg/auth"
	appErr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	gameSvc     *game.Service
	authSvc     *auth.Service
	presenceSvc *presence.Service
}

func NewHandler(gameSvc *game.Service, authSvc *auth.Service, presenceSvc *presence.Service) *Handler {
	return &Handler{gameSvc: gameSvc, authSvc: authSvc, presenceSvc: presenceSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleChannelWS attaches one websocket connection to a channel stream.
// Players authenticate with a player token; a spectator role can be
// requested with ?role=spectator, and admin tokens get the admin view.
func (h *Handler) HandleChannelWS(c *gin.Context) {
	channelID := strings.TrimSpace(c.Param("channelId"))
	if channelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	role := game.RolePlayer
	var playerID int64
	if claims, err := pkgAuth.ParseAdminToken(token); err == nil {
		role = game.RoleAdmin
		playerID = claims.SubjectID
	} else {
		claims, err := pkgAuth.ParseUserToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		playerID = claims.SubjectID
		if _, err := h.authSvc.GetPlayer(c.Request.Context(), playerID); err != nil {
			if errors.Is(err, appErr.ErrPlayerBanned) {
				c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			}
			return
		}
		if c.Query("role") == "spectator" {
			role = game.RoleSpectator
		}
	}

	sess, sub, err := h.gameSvc.Subscribe(c.Request.Context(), channelID, playerID, role)
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrChannelConfigNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, appErr.ErrChannelDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "channel disabled"})
		case errors.Is(err, appErr.ErrResourceExhausted):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session capacity reached"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open channel"})
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sess.Unsubscribe(sub.ID)
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("channelID", channelID),
		zap.Int64("playerID", playerID),
		zap.String("role", string(role)),
	)

	client := newClient(conn, playerID, channelID, role, sess, sub, h)
	client.clientIP = c.ClientIP()
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

// incomingMessage is the client-to-server wire envelope.
type incomingMessage struct {
	Type         string          `json:"type"` // action|resume|ping
	Action       game.ActionType `json:"action,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ClientSeq    int64           `json:"clientSeq,omitempty"`
	LastKnownSeq int64           `json:"lastKnownSeq,omitempty"`
}

type client struct {
	conn      *websocket.Conn
	playerID  int64
	channelID string
	role      game.Role
	sess      *game.Session
	sub       *game.Subscription
	h         *Handler
	clientIP  string
	replies   chan game.OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, playerID int64, channelID string, role game.Role, sess *game.Session, sub *game.Subscription, h *Handler) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		playerID:  playerID,
		channelID: channelID,
		role:      role,
		sess:      sess,
		sub:       sub,
		h:         h,
		replies:   make(chan game.OutgoingMessage, 8),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.sess.Unsubscribe(c.sub.ID)
		if c.role == game.RolePlayer {
			c.h.presenceSvc.Clear(context.Background(), c.playerID, c.channelID)
		}
		c.conn.Close()
	}()

	if c.role == game.RolePlayer {
		c.h.presenceSvc.Touch(context.Background(), c.playerID, c.channelID, c.clientIP)
	}

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("playerID", c.playerID), zap.String("channelID", c.channelID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming incomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.reply(game.ErrorMessage(c.channelID, appErr.ErrValidation))
			continue
		}

		switch incoming.Type {
		case "ping":
			if c.role == game.RolePlayer {
				c.h.presenceSvc.Touch(context.Background(), c.playerID, c.channelID, c.clientIP)
			}
			c.reply(game.OutgoingMessage{Type: "pong", ChannelID: c.channelID})

		case "resume":
			c.sess.Resume(c.sub.ID, incoming.LastKnownSeq)

		case "action":
			if c.role != game.RolePlayer {
				c.reply(game.ErrorMessage(c.channelID, appErr.ErrUnauthorized))
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.h.gameSvc.Dispatch(ctx, &game.Action{
				ChannelID: c.channelID,
				PlayerID:  c.playerID,
				Type:      incoming.Action,
				Payload:   incoming.Payload,
				ClientSeq: incoming.ClientSeq,
			})
			cancel()
			if err != nil {
				c.reply(game.ErrorMessage(c.channelID, err))
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("playerID", c.playerID), zap.String("channelID", c.channelID))
				return
			}
		case msg := <-c.replies:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("playerID", c.playerID), zap.String("channelID", c.channelID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// reply queues a message for the write pump. The connection has a single
// writer, so the read pump never writes frames directly.
func (c *client) reply(msg game.OutgoingMessage) {
	select {
	case c.replies <- msg:
	default:
		logger.Log.Warn("reply queue full, dropping message", zap.Int64("playerID", c.playerID), zap.String("channelID", c.channelID))
	}
}
