package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"signaling-service/internal/auth"
	"signaling-service/internal/observability"
)

// PresenceSink receives connect/disconnect transitions. Implementations
// must be best effort and never fail the connection.
type PresenceSink interface {
	SetOnline(userID int64)
	SetOffline(userID int64)
}

// Handler upgrades authenticated signaling connections and owns each
// connection's read loop.
type Handler struct {
	registry  *Registry
	relay     *Relay
	presence  PresenceSink
	jwtSecret string
	log       *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry, relay *Relay, presence PresenceSink, jwtSecret string, log *zap.Logger) *Handler {
	return &Handler{
		registry:  registry,
		relay:     relay,
		presence:  presence,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the request, upgrades it, and registers the
// connection. One signaling connection per session; a new connection for
// the same user supersedes the previous one.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("signaling-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(claims.UserID, conn)
	if prev := h.registry.Register(client); prev != nil {
		_ = prev.Close()
	}
	h.presence.SetOnline(client.UserID)
	observability.IncWSActive()
	h.log.Info("signaling connection opened",
		zap.Int64("user_id", client.UserID),
		zap.String("conn_id", client.ID))

	go h.readLoop(client)
}

func (h *Handler) readLoop(client *Client) {
	defer func() {
		// Compare-and-remove: only the connection that still owns the
		// entry flips presence, so a stale close cannot mark a freshly
		// reconnected user offline.
		if h.registry.Unregister(client) {
			h.presence.SetOffline(client.UserID)
		}
		observability.DecWSActive()
		h.log.Info("signaling connection closed",
			zap.Int64("user_id", client.UserID),
			zap.String("conn_id", client.ID),
			zap.Duration("connected_for", time.Since(client.ConnectedAt)))
		_ = client.Close()
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("signaling read error",
					zap.Int64("user_id", client.UserID),
					zap.String("conn_id", client.ID),
					zap.Error(err))
			}
			return
		}
		h.relay.HandleInbound(context.Background(), client.UserID, raw)
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
