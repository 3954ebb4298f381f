package ws

import (
	"chatrelay/internal/relay"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WsServer turns accepted WebSocket connections into relay sessions.
type WsServer struct {
	registry *relay.Registry
	upgrader websocket.Upgrader
}

func NewWsServer(registry *relay.Registry) *WsServer {
	return &WsServer{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
	}
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	roomID := ginCtx.Param("room_id")
	if roomID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	conn := newClientConn(rawConn)
	zap.L().Info("ws.connected",
		zap.String("room", roomID),
		zap.String("remote", rawConn.RemoteAddr().String()),
	)

	go relay.NewSession(s.registry, roomID, conn).Run()
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// pinger keeps the connection alive. A failed ping closes the conn, which
// surfaces as a read error in the session and triggers the normal leave
// path; a closed conn fails the next ping, which stops this goroutine.
func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			_ = conn.Close()
			return
		}
	}
}
