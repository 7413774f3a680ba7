package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"homeswitch/internal/delivery/api/response"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	wsReadLimit    = 1024
	wsPongWait     = 60 * time.Second
	wsPingInterval = 25 * time.Second
	wsWriteWait    = 5 * time.Second
)

// RealtimeHandlerParams holds dependencies for RealtimeHandler, injected by Fx.
type RealtimeHandlerParams struct {
	fx.In

	FanoutUC usecase.FanoutUsecase
	Logger   *slog.Logger
}

// RealtimeHandler relays a user's fan-out events over a websocket
type RealtimeHandler struct {
	fanoutUC usecase.FanoutUsecase
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRealtimeHandler is the constructor for RealtimeHandler
func NewRealtimeHandler(params RealtimeHandlerParams) *RealtimeHandler {
	return &RealtimeHandler{
		fanoutUC: params.FanoutUC,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger: params.Logger,
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

// Subscribe upgrades the connection and streams the user's events until either side closes
func (h *RealtimeHandler) Subscribe(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_ERROR", "email is required")
	}

	ctx := c.Request().Context()
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	sub, err := h.fanoutUC.Subscribe(ctx, email)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", slog.Any("error", err))

		return nil
	}
	defer conn.Close()

	logger.Info("Realtime session opened")

	acks := make(chan []byte, 4)
	done := make(chan struct{})
	go h.readPump(conn, acks, done)

	h.writePump(conn, sub.Messages(), acks, done)
	logger.Info("Realtime session closed")

	return nil
}

// readPump answers heartbeats; it is the only reader of conn.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, acks chan<- []byte, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg clientMessage
		if json.Unmarshal(payload, &msg) != nil || msg.Type != "heartbeat" {
			continue
		}

		ack, _ := json.Marshal(map[string]string{
			"type":      "heartbeat_ack",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		select {
		case acks <- ack:
		default:
		}
	}
}

// writePump is the only writer of conn.
func (h *RealtimeHandler) writePump(conn *websocket.Conn, events <-chan []byte, acks <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		var msg []byte
		select {
		case <-done:
			return
		case payload, ok := <-events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			msg = payload
		case msg = <-acks:
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
