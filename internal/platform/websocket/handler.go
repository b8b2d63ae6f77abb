package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/internal/platform/poller"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Loader builds the payload pushed as dashboard.updated.
type Loader func(ctx context.Context, psychologistID int64) (interface{}, error)

// LiveHandler serves the live dashboard socket.
type LiveHandler struct {
	hub      *Hub
	interval time.Duration
	load     Loader
	upgrader gorillawebsocket.Upgrader
	logger   zerolog.Logger
}

// NewLiveHandler creates a handler. An empty origins list or one containing
// "*" accepts any Origin.
func NewLiveHandler(hub *Hub, interval time.Duration, load Loader, origins []string, logger zerolog.Logger) *LiveHandler {
	anyOrigin := len(origins) == 0 || lo.Contains(origins, "*")
	return &LiveHandler{
		hub:      hub,
		interval: interval,
		load:     load,
		logger:   logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || lo.Contains(origins, origin)
			},
		},
	}
}

func (h *LiveHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard/live", h.HandleConnect, auth.RequireRole(auth.RolePsychologist))
}

// HandleConnect upgrades the request and streams dashboard.updated events
// until the client goes away.
func (h *LiveHandler) HandleConnect(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	topic := PsychologistTopic(sess.UserID)
	client := &Client{
		ID:    uuid.NewString(),
		Topic: topic,
		Send:  make(chan []byte, 16),
	}
	log := h.logger.With().Str("client_id", client.ID).Int64("psychologist_id", sess.UserID).Logger()

	p := poller.New(h.interval, func(ctx context.Context) (interface{}, error) {
		return h.load(ctx, sess.UserID)
	}, func(view interface{}) {
		h.push(client, Event{Type: EventDashboardUpdated, Topic: topic, Timestamp: time.Now().UTC()}, view)
	}, func(err error) {
		log.Warn().Err(err).Msg("live dashboard reload failed")
		h.push(client, Event{Type: EventDashboardError, Topic: topic, Timestamp: time.Now().UTC()},
			map[string]string{"message": "dashboard temporarily unavailable, retrying"})
	})
	client.refresh = p.Trigger

	h.hub.Register(client)
	// the socket outlives the request context
	p.Start(context.Background())
	log.Debug().Msg("live dashboard connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws, p, log)

	return nil
}

func (h *LiveHandler) push(client *Client, event Event, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: marshal payload")
		return
	}
	event.Data = data
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: marshal event")
		return
	}
	select {
	case client.Send <- msg:
	default:
	}
}

func (h *LiveHandler) readPump(client *Client, ws *gorillawebsocket.Conn, p *poller.Poller[interface{}], log zerolog.Logger) {
	defer func() {
		// stop first so nothing is sent on the closed channel
		p.Stop()
		h.hub.Unregister(client)
		ws.Close()
		log.Debug().Msg("live dashboard disconnected")
	}()

	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Action == "refresh" {
			p.Trigger()
		}
	}
}

func (h *LiveHandler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
