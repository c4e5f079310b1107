package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// TODO: only for dev
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient implements port.Conn over a websocket. Envelopes are the
// same JSON objects as on the TCP transport, one per message instead of
// one per line, so websocket and TCP peers interoperate.
type WSClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *WSClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *WSClient) SendSignal(sig protocol.Request) error {
	return c.writeJSON(sig)
}

func (c *WSClient) SendResponse(res protocol.Response) error {
	return c.writeJSON(res)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &WSClient{conn: conn}

	l := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	l.Info().Msg("New websocket peer connected")

	var identity domain.Identity

	defer func() {
		if identity != "" {
			h.Router.Cleanup(identity)
		}
		conn.Close()
		l.Info().Str("identity", identity.String()).Msg("Websocket peer disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}

		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil || req.Type == "" {
			l.Warn().Msg("Dropping malformed request")
			if client.SendResponse(protocol.Fail("malformed request")) != nil {
				break
			}
			continue
		}

		res, id := h.Router.Handle(r.Context(), client, identity, req)
		identity = id
		if err := client.SendResponse(res); err != nil {
			break
		}
	}
}
