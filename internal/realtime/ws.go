package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cambio-network/exchange_layer/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsTransport adapts a gorilla websocket connection to the Transport
// interface with a buffered outbound queue drained by a write pump.
type wsTransport struct {
	ws   *websocket.Conn
	send chan []byte
}

func (t *wsTransport) Send(data []byte) error {
	select {
	case t.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (t *wsTransport) Close() error {
	return t.ws.Close()
}

// Server terminates websocket connections and feeds their frames to the hub.
type Server struct {
	hub             *Hub
	log             *logging.Logger
	upgrader        websocket.Upgrader
	sendBuffer      int
	maxMessageBytes int64
}

// NewServer creates the websocket endpoint handler.
func NewServer(hub *Hub, log *logging.Logger, sendBuffer, maxMessageBytes int) *Server {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if maxMessageBytes <= 0 {
		maxMessageBytes = 8192
	}
	return &Server{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer:      sendBuffer,
		maxMessageBytes: int64(maxMessageBytes),
	}
}

// ServeHTTP upgrades the connection. A token passed on the query string is
// verified before the upgrade so auth failures reject the handshake with 401;
// without one the client must send an authenticate frame as its first
// message.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	transport := &wsTransport{ws: ws, send: make(chan []byte, s.sendBuffer)}
	client := NewClient(transport)
	go s.writePump(transport)

	if token != "" {
		if err := s.hub.Authenticate(r.Context(), client, token); err != nil {
			s.log.WithError(err).Warn("handshake authentication failed")
			_ = client.sendEvent(EventAuthError, map[string]string{"message": "authentication failed"})
			// Give the write pump a moment to flush the rejection.
			time.Sleep(50 * time.Millisecond)
			ws.Close()
			return
		}
	}

	s.readPump(r, client, transport)
}

func (s *Server) readPump(r *http.Request, client *Client, transport *wsTransport) {
	defer func() {
		s.hub.Disconnect(client)
		transport.ws.Close()
	}()

	transport.ws.SetReadLimit(s.maxMessageBytes)
	transport.ws.SetReadDeadline(time.Now().Add(pongWait))
	transport.ws.SetPongHandler(func(string) error {
		transport.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := transport.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).WithField("connection_id", client.ID()).Debug("socket read error")
			}
			return
		}
		s.hub.HandleFrame(r.Context(), client, data)
	}
}

func (s *Server) writePump(transport *wsTransport) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		transport.ws.Close()
	}()

	for {
		select {
		case message, ok := <-transport.send:
			transport.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				transport.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := transport.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			transport.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := transport.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
