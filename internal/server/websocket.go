package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/crowdsim/internal/core/events/bus"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is what a websocket client receives for every lifecycle event.
type Message struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// hub fans bus events out to websocket clients. Slow clients lose events rather than
// stall the simulation.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  log.Log
}

func newHub(logger log.Log) *hub {
	return &hub{clients: make(map[*client]struct{}), logger: logger}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(e bus.Event) error {
	payload, err := json.Marshal(Message{Type: e.Type(), Source: e.Source(), Time: e.Timestamp(), Data: e.Data()})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("client too slow, event dropped", log.String("client", c.conn.RemoteAddr().String()))
		}
	}
	return nil
}

func (i *Inspector) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	i.hub.add(c)
	i.logger.Debug("client connected", log.String("client", conn.RemoteAddr().String()))

	go i.writeLoop(c)
	i.readLoop(c)
}

// readLoop only watches for the client going away; the stream is one-way.
func (i *Inspector) readLoop(c *client) {
	defer i.hub.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			i.logger.Debug("client disconnected", log.Error(err))
			return
		}
	}
}

func (i *Inspector) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			i.logger.Debug("websocket write failed", log.Error(err))
			i.hub.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
