package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	relayBuffer = 16
	writeWait   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // debugger pages are served from anywhere
	},
}

// relayClient is one subscriber. send carries encoded dumps and is closed
// when the client is dropped.
type relayClient struct {
	send chan []byte
}

// Relay broadcasts every published board to the connected debug clients,
// over websocket or server-sent events. A client that cannot keep up is
// dropped rather than blocking the publisher.
type Relay struct {
	mu      sync.Mutex
	clients map[*relayClient]struct{}
	latest  []byte
	board   [][]int
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{clients: make(map[*relayClient]struct{})}
}

// Publish encodes dump once and queues it for every client. It never
// blocks.
func (r *Relay) Publish(dump [][]int) {
	msg, err := json.Marshal(dump)
	if err != nil {
		log.Err(err).Msg("relay-encode-failed")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = msg
	r.board = dump
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			delete(r.clients, c)
			close(c.send)
			log.Warn().Msg("relay-client-dropped")
		}
	}
}

// Latest returns the last published dump, or nil.
func (r *Relay) Latest() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board
}

// Clients returns the number of subscribers.
func (r *Relay) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// subscribe registers a client, primed with the latest board.
func (r *Relay) subscribe() *relayClient {
	c := &relayClient{send: make(chan []byte, relayBuffer)}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest != nil {
		c.send <- r.latest
	}
	r.clients[c] = struct{}{}
	return c
}

// unsubscribe removes c unless Publish already dropped it.
func (r *Relay) unsubscribe(c *relayClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request and streams boards to the client. Messages
// from the client are only logged.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Err(err).Msg("relay-upgrade-failed")
		return
	}
	c := r.subscribe()
	log.Info().Str("remote", req.RemoteAddr).Msg("relay-client-connected")

	go r.writePump(conn, c)
	r.readPump(conn, c)
}

func (r *Relay) writePump(conn *websocket.Conn, c *relayClient) {
	defer conn.Close()
	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

func (r *Relay) readPump(conn *websocket.Conn, c *relayClient) {
	defer func() {
		r.unsubscribe(c)
		conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		log.Info().Str("message", string(data)).Msg("relay-message")
	}
}
