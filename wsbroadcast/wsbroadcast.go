// Package wsbroadcast fans decoded advertisements and process failures out
// to interactive WebSocket clients, the out-of-core consumer named in
// SPEC_FULL §1/§6.
package wsbroadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/madpsy/blesdr/ble"
	"github.com/madpsy/blesdr/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireMessage is the JSON shape sent to every connected client.
type wireMessage struct {
	Kind    string `json:"kind"`
	FreqMHz int    `json:"freq_mhz,omitempty"`

	Packet      *wirePacket `json:"packet,omitempty"`
	ProcessFail string      `json:"process_fail,omitempty"`
	Error       string      `json:"error,omitempty"`
}

type wirePacket struct {
	AccessAddr uint32 `json:"access_address"`
	Address    string `json:"address,omitempty"`
	PDUType    string `json:"pdu_type,omitempty"`
}

func toWireMessage(r stream.StreamResult) wireMessage {
	switch r.Kind {
	case stream.ResultPacket:
		return wireMessage{Kind: "packet", FreqMHz: r.Packet.FreqMHz, Packet: toWirePacket(r.Packet)}
	case stream.ResultProcessFail:
		return wireMessage{
			Kind:        "process_fail",
			FreqMHz:     r.ProcessFail.FreqMHz,
			ProcessFail: r.ProcessFail.Kind.String(),
		}
	default:
		return wireMessage{Kind: "error", Error: r.Err.Error()}
	}
}

func toWirePacket(b *ble.Bluetooth) *wirePacket {
	wp := &wirePacket{AccessAddr: b.AccessAddr}
	if b.Advertisement != nil {
		wp.Address = b.Advertisement.Address.String()
		wp.PDUType = b.Advertisement.PDUType.String()
	}
	return wp
}

// client is one connected WebSocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan wireMessage
}

// Broadcaster accepts HTTP upgrades and relays every StreamResult it is fed
// to all currently connected clients. A message for a client whose send
// buffer is full is dropped rather than allowed to stall the broadcaster;
// the client itself stays connected.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{clients: make(map[*client]struct{})}
}

// ServeHTTP lets a Broadcaster be mounted directly as an http.Handler.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.HandleWebSocket(w, r)
}

// HandleWebSocket upgrades the HTTP connection and registers it as a
// subscriber until the connection closes.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsbroadcast: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan wireMessage, 256)}
	b.addClient(c)
	defer b.removeClient(c)

	go c.writeLoop()
	c.readLoop()
}

func (b *Broadcaster) addClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
	close(c.send)
	c.conn.Close()
}

func (c *client) writeLoop() {
	for msg := range c.send {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("wsbroadcast: marshal: %v", err)
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop drains and discards inbound frames purely to detect
// disconnects; this broadcaster is one-directional.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish relays r to every connected client. For a client whose send
// buffer is full, this message is dropped rather than allowed to block the
// publisher, mirroring
// the fan-out's own drop-over-block policy (§5).
func (b *Broadcaster) Publish(r stream.StreamResult) {
	msg := toWireMessage(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("wsbroadcast: dropping message for slow client")
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
