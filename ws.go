package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API is token-authenticated; the websocket carries no mutations
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected spectator of a partie. Outbound frames go
// through a buffered channel; a client that cannot keep up is dropped
// rather than blocking the broadcast.
type wsClient struct {
	hub      *wsHub
	conn     *websocket.Conn
	send     chan []byte
	partieID uint
}

type wsMessage struct {
	partieID uint
	payload  []byte
}

// wsHub fans session-state updates out to every client watching a partie.
type wsHub struct {
	rooms      map[uint]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan wsMessage
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms:      make(map[uint]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan wsMessage, 64),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.partieID] == nil {
				h.rooms[c.partieID] = make(map[*wsClient]bool)
			}
			h.rooms[c.partieID][c] = true
		case c := <-h.unregister:
			if room, ok := h.rooms[c.partieID]; ok {
				if _, in := room[c]; in {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.partieID)
					}
				}
			}
		case m := <-h.broadcast:
			for c := range h.rooms[m.partieID] {
				select {
				case c.send <- m.payload:
				default: // slow consumer, drop it
					delete(h.rooms[m.partieID], c)
					close(c.send)
				}
			}
		}
	}
}

var hub = newWSHub()

// broadcastPartie pushes the session state to every client of a partie.
// Called from handlers after each mutation; encoding failures are logged,
// never surfaced to the mutating request.
func broadcastPartie(partieID uint, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws encode failed (partie=%d): %v", partieID, err)
		return
	}
	select {
	case hub.broadcast <- wsMessage{partieID: partieID, payload: raw}:
	default:
		log.Printf("ws broadcast queue full, dropping update (partie=%d)", partieID)
	}
}

// readPump drains the connection so pongs and the close handshake are
// processed. Clients send no application messages.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error (partie=%d): %v", c.partieID, err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// partieWSHandler upgrades to a websocket and streams session state for one
// partie. The current state is pushed immediately on connect so a client
// joining mid-game does not wait for the next call.
func partieWSHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed (partie=%d): %v", p.ID, err)
		return
	}
	client := &wsClient{hub: hub, conn: conn, send: make(chan []byte, 16), partieID: p.ID}
	hub.register <- client

	go client.writePump()
	go client.readPump()

	if s, err := sessionForPartie(p); err == nil {
		if raw, err := json.Marshal(partieState(p, s)); err == nil {
			select {
			case client.send <- raw:
			default:
			}
		}
	}
}
