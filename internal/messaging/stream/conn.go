package stream

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
)

// frame is the wire shape shared with the server hub.
type frame struct {
	Type     string           `json:"type"`
	Room     string           `json:"room,omitempty"`
	Message  *domain.Message  `json:"message,omitempty"`
	Presence *domain.Presence `json:"presence,omitempty"`
}

// Conn implements messaging.EventStream over a websocket connection to
// the portal's /ws endpoint. It reconnects with backoff and replays the
// current room subscriptions after each reconnect; duplicate events the
// replay may cause are absorbed by the store's merge.
type Conn struct {
	url    string
	token  string
	events chan messaging.Event

	mu     sync.Mutex
	ws     *websocket.Conn
	rooms  map[string]struct{}
	closed bool
}

var _ messaging.EventStream = (*Conn)(nil)

// Dial connects to the portal event stream. The bearer token travels in
// the websocket subprotocol, matching the server's handshake.
func Dial(wsURL, token string) (*Conn, error) {
	c := &Conn{
		url:    wsURL,
		token:  token,
		events: make(chan messaging.Event, 64),
		rooms:  make(map[string]struct{}),
	}
	ws, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.ws = ws
	go c.readLoop()
	return c, nil
}

func (c *Conn) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"bearer", c.token},
	}
	ws, _, err := dialer.Dial(c.url, http.Header{})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Conn) readLoop() {
	backoff := time.Second
	for {
		c.mu.Lock()
		ws := c.ws
		closed := c.closed
		c.mu.Unlock()
		if closed {
			close(c.events)
			return
		}
		if ws == nil {
			next, err := c.dial()
			if err != nil {
				log.Printf("stream: reconnect: %v", err)
				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
			c.mu.Lock()
			c.ws = next
			for room := range c.rooms {
				_ = next.WriteJSON(frame{Type: "subscribe", Room: room})
			}
			c.mu.Unlock()
			ws = next
		}

		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			ws.Close()
			c.mu.Lock()
			if c.ws == ws {
				c.ws = nil
			}
			c.mu.Unlock()
			continue
		}

		var ev messaging.Event
		switch f.Type {
		case messaging.EventMessageNew, messaging.EventMessageUpdated:
			if f.Message == nil {
				continue
			}
			ev = messaging.Event{Type: f.Type, Message: f.Message}
		case messaging.EventPresence:
			if f.Presence == nil {
				continue
			}
			ev = messaging.Event{Type: f.Type, Presence: f.Presence}
		default:
			continue
		}

		select {
		case c.events <- ev:
		default:
			// Consumer stalled; the next history load self-heals.
			log.Printf("stream: event buffer full, dropping %s", f.Type)
		}
	}
}

// Events returns the inbound event channel.
func (c *Conn) Events() <-chan messaging.Event { return c.events }

func (c *Conn) Subscribe(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
	return c.write(frame{Type: "subscribe", Room: room})
}

func (c *Conn) Unsubscribe(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
	return c.write(frame{Type: "unsubscribe", Room: room})
}

// EmitMessage mirrors a confirmed message onto the transport.
func (c *Conn) EmitMessage(m domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(frame{Type: "message:send", Message: &m})
}

// EmitUpdate mirrors an edit or tombstone onto the transport.
func (c *Conn) EmitUpdate(m domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(frame{Type: "message:update", Message: &m})
}

// write requires c.mu held.
func (c *Conn) write(f frame) error {
	if c.ws == nil {
		return domain.ErrTransportUnavailable
	}
	if err := c.ws.WriteJSON(f); err != nil {
		c.ws.Close()
		c.ws = nil
		return domain.ErrTransportUnavailable
	}
	return nil
}

// Close tears the stream down; Events is closed once the read loop
// observes the flag.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.ws != nil {
		err := c.ws.Close()
		c.ws = nil
		return err
	}
	return nil
}
