package render

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chart-race/internal/race"
)

const (
	clientQueueSize = 16
	writeWait       = 10 * time.Second
	commandTimeout  = 5 * time.Second
	maxCommandSize  = 512
)

var (
	errNoControl = errors.New("race control is not available")
	errReadOnly  = errors.New("read-only connection")
)

// CommandSender is the part of the sequencer the hub drives.
type CommandSender interface {
	Send(ctx context.Context, cmd race.Command) (race.State, error)
}

type client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	canControl bool
}

// Hub broadcasts frames and states to websocket clients. Writes never block
// the caller: every client has its own bounded queue and writer goroutine,
// and a message for a full queue is dropped.
type Hub struct {
	transition time.Duration
	upgrader   websocket.Upgrader

	mu        sync.Mutex
	clients   map[*client]struct{}
	lastFrame []byte
	lastState []byte
	control   CommandSender
}

func NewHub(transition time.Duration) *Hub {
	return &Hub{
		transition: transition,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// SetControl wires the sequencer once it exists; the sequencer itself needs
// the hub as its renderer.
func (h *Hub) SetControl(c CommandSender) {
	h.mu.Lock()
	h.control = c
	h.mu.Unlock()
}

func (h *Hub) RenderFrame(ctx context.Context, frame race.Frame, diff race.Diff) error {
	data, err := json.Marshal(Message{Type: MessageFrame, Frame: NewFrameView(frame, diff, h.transition)})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFrame = data
	h.broadcastLocked(data)
	return nil
}

// BroadcastState has the signature of a sequencer observer.
func (h *Hub) BroadcastState(st race.State) {
	data, err := json.Marshal(Message{Type: MessageState, State: NewStateView(st)})
	if err != nil {
		log.Printf("⚠️ Hub: state marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastState = data
	h.broadcastLocked(data)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and serves the client until it goes away.
// The client may send commands.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

// ServeViewer is ServeHTTP for clients that only watch.
func (h *Hub) ServeViewer(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, canControl bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, clientQueueSize),
		canControl: canControl,
	}
	h.add(c)
	defer h.remove(c)

	go c.writeLoop()
	h.readLoop(c)
}

func (h *Hub) add(c *client) {
	hello, _ := json.Marshal(Message{Type: MessageHello, ClientID: c.id})

	h.mu.Lock()
	h.clients[c] = struct{}{}
	// Fresh queue, these cannot overflow.
	c.send <- hello
	if h.lastState != nil {
		c.send <- h.lastState
	}
	if h.lastFrame != nil {
		c.send <- h.lastFrame
	}
	count := len(h.clients)
	h.mu.Unlock()

	wsClients.Inc()
	log.Printf("🔌 WebSocket connected: %s (%d clients)", c.id, count)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		wsClients.Dec()
	}
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("🔌 WebSocket disconnected: %s (%d clients)", c.id, count)
}

func (h *Hub) broadcastLocked(data []byte) {
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			wsDropped.Inc()
		}
	}
}

func (h *Hub) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		wsDropped.Inc()
	}
}

func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxCommandSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var in ClientCommand
		if err := json.Unmarshal(data, &in); err != nil {
			h.reply(c, Message{Type: MessageError, Error: "invalid message: " + err.Error()})
			continue
		}
		h.handleCommand(c, in.Command)
	}
}

// handleCommand acknowledges with the resulting state to the sender only.
// Other clients hear about changes through BroadcastState.
func (h *Hub) handleCommand(c *client, name string) {
	if !c.canControl {
		h.reply(c, Message{Type: MessageError, Error: errReadOnly.Error()})
		return
	}
	cmd, err := race.ParseCommand(name)
	if err != nil {
		h.reply(c, Message{Type: MessageError, Error: err.Error()})
		return
	}

	h.mu.Lock()
	control := h.control
	h.mu.Unlock()
	if control == nil {
		h.reply(c, Message{Type: MessageError, Error: errNoControl.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	st, err := control.Send(ctx, cmd)
	if err != nil {
		h.reply(c, Message{Type: MessageError, Error: err.Error()})
		return
	}
	h.reply(c, Message{Type: MessageState, State: NewStateView(st)})
}

func (c *client) writeLoop() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write error (%s): %v", c.id, err)
			c.conn.Close()
			// Keep draining until the hub closes the queue.
			for range c.send {
			}
			return
		}
	}
}
