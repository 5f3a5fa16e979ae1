package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/logging"
)

// writeWait bounds a single outbound frame write.
const writeWait = 10 * time.Second

// StreamConn is one open conversation stream. Writes are serialized, so it
// can be handed to the conversation session as its Sender.
type StreamConn struct {
	ConnID      string
	CallSid     string
	BusinessID  string
	Socket      *websocket.Conn
	ConnectedAt time.Time

	mu     sync.Mutex
	closed bool
}

// NewStreamConn wraps an upgraded connection for callSid.
func NewStreamConn(conn *websocket.Conn, callSid, businessID string) *StreamConn {
	return &StreamConn{
		ConnID:      uuid.New().String(),
		CallSid:     callSid,
		BusinessID:  businessID,
		Socket:      conn,
		ConnectedAt: time.Now(),
	}
}

// Send writes one outbound message. Thread-safe.
func (c *StreamConn) Send(msg agent.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrStreamClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Socket.WriteJSON(msg)
}

// ReadInbound reads the next message. A frame that does not decode is
// returned as agent.Malformed so the session can answer it in order.
func (c *StreamConn) ReadInbound() (agent.Inbound, error) {
	_, data, err := c.Socket.ReadMessage()
	if err != nil {
		return agent.Inbound{}, err
	}
	return DecodeInbound(data), nil
}

// Close sends a close frame and closes the connection.
func (c *StreamConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.Socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(time.Second))
	return c.Socket.Close()
}

// StreamRegistry tracks open streams.
type StreamRegistry struct {
	mu      sync.RWMutex
	streams map[string]*StreamConn // connID → stream
	log     *logging.Logger
}

// NewStreamRegistry creates an empty registry.
func NewStreamRegistry(log *logging.Logger) *StreamRegistry {
	return &StreamRegistry{
		streams: make(map[string]*StreamConn),
		log:     log,
	}
}

// Add registers an open stream. It reports false, leaving the registry
// unchanged, when the call already has one.
func (r *StreamRegistry) Add(c *StreamConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, open := range r.streams {
		if open.CallSid == c.CallSid {
			r.log.Warn().Str("callSid", c.CallSid).Msg("duplicate stream rejected")
			return false
		}
	}
	r.streams[c.ConnID] = c
	r.log.Info().Str("connId", c.ConnID).Str("callSid", c.CallSid).Msg("stream connected")
	return true
}

// Remove unregisters a stream by connection ID.
func (r *StreamRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, connID)
	r.log.Info().Str("connId", connID).Msg("stream disconnected")
}

// ByCall returns the open stream for a call, if any.
func (r *StreamRegistry) ByCall(callSid string) (*StreamConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.streams {
		if c.CallSid == callSid {
			return c, true
		}
	}
	return nil, false
}

// Count returns the number of open streams.
func (r *StreamRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// CloseAll closes every open stream. Their read loops then end the sessions.
func (r *StreamRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.streams {
		c.Close()
		delete(r.streams, id)
	}
}
