package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	binaryInputLen    = 9
)

// Binary input flag bits
const (
	inputFire   = 0x01
	inputUse    = 0x02
	inputPlace  = 0x04
	inputReload = 0x08
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	idMu      sync.Mutex
	playerID  string
	sessionID string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ids returns the session and player this client is attached to
func (c *Client) ids() (string, string) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return c.sessionID, c.playerID
}

func (c *Client) setIDs(sessionID, playerID string) {
	c.idMu.Lock()
	c.sessionID = sessionID
	c.playerID = playerID
	c.idMu.Unlock()
}

// game returns the session game and player handle, or nil when not joined
func (c *Client) game() (*Game, string) {
	sid, pid := c.ids()
	if sid == "" || pid == "" {
		return nil, ""
	}
	sess := c.hub.sessions.GetSession(sid)
	if sess == nil {
		return nil, ""
	}
	return sess.Game, pid
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage && len(message) == binaryInputLen && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgBuy:
		c.handleBuy(env.D)
	}
}

func cleanName(name, fallback string, limit int) string {
	if name == "" {
		name = fallback
	}
	if len(name) > limit {
		name = name[:limit]
	}
	return name
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := cleanName(msg.SessionName, "Last Stand", 30)
	sess := c.hub.sessions.CreateSession(sname)
	if sess == nil {
		c.sendError("too many active sessions")
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := cleanName(msg.Name, "Marine", maxNameLen)

	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("session not found")
		return
	}
	if sid, pid := c.ids(); sid != "" && sid != sess.ID {
		c.hub.sessions.RemovePlayer(sid, pid)
	} else if sid == sess.ID {
		c.sendError("already in this session")
		return
	}

	pid, mid, err := sess.Game.AddPlayer(name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setIDs(sess.ID, pid)
	sess.Game.SetClient(pid, c)

	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{ID: pid, MarineID: mid}})
}

// handleBinaryInput decodes a compact 9-byte input message:
// [0x01, mx_hi, mx_lo, my_hi, my_lo, dx, dy, flags, slot]
func (c *Client) handleBinaryInput(msg []byte) {
	g, pid := c.game()
	if g == nil {
		return
	}
	input := ClientInput{
		MX:     float64(uint16(msg[1])<<8 | uint16(msg[2])),
		MY:     float64(uint16(msg[3])<<8 | uint16(msg[4])),
		DX:     Clamp(float64(int8(msg[5])), -1, 1),
		DY:     Clamp(float64(int8(msg[6])), -1, 1),
		Fire:   msg[7]&inputFire != 0,
		Use:    msg[7]&inputUse != 0,
		Place:  msg[7]&inputPlace != 0,
		Reload: msg[7]&inputReload != 0,
		Slot:   int(msg[8]),
	}
	g.HandleInput(pid, input)
}

func (c *Client) handleInput(data json.RawMessage) {
	g, pid := c.game()
	if g == nil {
		return
	}
	var input ClientInput
	if err := json.Unmarshal(data, &input); err != nil {
		return
	}
	g.HandleInput(pid, input)
}

func (c *Client) handleBuy(data json.RawMessage) {
	g, pid := c.game()
	if g == nil {
		c.sendError("not in a session")
		return
	}
	var msg BuyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if err := g.Buy(pid, msg.Item); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Players: sess.Game.PlayerCount(),
	}})
}

func (c *Client) handleLeave() {
	sid, pid := c.ids()
	if sid == "" {
		return
	}
	c.hub.sessions.RemovePlayer(sid, pid)
	c.setIDs("", "")
}
