package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin   = "join"
	MsgLeave  = "leave"
	MsgInput  = "input"
	MsgCreate = "create" // create session
	MsgList   = "list"   // list sessions
	MsgCheck  = "check"  // check if session exists
	MsgBuy    = "buy"    // purchase from the open store
)

// Server -> Client message types
const (
	MsgState     = "state"
	MsgWelcome   = "welcome"
	MsgDeath     = "death"
	MsgKill      = "kill"
	MsgSessions  = "sessions"
	MsgJoined    = "joined"
	MsgCreated   = "created"
	MsgError     = "error"
	MsgChecked   = "checked"
	MsgStore     = "store"     // store opened, carries the catalog
	MsgPurchased = "purchased" // purchase went through
	MsgWave      = "wave"
	MsgBaseLost  = "base_lost" // match over, world restarts
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D is decoded by the handler for T
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput is the control state a client sends each time it changes
type ClientInput struct {
	MX     float64 `json:"mx"` // aim X (world coords)
	MY     float64 `json:"my"` // aim Y (world coords)
	DX     float64 `json:"dx"` // move direction, -1..1
	DY     float64 `json:"dy"`
	Fire   bool    `json:"fire"`
	Use    bool    `json:"use"`
	Place  bool    `json:"place"`
	Reload bool    `json:"reload"`
	Slot   int     `json:"slot,omitempty"`
}

// JoinMsg is sent when player wants to join a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg is sent when player wants to create a session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// BuyMsg asks the store the marine has open for an item
type BuyMsg struct {
	Item string `json:"item"`
}

// MarineState is broadcast per marine
type MarineState struct {
	ID      int32   `msgpack:"id"`
	Name    string  `msgpack:"n"`
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	A       float64 `msgpack:"a"` // heading degrees
	HP      int     `msgpack:"hp"`
	MaxHP   int     `msgpack:"mhp"`
	Credits int     `msgpack:"cr"`
	Kills   int     `msgpack:"k"`
	Weapon  string  `msgpack:"w,omitempty"`
	Clip    int     `msgpack:"c"`
	Ammo    int     `msgpack:"am"`
	Alive   bool    `msgpack:"al"`
}

// ZombieState is broadcast per zombie
type ZombieState struct {
	ID int32   `msgpack:"id"`
	X  float64 `msgpack:"x"`
	Y  float64 `msgpack:"y"`
	A  float64 `msgpack:"a"`
	HP int     `msgpack:"hp"`
}

// TurretState is broadcast per turret
type TurretState struct {
	ID     int32   `msgpack:"id"`
	Owner  int32   `msgpack:"o"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	A      float64 `msgpack:"a"`
	Placed bool    `msgpack:"p"`
	HP     int     `msgpack:"hp"`
	Ammo   int     `msgpack:"am"`
}

// StructureState covers walls, objects, barricades and stores
type StructureState struct {
	ID   int32   `msgpack:"id"`
	Kind string  `msgpack:"k"`
	X    float64 `msgpack:"x"`
	Y    float64 `msgpack:"y"`
	W    float64 `msgpack:"w"`
	H    float64 `msgpack:"h"`
	HP   int     `msgpack:"hp,omitempty"`
	Open bool    `msgpack:"op,omitempty"`
}

// DropState is broadcast per drop
type DropState struct {
	ID     int32   `msgpack:"id"`
	Kind   string  `msgpack:"k"`
	Weapon string  `msgpack:"w,omitempty"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
}

// BaseState is the defended structure
type BaseState struct {
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Size  float64 `msgpack:"s"`
	HP    int     `msgpack:"hp"`
	MaxHP int     `msgpack:"mhp"`
}

// GameState is the full state broadcast, msgpack encoded
type GameState struct {
	Marines    []MarineState    `msgpack:"m"`
	Zombies    []ZombieState    `msgpack:"z"`
	Turrets    []TurretState    `msgpack:"t"`
	Structures []StructureState `msgpack:"s"`
	Drops      []DropState      `msgpack:"d"`
	Traces     []Trace          `msgpack:"tr"`
	Base       BaseState        `msgpack:"b"`
	Wave       int              `msgpack:"wv"`
	Tick       uint64           `msgpack:"tick"`
}

// WelcomeMsg is sent to a player when they join or the world restarts
type WelcomeMsg struct {
	ID       string `json:"id"`  // player handle
	MarineID int32  `json:"mid"` // entity id in state frames
}

// DeathMsg notifies a marine it died
type DeathMsg struct {
	KillerID  int32   `json:"kid"`
	RespawnIn float64 `json:"respawn"` // seconds
}

// KillMsg is broadcast when a marine or its turret kills zombies
type KillMsg struct {
	MarineID int32  `json:"mid"`
	Name     string `json:"n"`
	Count    int    `json:"c"`
}

// StoreMsg lists what the opened store sells
type StoreMsg struct {
	StoreID int32       `json:"id"`
	Items   []StoreItem `json:"items"`
}

// WaveMsg announces a new wave
type WaveMsg struct {
	Wave  int `json:"wave"`
	Count int `json:"count"`
}

// BaseLostMsg reports the finished match
type BaseLostMsg struct {
	Waves    int     `json:"waves"`
	Duration float64 `json:"duration"` // seconds
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}
