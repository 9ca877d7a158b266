package main

import (
	"errors"
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrSessionFull   = errors.New("session full")
	ErrUnknownPlayer = errors.New("player not in session")
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// player links a client handle to the marine it controls. The marine id
// changes when the world restarts; the handle does not.
type player struct {
	name   string
	marine int32
	client Broadcaster
}

// Game runs one session's world on a ticker and fans its events out to
// clients, the database and analytics.
type Game struct {
	mu        sync.Mutex
	cfg       Config
	sessionID string
	world     *World
	players   map[string]*player
	db        *DB
	analytics *Analytics
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewGame creates a session game with a freshly laid out world. db and
// analytics may be nil.
func NewGame(cfg Config, sessionID string, db *DB, analytics *Analytics) *Game {
	g := &Game{
		cfg:       cfg,
		sessionID: sessionID,
		world:     newSessionWorld(cfg),
		players:   make(map[string]*player),
		db:        db,
		analytics: analytics,
		stop:      make(chan struct{}),
	}
	g.track(EvtMatchStart, nil)
	return g
}

func newSessionWorld(cfg Config) *World {
	w := NewWorld(cfg)
	w.Populate()
	w.SpawnRandomDrop()
	return w
}

// Run drives the world at the tick rate until Stop is called
func (g *Game) Run() {
	ticker := time.NewTicker(g.cfg.TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop. It is safe to call more than once.
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// AddPlayer spawns a marine for a new player and returns the player handle
func (g *Game) AddPlayer(name string) (string, int32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= g.cfg.Server.MaxMarines {
		return "", 0, ErrSessionFull
	}
	id := uuid.NewString()
	m := g.world.AddMarine(name)
	g.players[id] = &player{name: name, marine: m.ID}
	return id, m.ID, nil
}

// RemovePlayer removes a player and its marine
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		g.world.RemoveMarine(p.marine)
		delete(g.players, id)
	}
}

// SetClient associates a broadcaster with a player
func (g *Game) SetClient(id string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		p.client = client
	}
}

// HasPlayer reports whether a player handle belongs to this session
func (g *Game) HasPlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.players[id]
	return ok
}

// PlayerCount returns the number of players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// marine resolves a player handle to its live marine
func (g *Game) marine(id string) (*Marine, bool) {
	p, ok := g.players[id]
	if !ok {
		return nil, false
	}
	m, ok := g.world.marines[p.marine]
	return m, ok
}

// HandleInput stores a player's controls for the next frame
func (g *Game) HandleInput(id string, in ClientInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.marine(id)
	if !ok {
		return
	}
	m.SetInput(MarineInput{
		MoveX:  in.DX,
		MoveY:  in.DY,
		AimX:   in.MX,
		AimY:   in.MY,
		Fire:   in.Fire,
		Use:    in.Use,
		Place:  in.Place,
		Reload: in.Reload,
		Slot:   in.Slot,
	})
}

// Buy purchases item from the store the player's marine has open
func (g *Game) Buy(id, item string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.marine(id)
	if !ok {
		return ErrUnknownPlayer
	}
	for _, s := range g.world.stores {
		if s.Open && s.Customer == m.ID {
			return s.Purchase(g.world, m, item)
		}
	}
	return ErrStoreClosed
}

// SpawnWave spawns n zombies at the world edges
func (g *Game) SpawnWave(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.SpawnWave(n)
}

// SpawnZombies drops n zombies in a loose square around (x, y), clamped to
// the world and to MaxZombies.
func (g *Game) SpawnZombies(n int, x, y float64) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.world
	if limit := g.cfg.Server.MaxZombies; limit > 0 {
		n = min(n, limit-w.ZombieCount())
	}
	zw, zh := g.cfg.Zombie.Width, g.cfg.Zombie.Height
	side := 1
	for side*side < n {
		side++
	}
	for i := 0; i < n; i++ {
		zx := x + float64(i%side)*zw*1.5 - float64(side)*zw*0.75
		zy := y + float64(i/side)*zh*1.5 - float64(side)*zh*0.75
		zx = Clamp(zx, 0, g.cfg.World.Width-zw)
		zy = Clamp(zy, 0, g.cfg.World.Height-zh)
		w.AddZombie(zx, zy)
	}
	return max(n, 0)
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	events := g.world.Step()
	g.handleEvents(events)

	if g.world.Frame()%g.cfg.BroadcastEvery() == 0 {
		g.broadcastState()
	}
}

// handleEvents turns world events into client messages and records
func (g *Game) handleEvents(events []Event) {
	w := g.world
	for _, ev := range events {
		switch ev.Kind {
		case EventKill:
			name := ""
			if m, ok := w.marines[ev.Actor]; ok {
				name = m.Name
			}
			g.broadcastMsg(Envelope{T: MsgKill, Data: KillMsg{MarineID: ev.Actor, Name: name, Count: ev.Count}})
			g.track(EvtZombieKill, map[string]any{"marine": name, "count": ev.Count})

		case EventMarineDeath:
			if p := g.playerByMarine(ev.Target); p != nil && p.client != nil {
				p.client.SendJSON(Envelope{T: MsgDeath, Data: DeathMsg{
					KillerID:  ev.Actor,
					RespawnIn: marineRespawnSeconds,
				}})
			}
			g.track(EvtMarineDeath, map[string]any{"marine": ev.Target})

		case EventStoreOpen:
			p := g.playerByMarine(ev.Actor)
			s, ok := w.stores[ev.Target]
			if p != nil && p.client != nil && ok {
				p.client.SendJSON(Envelope{T: MsgStore, Data: StoreMsg{StoreID: s.ID, Items: s.Catalog(&g.cfg)}})
			}

		case EventPurchase:
			if p := g.playerByMarine(ev.Actor); p != nil && p.client != nil {
				p.client.SendJSON(Envelope{T: MsgPurchased, Data: StoreItem{Name: ev.Item, Price: ev.Count}})
			}
			g.track(EvtPurchase, map[string]any{"item_id": ev.Item, "price": ev.Count})

		case EventPickUp:
			g.track(EvtPickUp, map[string]any{"item": ev.Item})

		case EventWave:
			g.broadcastMsg(Envelope{T: MsgWave, Data: WaveMsg{Wave: w.Wave(), Count: ev.Count}})
			g.track(EvtWave, map[string]any{"wave": w.Wave(), "count": ev.Count})

		case EventBaseLost:
			g.endMatch()
			return
		}
	}
}

// playerByMarine finds the player controlling a marine
func (g *Game) playerByMarine(id int32) *player {
	for _, p := range g.players {
		if p.marine == id {
			return p
		}
	}
	return nil
}

// endMatch records the lost match and restarts the world with the same
// players.
func (g *Game) endMatch() {
	w := g.world
	summary := MatchSummary{
		SessionID: g.sessionID,
		Waves:     w.Wave(),
		Duration:  float64(w.Now()) / 1000,
	}
	for _, id := range slices.Sorted(maps.Keys(w.marines)) {
		m := w.marines[id]
		summary.Kills += m.Kills
		summary.Marines = append(summary.Marines, MarineResult{
			Name:    m.Name,
			Kills:   m.Kills,
			Deaths:  m.Deaths,
			Shots:   m.Shots,
			Credits: m.Credits,
		})
	}
	if g.db != nil {
		if _, err := g.db.RecordMatch(summary); err != nil {
			log.Printf("record match: %v", err)
		}
	}
	g.track(EvtMatchEnd, map[string]any{"waves": summary.Waves, "duration": summary.Duration})
	g.broadcastMsg(Envelope{T: MsgBaseLost, Data: BaseLostMsg{Waves: summary.Waves, Duration: summary.Duration}})

	g.world = newSessionWorld(g.cfg)
	for _, id := range slices.Sorted(maps.Keys(g.players)) {
		p := g.players[id]
		p.marine = g.world.AddMarine(p.name).ID
		if p.client != nil {
			p.client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{ID: id, MarineID: p.marine}})
		}
	}
	g.track(EvtMatchStart, nil)
}

// State returns the current snapshot
func (g *Game) State() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Game) snapshot() GameState {
	w := g.world
	b := w.base
	st := GameState{
		Marines:    make([]MarineState, 0, len(w.marines)),
		Zombies:    make([]ZombieState, 0, len(w.zombies)),
		Turrets:    make([]TurretState, 0, len(w.turrets)),
		Structures: make([]StructureState, 0, len(w.walls)+len(w.objects)+len(w.barricades)+len(w.stores)),
		Drops:      make([]DropState, 0, len(w.drops)),
		Traces:     w.effects.Traces(),
		Base:       BaseState{X: b.X, Y: b.Y, Size: b.W, HP: b.Health, MaxHP: b.MaxHealth},
		Wave:       w.Wave(),
		Tick:       w.Frame(),
	}
	for _, id := range slices.Sorted(maps.Keys(w.marines)) {
		st.Marines = append(st.Marines, w.marines[id].ToState())
	}
	for _, id := range slices.Sorted(maps.Keys(w.zombies)) {
		st.Zombies = append(st.Zombies, w.zombies[id].ToState())
	}
	for _, id := range slices.Sorted(maps.Keys(w.turrets)) {
		st.Turrets = append(st.Turrets, w.turrets[id].ToState())
	}
	for _, id := range slices.Sorted(maps.Keys(w.walls)) {
		wl := w.walls[id]
		st.Structures = append(st.Structures, StructureState{ID: id, Kind: "wall", X: wl.X, Y: wl.Y, W: wl.W, H: wl.H})
	}
	for _, id := range slices.Sorted(maps.Keys(w.objects)) {
		o := w.objects[id]
		st.Structures = append(st.Structures, StructureState{ID: id, Kind: "object", X: o.X, Y: o.Y, W: o.W, H: o.H})
	}
	for _, id := range slices.Sorted(maps.Keys(w.barricades)) {
		if b := w.barricades[id]; b.Placed {
			st.Structures = append(st.Structures, b.ToState())
		}
	}
	for _, id := range slices.Sorted(maps.Keys(w.stores)) {
		st.Structures = append(st.Structures, w.stores[id].ToState())
	}
	for _, id := range slices.Sorted(maps.Keys(w.drops)) {
		st.Drops = append(st.Drops, w.drops[id].ToState())
	}
	return st
}

// broadcastState sends the msgpack snapshot to every client
func (g *Game) broadcastState() {
	data, err := msgpack.Marshal(g.snapshot())
	if err != nil {
		log.Printf("marshal state: %v", err)
		return
	}
	for _, p := range g.players {
		if p.client != nil {
			p.client.SendBinary(data)
		}
	}
}

// broadcastMsg sends a message to all clients in the session
func (g *Game) broadcastMsg(msg Envelope) {
	for _, p := range g.players {
		if p.client != nil {
			p.client.SendJSON(msg)
		}
	}
}

// track forwards a gameplay event to analytics with JSON metadata
func (g *Game) track(evtType string, data map[string]any) {
	if g.analytics != nil {
		g.analytics.Track(evtType, g.sessionID, data)
	}
}
