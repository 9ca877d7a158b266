package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// cleanupWait is how long the hub gets to process a leave or disconnect
const cleanupWait = 100 * time.Millisecond

// startTestServer spins up an httptest.Server with a Hub and returns
// the server, its WebSocket URL, and a cleanup func. db may be nil.
func startTestServer(t *testing.T, db *DB) (*httptest.Server, string, func()) {
	t.Helper()
	srv, wsURL, _, cleanup := startTestHub(t, testConfig(), db)
	return srv, wsURL, cleanup
}

func startTestHub(t *testing.T, cfg Config, db *DB) (*httptest.Server, string, *Hub, func()) {
	t.Helper()

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	jsDir := filepath.Join(tmpDir, "js")
	os.MkdirAll(jsDir, 0o755)
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)
	os.WriteFile(filepath.Join(jsDir, "main.js"), []byte("// test"), 0o644)

	hub := NewHub(cfg, db)
	go hub.Run()

	mux := SetupRoutes(hub, tmpDir)
	srv := httptest.NewServer(mux)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	return srv, wsURL, hub, func() {
		srv.Close()
		hub.Close()
	}
}

// openTestDB opens a fresh database in a temp dir
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readEnvelope reads one message from the WebSocket. Binary messages are
// msgpack-encoded GameState and come back as a state envelope.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if msgType == websocket.BinaryMessage {
		var gs GameState
		if err := msgpack.Unmarshal(raw, &gs); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return Envelope{T: MsgState, Data: gs}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

// readJSON reads the next JSON message, skipping state broadcasts.
func readJSON(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	for {
		if env := readEnvelope(t, conn); env.T != MsgState {
			return env
		}
	}
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	env := Envelope{T: msgType, Data: data}
	raw, _ := json.Marshal(env)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// dataMap extracts the Data field as map[string]interface{}.
func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// createAndJoin creates a session then joins it. Returns the session ID.
func createAndJoin(t *testing.T, conn *websocket.Conn, name, sname string) string {
	t.Helper()
	sendMsg(t, conn, "create", map[string]string{"name": name, "sname": sname})
	created := readJSON(t, conn)
	if created.T != MsgCreated {
		t.Fatalf("expected created, got %s", created.T)
	}
	sid := dataMap(t, created)["sid"].(string)

	sendMsg(t, conn, "join", map[string]string{"name": name, "sid": sid})
	joined := readJSON(t, conn)
	if joined.T != MsgJoined {
		t.Fatalf("expected joined, got %s", joined.T)
	}
	if welcome := readJSON(t, conn); welcome.T != MsgWelcome {
		t.Fatalf("expected welcome, got %s", welcome.T)
	}
	return sid
}

// postJSON posts a JSON body with an optional bearer token
func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// ---------- UUID generation tests ----------

func TestGenerateUUIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := GenerateUUID()
		if !uuidRegex.MatchString(id) {
			t.Errorf("GenerateUUID() = %q, does not match UUID v4 format", id)
		}
	}
}

func TestGenerateUUIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		if seen[id] {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = true
	}
}

// ---------- SPA routing ----------

func TestSPARoutingRoot(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control: no-cache, got %q", cc)
	}
}

func TestSPARoutingUUIDPath(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	uuid := GenerateUUID()
	resp, err := http.Get(srv.URL + "/" + uuid)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET /%s status = %d, want 200", uuid, resp.StatusCode)
	}
	buf := make([]byte, 100)
	n, _ := resp.Body.Read(buf)
	if body := string(buf[:n]); !strings.Contains(body, "<html>") {
		t.Errorf("UUID path should serve index.html, got %q", body)
	}
}

func TestSPARoutingStaticFiles(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/js/main.js")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET /js/main.js status = %d, want 200", resp.StatusCode)
	}
}

func TestSPARoutingNonUUIDPath(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("GET /not-a-uuid status = %d, want 404", resp.StatusCode)
	}
}

func TestNoStaticRoutesWithoutClientDir(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	srv := httptest.NewServer(SetupRoutes(hub, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("GET / without a client dir = %d, want 404", resp.StatusCode)
	}
}

// ---------- Session check protocol ----------

func TestCheckSessionExists(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c1 := dialWS(t, wsURL)
	defer c1.Close()
	sid := createAndJoin(t, c1, "Marine", "Outpost")

	c2 := dialWS(t, wsURL)
	defer c2.Close()
	sendMsg(t, c2, "check", map[string]string{"sid": sid})

	checked := readJSON(t, c2)
	if checked.T != MsgChecked {
		t.Fatalf("expected checked, got %s", checked.T)
	}
	d := dataMap(t, checked)
	if d["exists"] != true {
		t.Error("expected exists=true")
	}
	if d["sid"] != sid {
		t.Errorf("expected sid=%s, got %s", sid, d["sid"])
	}
	if d["name"] != "Outpost" {
		t.Errorf("expected name=Outpost, got %v", d["name"])
	}
	if d["players"].(float64) != 1 {
		t.Errorf("expected 1 player, got %v", d["players"])
	}
}

func TestCheckSessionNotExists(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	fakeSID := GenerateUUID()
	sendMsg(t, c, "check", map[string]string{"sid": fakeSID})

	checked := readJSON(t, c)
	if checked.T != MsgChecked {
		t.Fatalf("expected checked, got %s", checked.T)
	}
	d := dataMap(t, checked)
	if d["exists"] != false {
		t.Error("expected exists=false for non-existent session")
	}
	if d["sid"] != fakeSID {
		t.Errorf("expected sid=%s, got %v", fakeSID, d["sid"])
	}
}

// ---------- Join flow ----------

func TestJoinViaSessionID(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c1 := dialWS(t, wsURL)
	defer c1.Close()
	sid := createAndJoin(t, c1, "Alice", "Bunker")

	c2 := dialWS(t, wsURL)
	defer c2.Close()
	sendMsg(t, c2, "join", map[string]string{"name": "Bob", "sid": sid})
	joinedMsg := readJSON(t, c2)
	if joinedMsg.T != MsgJoined {
		t.Fatalf("expected joined, got %s", joinedMsg.T)
	}
	if joinSID := dataMap(t, joinedMsg)["sid"].(string); joinSID != sid {
		t.Errorf("expected to join session %s, got %s", sid, joinSID)
	}

	welcome := readJSON(t, c2)
	if welcome.T != MsgWelcome {
		t.Fatalf("expected welcome, got %s", welcome.T)
	}
	d := dataMap(t, welcome)
	if !uuidRegex.MatchString(d["id"].(string)) {
		t.Errorf("welcome id %v is not a uuid", d["id"])
	}
	if d["mid"].(float64) <= 0 {
		t.Errorf("welcome marine id = %v", d["mid"])
	}
}

func TestJoinSameSessionTwice(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()
	sid := createAndJoin(t, c, "Twice", "Again")

	sendMsg(t, c, "join", map[string]string{"name": "Twice", "sid": sid})
	if env := readJSON(t, c); env.T != MsgError {
		t.Fatalf("expected error, got %s", env.T)
	}
}

func TestJoinNonExistentSession(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "join", map[string]string{"name": "Lost", "sid": GenerateUUID()})
	if errMsg := readJSON(t, c); errMsg.T != MsgError {
		t.Fatalf("expected error, got %s", errMsg.T)
	}
}

// ---------- Session create + leave lifecycle ----------

func TestCreateAndLeaveSession(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()
	sid := createAndJoin(t, c, "Solo", "TempBase")

	c2 := dialWS(t, wsURL)
	defer c2.Close()
	sendMsg(t, c2, "check", map[string]string{"sid": sid})
	if dataMap(t, readJSON(t, c2))["exists"] != true {
		t.Fatal("session should exist")
	}

	sendMsg(t, c, "leave", nil)
	time.Sleep(cleanupWait)

	sendMsg(t, c2, "check", map[string]string{"sid": sid})
	if dataMap(t, readJSON(t, c2))["exists"] != false {
		t.Error("session should be cleaned up after last player leaves")
	}
}

// ---------- Session list ----------

func TestListSessions(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "list", nil)
	listMsg := readJSON(t, c)
	if listMsg.T != MsgSessions {
		t.Fatalf("expected sessions, got %s", listMsg.T)
	}
	raw, _ := json.Marshal(listMsg.Data)
	var sessions []SessionInfo
	json.Unmarshal(raw, &sessions)
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(sessions))
	}

	c2 := dialWS(t, wsURL)
	defer c2.Close()
	createAndJoin(t, c2, "P1", "Base1")

	sendMsg(t, c, "list", nil)
	raw2, _ := json.Marshal(readJSON(t, c).Data)
	var sessions2 []SessionInfo
	json.Unmarshal(raw2, &sessions2)
	if len(sessions2) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions2))
	}
	if sessions2[0].Name != "Base1" {
		t.Errorf("expected session name Base1, got %s", sessions2[0].Name)
	}
	if sessions2[0].Players != 1 {
		t.Errorf("expected 1 player, got %d", sessions2[0].Players)
	}
}

// ---------- Game state broadcasts ----------

func TestGameStateBroadcasts(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()
	createAndJoin(t, c, "Tester", "StateTest")

	var state Envelope
	for i := 0; i < 10; i++ {
		if state = readEnvelope(t, c); state.T == MsgState {
			break
		}
	}
	if state.T != MsgState {
		t.Fatalf("expected state broadcast, got %s", state.T)
	}
	gs := state.Data.(GameState)
	if gs.Tick == 0 {
		t.Error("state should carry the tick")
	}
	if len(gs.Marines) != 1 || gs.Marines[0].Name != "Tester" {
		t.Errorf("marines = %+v", gs.Marines)
	}
	if gs.Base.MaxHP != 1000 || len(gs.Structures) == 0 {
		t.Errorf("state missing the base or the map")
	}
}

// ---------- Input handling over WS ----------

func TestInputHandling(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()
	createAndJoin(t, c, "Inputter", "InputTest")

	sendMsg(t, c, "input", ClientInput{MX: 500, MY: 500, DX: 1, Fire: true})

	// binary input: aim (300, 400), move left, fire + reload, slot 1
	bin := []byte{0x01, 0x01, 0x2C, 0x01, 0x90, 0xFF, 0x00, inputFire | inputReload, 1}
	if err := c.WriteMessage(websocket.BinaryMessage, bin); err != nil {
		t.Fatalf("write binary input: %v", err)
	}

	// the game keeps broadcasting
	for i := 0; i < 5; i++ {
		if env := readEnvelope(t, c); env.T == MsgState {
			return
		}
	}
	t.Fatal("no state after input")
}

func TestBuyWithoutStore(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "buy", BuyMsg{Item: ItemTurret})
	if env := readJSON(t, c); env.T != MsgError {
		t.Fatalf("buy outside a session: got %s, want error", env.T)
	}

	createAndJoin(t, c, "Shopper", "Shop")
	sendMsg(t, c, "buy", BuyMsg{Item: ItemTurret})
	env := readJSON(t, c)
	if env.T != MsgError {
		t.Fatalf("buy with no open store: got %s, want error", env.T)
	}
	if msg := dataMap(t, env)["msg"]; msg != ErrStoreClosed.Error() {
		t.Errorf("error = %v", msg)
	}
}

func TestInputBeforeJoin(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "input", ClientInput{MX: 100, MY: 100, Fire: true})

	sendMsg(t, c, "list", nil)
	if env := readJSON(t, c); env.T != MsgSessions {
		t.Fatalf("expected sessions, got %s", env.T)
	}
}

// ---------- Multiple players in same session ----------

func TestMultiplePlayersInSession(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c1 := dialWS(t, wsURL)
	defer c1.Close()
	sid := createAndJoin(t, c1, "Alpha", "MultiTest")

	for _, name := range []string{"Beta", "Gamma"} {
		c := dialWS(t, wsURL)
		defer c.Close()
		sendMsg(t, c, "join", map[string]string{"name": name, "sid": sid})
		_ = readJSON(t, c) // joined
		_ = readJSON(t, c) // welcome
	}

	c4 := dialWS(t, wsURL)
	defer c4.Close()
	sendMsg(t, c4, "check", map[string]string{"sid": sid})
	if d := dataMap(t, readJSON(t, c4)); d["players"].(float64) != 3 {
		t.Errorf("expected 3 players, got %v", d["players"])
	}
}

func TestDefaultPlayerName(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "create", map[string]string{"name": "", "sname": ""})
	created := readJSON(t, c)
	if created.T != MsgCreated {
		t.Fatalf("expected created, got %s", created.T)
	}
	sid := dataMap(t, created)["sid"].(string)

	sendMsg(t, c, "join", map[string]string{"name": "", "sid": sid})
	_ = readJSON(t, c) // joined
	if welcome := readJSON(t, c); welcome.T != MsgWelcome {
		t.Fatalf("expected welcome, got %s", welcome.T)
	}

	sendMsg(t, c, "list", nil)
	raw, _ := json.Marshal(readJSON(t, c).Data)
	var sessions []SessionInfo
	json.Unmarshal(raw, &sessions)
	if len(sessions) != 1 || sessions[0].Name != "Last Stand" {
		t.Errorf("sessions = %+v, want the default name", sessions)
	}
}

func TestLeaveWithoutJoining(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()

	sendMsg(t, c, "leave", nil)
	sendMsg(t, c, "list", nil)
	if env := readJSON(t, c); env.T != MsgSessions {
		t.Fatalf("expected sessions, got %s", env.T)
	}
}

func TestDisconnectCleansUpSession(t *testing.T) {
	_, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	c1 := dialWS(t, wsURL)
	sid := createAndJoin(t, c1, "Temp", "TempBase")
	c1.Close()
	time.Sleep(cleanupWait)

	c2 := dialWS(t, wsURL)
	defer c2.Close()
	sendMsg(t, c2, "check", map[string]string{"sid": sid})
	if dataMap(t, readJSON(t, c2))["exists"] != false {
		t.Error("session should be cleaned up after disconnect")
	}
}

// ---------- Hub and session manager ----------

func TestHubClientCount(t *testing.T) {
	_, wsURL, hub, cleanup := startTestHub(t, testConfig(), nil)
	defer cleanup()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	c := dialWS(t, wsURL)
	sendMsg(t, c, "list", nil)
	readJSON(t, c)
	if !eventually(func() bool { return hub.ClientCount() == 1 }) || hub.TotalConns() != 1 {
		t.Errorf("clients=%d conns=%d, want 1/1", hub.ClientCount(), hub.TotalConns())
	}
	c.Close()
	if !eventually(func() bool { return hub.ClientCount() == 0 && hub.TotalConns() == 0 }) {
		t.Errorf("clients=%d conns=%d after close", hub.ClientCount(), hub.TotalConns())
	}
}

// eventually polls cond until it holds or a second passes
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestHubConnectionLimit(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	for i := 0; i < maxConnsPerIP; i++ {
		if !hub.CanAccept("10.0.0.1") {
			t.Fatalf("rejected connection %d", i)
		}
		hub.TrackConnect("10.0.0.1")
	}
	if hub.CanAccept("10.0.0.1") {
		t.Error("accepted past the per-IP limit")
	}
	if !hub.CanAccept("10.0.0.2") {
		t.Error("limit leaked to another IP")
	}
	hub.TrackDisconnect("10.0.0.1")
	if !hub.CanAccept("10.0.0.1") {
		t.Error("disconnect did not free a slot")
	}
}

func TestSessionManager(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 2
	sm := NewSessionManager(cfg, nil, nil)

	a := sm.CreateSession("A")
	b := sm.CreateSession("B")
	if a == nil || b == nil {
		t.Fatal("CreateSession returned nil under the limit")
	}
	defer b.Game.Stop()
	if sm.CreateSession("C") != nil {
		t.Error("created a session past MaxSessions")
	}
	if !uuidRegex.MatchString(a.ID) {
		t.Errorf("session ID %q is not a valid UUID v4", a.ID)
	}
	if got := sm.GetSession(a.ID); got == nil || got.Name != "A" {
		t.Errorf("GetSession = %+v", got)
	}
	if sm.GetSession("nonexistent") != nil {
		t.Error("expected nil for non-existent session")
	}
	if len(sm.ListSessions()) != 2 || sm.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", sm.Count())
	}

	pid, _, _ := a.Game.AddPlayer("TestMarine")
	sm.RemovePlayer(a.ID, pid)
	if sm.GetSession(a.ID) != nil {
		t.Error("expected session to be removed after last player leaves")
	}
}

// ---------- HTTP API ----------

func TestStatsWithoutDB(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Leaderboard == nil || stats.Matches == nil {
		t.Error("leaderboard and matches should be empty lists, not null")
	}
}

func TestStatsWithDB(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RecordMatch(MatchSummary{Waves: 4, Duration: 90, Kills: 12,
		Marines: []MarineResult{{Name: "Hicks", Kills: 12, Deaths: 1}}}); err != nil {
		t.Fatal(err)
	}
	srv, _, cleanup := startTestServer(t, db)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/api/stats?order=wave")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats StatsResponse
	json.NewDecoder(resp.Body).Decode(&stats)
	if len(stats.Leaderboard) != 1 || stats.Leaderboard[0].Name != "Hicks" || stats.Leaderboard[0].BestWave != 4 {
		t.Errorf("leaderboard = %+v", stats.Leaderboard)
	}
	if len(stats.Matches) != 1 || stats.Matches[0].Kills != 12 {
		t.Errorf("matches = %+v", stats.Matches)
	}
}

func TestOperatorWave(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig()
	cfg.Auth.AdminUser = "admin"
	cfg.Auth.AdminPassword = "hunter2"
	srv, wsURL, _, cleanup := startTestHub(t, cfg, db)
	defer cleanup()

	c := dialWS(t, wsURL)
	defer c.Close()
	sid := createAndJoin(t, c, "Ripley", "Hadley")

	// no token
	resp := postJSON(t, srv.URL+"/api/wave", "", SpawnRequest{SessionID: sid, Count: 5})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wave without token = %d, want 401", resp.StatusCode)
	}

	// bad password
	resp = postJSON(t, srv.URL+"/api/login", "", LoginRequest{Username: "admin", Password: "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/login", "", LoginRequest{Username: "admin", Password: "hunter2"})
	var login map[string]string
	json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	token := login["token"]
	if resp.StatusCode != 200 || token == "" {
		t.Fatalf("login = %d %v", resp.StatusCode, login)
	}

	resp = postJSON(t, srv.URL+"/api/wave", token, SpawnRequest{SessionID: sid, Count: 5})
	var out map[string]int
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if resp.StatusCode != 200 || out["spawned"] != 5 {
		t.Errorf("wave = %d %v", resp.StatusCode, out)
	}

	// the wave is announced to the session
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env := readJSON(t, c); env.T == MsgWave {
			if d := dataMap(t, env); d["count"].(float64) != 5 {
				t.Errorf("wave msg = %v", d)
			}
			break
		}
	}

	resp = postJSON(t, srv.URL+"/api/spawn", token, SpawnRequest{SessionID: sid, Count: 3, X: 100, Y: 100})
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out["spawned"] != 3 {
		t.Errorf("spawn = %v", out)
	}

	for _, bad := range []SpawnRequest{
		{SessionID: sid, Count: 0},
		{SessionID: sid, Count: maxSpawnPerRequest + 1},
	} {
		resp = postJSON(t, srv.URL+"/api/spawn", token, bad)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("count %d = %d, want 400", bad.Count, resp.StatusCode)
		}
	}
	resp = postJSON(t, srv.URL+"/api/wave", token, SpawnRequest{SessionID: GenerateUUID(), Count: 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session = %d, want 404", resp.StatusCode)
	}
}

func TestOperatorAPIDisabledWithoutDB(t *testing.T) {
	srv, _, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp := postJSON(t, srv.URL+"/api/login", "", LoginRequest{Username: "admin", Password: "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("login without db = %d, want 503", resp.StatusCode)
	}
}

func TestQRCode(t *testing.T) {
	srv, wsURL, cleanup := startTestServer(t, nil)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != qrSize {
		t.Errorf("qr width = %d, want %d", b.Dx(), qrSize)
	}

	resp, _ = http.Get(srv.URL + "/qr?sid=" + GenerateUUID())
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("qr for unknown session = %d, want 404", resp.StatusCode)
	}

	c := dialWS(t, wsURL)
	defer c.Close()
	sid := createAndJoin(t, c, "Vasquez", "QR")
	resp, _ = http.Get(srv.URL + "/qr?sid=" + sid)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("qr for live session = %d, want 200", resp.StatusCode)
	}
}

// ---------- Util functions ----------

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}
	for _, tt := range tests {
		got := Clamp(tt.v, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("Clamp(%f, %f, %f) = %f, want %f", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(0, 0, 3, 4); d != 5 {
		t.Errorf("Distance(0,0,3,4) = %f, want 5", d)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{-90, 270},
		{725, 5},
	}
	for _, tt := range tests {
		if got := NormalizeDegrees(tt.in); got != tt.want {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHeadingTo(t *testing.T) {
	tests := []struct {
		x, y, want float64
	}{
		{0, -10, 0},  // up
		{10, 0, 90},  // +x
		{0, 10, 180}, // down
		{-10, 0, 270},
	}
	for _, tt := range tests {
		got := HeadingTo(0, 0, tt.x, tt.y)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("HeadingTo(%v,%v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
