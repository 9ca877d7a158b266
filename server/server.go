package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const (
	maxSpawnPerRequest = 200
	leaderboardLimit   = 10
	recentMatchesLimit = 10
	qrSize             = 256
	statsDays          = 7
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoginRequest is the body of /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SpawnRequest is the body of /api/spawn and /api/wave
type SpawnRequest struct {
	SessionID string  `json:"sid"`
	Count     int     `json:"count"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// StatsResponse is served by /api/stats
type StatsResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Matches     []MatchRow         `json:"matches"`
	Events      map[string]int     `json:"events,omitempty"`
	Purchases   []ItemAnalytics    `json:"purchases,omitempty"`
	Kills       []DayCount         `json:"kills,omitempty"`
	Peers       int                `json:"peers"`
	Sessions    int                `json:"sessions"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// SetupRoutes configures HTTP routes. clientDir may be empty to serve no
// static files.
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: serve index.html for root and UUID paths
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("POST /api/login", hub.handleLogin)
	mux.HandleFunc("POST /api/spawn", hub.requireOperator(hub.handleSpawn))
	mux.HandleFunc("POST /api/wave", hub.requireOperator(hub.handleWave))
	mux.HandleFunc("GET /api/stats", hub.handleStats)
	mux.HandleFunc("GET /qr", hub.handleQR)

	return mux
}

func (h *Hub) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "operator login disabled")
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	_, token, err := h.auth.Login(req.Username, req.Password, extractIP(r))
	switch {
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		log.Printf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.analytics != nil {
		h.analytics.Track(EvtOperatorLogin, "", nil)
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// requireOperator rejects requests without a valid bearer token
func (h *Hub) requireOperator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			writeError(w, http.StatusServiceUnavailable, "operator API disabled")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, _, err := h.auth.ValidateToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// spawnTarget decodes a spawn request and resolves its session
func (h *Hub) spawnTarget(w http.ResponseWriter, r *http.Request) (*Session, SpawnRequest, bool) {
	var req SpawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return nil, req, false
	}
	if req.Count < 1 || req.Count > maxSpawnPerRequest {
		writeError(w, http.StatusBadRequest, "count must be 1-"+strconv.Itoa(maxSpawnPerRequest))
		return nil, req, false
	}
	sess := h.sessions.GetSession(req.SessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, req, false
	}
	return sess, req, true
}

func (h *Hub) handleSpawn(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := h.spawnTarget(w, r)
	if !ok {
		return
	}
	n := sess.Game.SpawnZombies(req.Count, req.X, req.Y)
	writeJSON(w, http.StatusOK, map[string]int{"spawned": n})
}

func (h *Hub) handleWave(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := h.spawnTarget(w, r)
	if !ok {
		return
	}
	n := sess.Game.SpawnWave(req.Count)
	writeJSON(w, http.StatusOK, map[string]int{"spawned": n})
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Leaderboard: []LeaderboardEntry{},
		Matches:     []MatchRow{},
		Sessions:    h.sessions.Count(),
		Peers:       h.ClientCount(),
	}
	if h.db != nil {
		lb, err := h.db.GetLeaderboard(r.URL.Query().Get("order"), leaderboardLimit)
		if err != nil {
			log.Printf("leaderboard: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if lb != nil {
			resp.Leaderboard = lb
		}
		matches, err := h.db.RecentMatches(recentMatchesLimit)
		if err != nil {
			log.Printf("recent matches: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if matches != nil {
			resp.Matches = matches
		}
	}
	if h.analytics != nil {
		if counts, err := h.analytics.EventCounts(statsDays); err == nil {
			resp.Events = counts
		}
		if items, err := h.analytics.PopularPurchases(leaderboardLimit); err == nil {
			resp.Purchases = items
		}
		if days, err := h.analytics.KillHistory(statsDays); err == nil {
			resp.Kills = days
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQR serves a PNG QR code linking to the server, or to one session
// when sid is given.
func (h *Hub) handleQR(w http.ResponseWriter, r *http.Request) {
	link := strings.TrimRight(h.cfg.Server.PublicURL, "/")
	if sid := r.URL.Query().Get("sid"); sid != "" {
		if h.sessions.GetSession(sid) == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		link += "/" + sid
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("qr: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
