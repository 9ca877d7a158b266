package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtMatchStart    = "match_start"
	EvtMatchEnd      = "match_end"
	EvtZombieKill    = "zombie_kill"
	EvtMarineDeath   = "marine_death"
	EvtPurchase      = "purchase"
	EvtPickUp        = "pickup"
	EvtWave          = "wave"
	EvtSessionStart  = "session_start"
	EvtSessionEnd    = "session_end"
	EvtOperatorLogin = "operator_login"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent is one queued row of analytics_events
type AnalyticsEvent struct {
	Type      string
	SessionID string
	Data      string // JSON object, empty when the event carries nothing
	Timestamp time.Time
}

// Analytics queues game events and writes them to sqlite in batches from a
// single background goroutine, so the game loop never waits on the disk.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	mu              sync.RWMutex
	concurrentPeers int
	activeSessions  int
}

// NewAnalytics starts the background writer. db may be nil, in which case
// events are accepted and discarded.
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event. data is stored as a JSON object; events are
// dropped when the queue is full.
func (a *Analytics) Track(evtType, sessionID string, data map[string]any) {
	evt := AnalyticsEvent{Type: evtType, SessionID: sessionID, Timestamp: time.Now().UTC()}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Printf("analytics: encode %s: %v", evtType, err)
			return
		}
		evt.Data = string(raw)
	}
	select {
	case a.events <- evt:
	default:
	}
}

func (a *Analytics) SetConcurrentPeers(n int) {
	a.mu.Lock()
	a.concurrentPeers = n
	a.mu.Unlock()
}

func (a *Analytics) SetActiveSessions(n int) {
	a.mu.Lock()
	a.activeSessions = n
	a.mu.Unlock()
}

// GetLiveMetrics returns connected peers and running sessions
func (a *Analytics) GetLiveMetrics() (int, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.concurrentPeers, a.activeSessions
}

// Stop flushes what is queued and shuts the writer down
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	flush := func() {
		if len(batch) > 0 {
			a.flush(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case evt := <-a.events:
			if batch = append(batch, evt); len(batch) >= analyticsBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// the channel stays open: sessions still running may call Track
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
					continue
				default:
				}
				break
			}
			flush()
			return
		}
	}
}

// flush writes one batch in a single transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, session_id, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		_, err := stmt.Exec(evt.Type,
			sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""},
			sql.NullString{String: evt.Data, Valid: evt.Data != ""},
			evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			log.Printf("analytics: insert %s: %v", evt.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("analytics: commit: %v", err)
	}
}

// --- queries for /api/stats ---

// queryCounts runs a query returning (label, count) rows
func (a *Analytics) queryCounts(query string, args ...any) ([]labelCount, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []labelCount
	for rows.Next() {
		var lc labelCount
		if err := rows.Scan(&lc.label, &lc.count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

type labelCount struct {
	label string
	count int
}

// EventCounts returns how often each event type fired in the last days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	rows, err := a.queryCounts(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type`, days)
	if rows == nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.label] = r.count
	}
	return out, err
}

// PopularPurchases ranks store items by how often they were bought
func (a *Analytics) PopularPurchases(limit int) ([]ItemAnalytics, error) {
	rows, err := a.queryCounts(`
		SELECT COALESCE(json_extract(data, '$.item_id'), 'unknown') AS item, COUNT(*) AS cnt
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
		GROUP BY item ORDER BY cnt DESC, item LIMIT ?`, EvtPurchase, limit)
	var out []ItemAnalytics
	for _, r := range rows {
		out = append(out, ItemAnalytics{ItemID: r.label, Count: r.count})
	}
	return out, err
}

// KillHistory sums zombie kills per day over the last days
func (a *Analytics) KillHistory(days int) ([]DayCount, error) {
	rows, err := a.queryCounts(`
		SELECT date(created_at) AS day, COALESCE(SUM(json_extract(data, '$.count')), 0)
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data) AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY day ORDER BY day`, EvtZombieKill, days)
	var out []DayCount
	for _, r := range rows {
		out = append(out, DayCount{Day: r.label, Count: r.count})
	}
	return out, err
}

// ItemAnalytics holds purchase count per item
type ItemAnalytics struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// DayCount holds a count for a specific day
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
