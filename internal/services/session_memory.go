package services

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deltaforge/smartdine/pkg/models"
)

// DefaultSessionID is the sentinel session used when the caller supplies no
// session id.
const DefaultSessionID = "default"

// SessionRecord is a snapshot of one session's rolling history. The four
// sequences are capped at the configured history window; City is
// last-write-wins.
type SessionRecord struct {
	Queries  []string
	Moods    []string
	Cuisines []string
	Items    []string
	City     string
}

type sessionEntry struct {
	mu  sync.Mutex
	rec SessionRecord
}

// SessionMemory is the bounded per-session history store. Sessions are
// created lazily on first update and evicted least-recently-used once the
// capacity is reached, so the map cannot grow without bound across the
// process lifetime.
type SessionMemory struct {
	mu       sync.Mutex // guards session creation
	sessions *lru.Cache[string, *sessionEntry]
	window   int
}

func NewSessionMemory(capacity, window int) (*SessionMemory, error) {
	sessions, err := lru.New[string, *sessionEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &SessionMemory{sessions: sessions, window: window}, nil
}

// Get returns a snapshot of the session's history, or a zero record for an
// unknown session. The snapshot is safe to read while later updates land.
func (sm *SessionMemory) Get(sessionID string) SessionRecord {
	entry, ok := sm.sessions.Get(sessionID)
	if !ok {
		return SessionRecord{}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return SessionRecord{
		Queries:  append([]string(nil), entry.rec.Queries...),
		Moods:    append([]string(nil), entry.rec.Moods...),
		Cuisines: append([]string(nil), entry.rec.Cuisines...),
		Items:    append([]string(nil), entry.rec.Items...),
		City:     entry.rec.City,
	}
}

// Update records one served recommendation: query and mood are appended to
// their bounded sequences, the city is overwritten, and each result item
// contributes its cuisine and item name (skipping empties). The whole update
// is atomic per session.
func (sm *SessionMemory) Update(sessionID, query string, results []models.ScoredItem, mood, city string) {
	entry := sm.getOrCreate(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.rec.Queries = sm.appendBounded(entry.rec.Queries, query)
	entry.rec.Moods = sm.appendBounded(entry.rec.Moods, mood)
	entry.rec.City = city

	for _, result := range results {
		if result.Cuisine != "" {
			entry.rec.Cuisines = sm.appendBounded(entry.rec.Cuisines, result.Cuisine)
		}
		if result.ItemName != "" {
			entry.rec.Items = sm.appendBounded(entry.rec.Items, result.ItemName)
		}
	}
}

// Len reports the number of live sessions.
func (sm *SessionMemory) Len() int {
	return sm.sessions.Len()
}

func (sm *SessionMemory) getOrCreate(sessionID string) *sessionEntry {
	if entry, ok := sm.sessions.Get(sessionID); ok {
		return entry
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if entry, ok := sm.sessions.Get(sessionID); ok {
		return entry
	}
	entry := &sessionEntry{}
	sm.sessions.Add(sessionID, entry)
	return entry
}

// appendBounded appends and evicts from the front once past the window.
func (sm *SessionMemory) appendBounded(seq []string, value string) []string {
	seq = append(seq, value)
	if len(seq) > sm.window {
		seq = seq[len(seq)-sm.window:]
	}
	return seq
}
