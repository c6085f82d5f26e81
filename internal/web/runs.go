package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"fidelize/internal/ingest"
)

// defaultRunTTL is how long finished run artifacts stay downloadable.
const defaultRunTTL = 30 * time.Minute

// runEntry holds the artifacts of one completed ingestion run.
type runEntry struct {
	ID        uuid.UUID
	FileName  string
	Result    *ingest.Result
	Parts     []ingest.Part
	Rejected  []ingest.Part
	CreatedAt time.Time
}

// runRegistry keeps completed runs in memory so their exports can be fetched
// after the ingest response returns. Entries expire after the TTL.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*runEntry
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

func newRunRegistry(ttl time.Duration) *runRegistry {
	r := &runRegistry{
		runs: make(map[uuid.UUID]*runEntry),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

func (r *runRegistry) add(entry *runEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[entry.ID] = entry
}

func (r *runRegistry) get(id uuid.UUID) (*runEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[id]
	return entry, ok
}

func (r *runRegistry) stop() {
	r.once.Do(func() { close(r.done) })
}

// cleanupLoop evicts expired runs every minute until stop is called.
func (r *runRegistry) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

func (r *runRegistry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.runs {
		if now.Sub(entry.CreatedAt) > r.ttl {
			delete(r.runs, id)
		}
	}
}
