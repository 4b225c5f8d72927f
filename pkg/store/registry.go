package store

import (
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

// Registry stamps node updates with the current time and garbage-collects
// stale records on an interval. It is a thin policy layer over a Store.
type Registry struct {
	store Store
	clk   clock.Clock
}

func NewRegistry(s Store, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{store: s, clk: clk}
}

// UpdateNode upserts the node with a fresh last-seen timestamp. Persistence
// failures are best-effort: logged, never surfaced to announce processing.
func (r *Registry) UpdateNode(hash, name string) {
	if name == "" {
		name = "Anonymous"
	}
	rec := model.NodeRecord{Hash: hash, Name: name, LastSeen: r.clk.Now().Unix()}
	if err := r.store.UpsertNode(rec); err != nil {
		log.Printf("registry: upsert node %s failed: %v", hash, err)
	}
}

// Nodes returns all persisted node records.
func (r *Registry) Nodes() ([]model.NodeRecord, error) {
	return r.store.ListNodes()
}

// CleanupExpired removes nodes last seen longer than maxAge ago and returns
// how many were removed.
func (r *Registry) CleanupExpired(maxAge time.Duration) int {
	cutoff := r.clk.Now().Add(-maxAge).Unix()
	removed, err := r.store.DeleteNodesBefore(cutoff)
	if err != nil {
		log.Printf("registry: cleanup failed: %v", err)
		return 0
	}
	if removed > 0 {
		log.Printf("registry: removed %d expired nodes", removed)
	}
	return removed
}

// RunJanitor garbage-collects expired nodes every interval until stop is
// closed. Run it in its own goroutine.
func (r *Registry) RunJanitor(interval, maxAge time.Duration, stop <-chan struct{}) {
	ticker := r.clk.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.CleanupExpired(maxAge)
		}
	}
}
