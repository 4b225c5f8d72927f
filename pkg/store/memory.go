package store

import (
	"sync"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

// MemoryStore is a simple in-memory implementation, intended for dev/demo
// and as the fallback when no durable backend is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	nodes      map[string]model.NodeRecord
	paths      map[string]model.PathInfo
	identities map[string]model.IdentityRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:      make(map[string]model.NodeRecord),
		paths:      make(map[string]model.PathInfo),
		identities: make(map[string]model.IdentityRecord),
	}
}

func (m *MemoryStore) UpsertNode(n model.NodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.nodes[n.Hash]; ok && n.LastSeen < old.LastSeen {
		// last_seen never moves backwards
		n.LastSeen = old.LastSeen
	}
	m.nodes[n.Hash] = n
	return nil
}

func (m *MemoryStore) GetNode(hash string) (model.NodeRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[hash]
	return n, ok, nil
}

func (m *MemoryStore) ListNodes() ([]model.NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.NodeRecord, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryStore) DeleteNodesBefore(cutoff int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for hash, n := range m.nodes {
		if n.LastSeen < cutoff {
			delete(m.nodes, hash)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) UpsertPath(hash string, info model.PathInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[hash] = info
	return nil
}

func (m *MemoryStore) ListPaths() (map[string]model.PathInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.PathInfo, len(m.paths))
	for k, v := range m.paths {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) UpsertIdentity(hash string, rec model.IdentityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.identities[hash]; ok {
		rec.CreatedAt = old.CreatedAt
	}
	m.identities[hash] = rec
	return nil
}

func (m *MemoryStore) GetIdentity(hash string) (model.IdentityRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.identities[hash]
	return rec, ok, nil
}

func (m *MemoryStore) Close() error { return nil }
