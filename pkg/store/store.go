package store

import "github.com/Sudo-Ivan/Ren-Browser/pkg/model"

// Store defines the persistence layer for the node registry, path
// diagnostics, and the identity cache. Backends: memory, JSON files,
// sqlite, and Consul KV (build tag consul).
type Store interface {
	UpsertNode(model.NodeRecord) error
	GetNode(hash string) (model.NodeRecord, bool, error)
	ListNodes() ([]model.NodeRecord, error)
	// DeleteNodesBefore removes nodes last seen strictly before cutoff and
	// reports how many were removed. Backends persist only when the count
	// is non-zero.
	DeleteNodesBefore(cutoff int64) (int, error)

	UpsertPath(hash string, info model.PathInfo) error
	ListPaths() (map[string]model.PathInfo, error)

	UpsertIdentity(hash string, rec model.IdentityRecord) error
	GetIdentity(hash string) (model.IdentityRecord, bool, error)

	Close() error
}

// NewMemory is a helper to construct the in-memory implementation without
// importing it directly.
func NewMemory() Store {
	return NewMemoryStore()
}
