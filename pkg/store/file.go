package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

const (
	nodesFile      = "nodes.json"
	pathsFile      = "paths.json"
	identitiesFile = "identities.json"
)

// FileStore keeps everything in memory and rewrites one JSON document per
// concern on every mutation. Files are read wholesale at startup; a missing
// or corrupt file degrades to an empty initial state.
type FileStore struct {
	dir string

	mu         sync.RWMutex
	nodes      map[string]model.NodeRecord
	paths      map[string]model.PathInfo
	identities map[string]model.IdentityRecord
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f := &FileStore{
		dir:        dir,
		nodes:      make(map[string]model.NodeRecord),
		paths:      make(map[string]model.PathInfo),
		identities: make(map[string]model.IdentityRecord),
	}
	loadJSON(filepath.Join(dir, nodesFile), &f.nodes)
	loadJSON(filepath.Join(dir, pathsFile), &f.paths)
	loadJSON(filepath.Join(dir, identitiesFile), &f.identities)
	return f, nil
}

// loadJSON fills dst from path, leaving dst untouched when the file is
// missing or unreadable.
func loadJSON(path string, dst interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: read %s failed: %v", path, err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("store: %s corrupt, starting empty: %v", path, err)
	}
}

func saveJSON(path string, src interface{}) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *FileStore) UpsertNode(n model.NodeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.nodes[n.Hash]; ok && n.LastSeen < old.LastSeen {
		n.LastSeen = old.LastSeen
	}
	f.nodes[n.Hash] = n
	return saveJSON(filepath.Join(f.dir, nodesFile), f.nodes)
}

func (f *FileStore) GetNode(hash string) (model.NodeRecord, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.nodes[hash]
	return n, ok, nil
}

func (f *FileStore) ListNodes() ([]model.NodeRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.NodeRecord, 0, len(f.nodes))
	for _, n := range f.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (f *FileStore) DeleteNodesBefore(cutoff int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for hash, n := range f.nodes {
		if n.LastSeen < cutoff {
			delete(f.nodes, hash)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, saveJSON(filepath.Join(f.dir, nodesFile), f.nodes)
}

func (f *FileStore) UpsertPath(hash string, info model.PathInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[hash] = info
	return saveJSON(filepath.Join(f.dir, pathsFile), f.paths)
}

func (f *FileStore) ListPaths() (map[string]model.PathInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]model.PathInfo, len(f.paths))
	for k, v := range f.paths {
		out[k] = v
	}
	return out, nil
}

func (f *FileStore) UpsertIdentity(hash string, rec model.IdentityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.identities[hash]; ok {
		rec.CreatedAt = old.CreatedAt
	}
	f.identities[hash] = rec
	return saveJSON(filepath.Join(f.dir, identitiesFile), f.identities)
}

func (f *FileStore) GetIdentity(hash string) (model.IdentityRecord, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.identities[hash]
	return rec, ok, nil
}

func (f *FileStore) Close() error { return nil }
