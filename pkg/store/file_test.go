package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

func TestFileStore_MissingFilesStartEmpty(t *testing.T) {
	t.Parallel()

	f, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	nodes, err := f.ListNodes()
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("nodes=%d, want 0", len(nodes))
	}
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, nodesFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	nodes, _ := f.ListNodes()
	if len(nodes) != 0 {
		t.Fatalf("nodes=%d, want 0 (corrupt file degrades to empty)", len(nodes))
	}
}

func TestFileStore_WriteThroughRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := f.UpsertNode(model.NodeRecord{Hash: "aa", Name: "node-a", LastSeen: 100}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if err := f.UpsertPath("aa", model.PathInfo{Hops: 3, NextHop: "bb", UpdatedAt: 100}); err != nil {
		t.Fatalf("UpsertPath: %v", err)
	}
	if err := f.UpsertIdentity("cc", model.IdentityRecord{PublicKey: "a2V5", CreatedAt: 100, UpdatedAt: 100}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}

	// every mutation lands on disk immediately
	reloaded, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	n, ok, _ := reloaded.GetNode("aa")
	if !ok || n.Name != "node-a" || n.LastSeen != 100 {
		t.Fatalf("node=%+v ok=%v", n, ok)
	}
	paths, _ := reloaded.ListPaths()
	if paths["aa"].Hops != 3 || paths["aa"].NextHop != "bb" {
		t.Fatalf("path=%+v", paths["aa"])
	}
	rec, ok, _ := reloaded.GetIdentity("cc")
	if !ok || rec.PublicKey != "a2V5" {
		t.Fatalf("identity=%+v ok=%v", rec, ok)
	}
}

func TestFileStore_LastSeenNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	f, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_ = f.UpsertNode(model.NodeRecord{Hash: "aa", Name: "a", LastSeen: 200})
	_ = f.UpsertNode(model.NodeRecord{Hash: "aa", Name: "renamed", LastSeen: 100})

	n, _, _ := f.GetNode("aa")
	if n.LastSeen != 200 {
		t.Fatalf("last_seen=%d, want 200", n.LastSeen)
	}
	if n.Name != "renamed" {
		t.Fatalf("name=%q, want latest name", n.Name)
	}
}

func TestFileStore_DeleteNodesBeforePersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_ = f.UpsertNode(model.NodeRecord{Hash: "old", Name: "old", LastSeen: 10})
	_ = f.UpsertNode(model.NodeRecord{Hash: "fresh", Name: "fresh", LastSeen: 1000})

	removed, err := f.DeleteNodesBefore(500)
	if err != nil {
		t.Fatalf("DeleteNodesBefore: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}

	reloaded, _ := NewFileStore(dir)
	if _, ok, _ := reloaded.GetNode("old"); ok {
		t.Fatalf("expired node survived the persisted cleanup")
	}
	n, ok, _ := reloaded.GetNode("fresh")
	if !ok || n.LastSeen != 1000 {
		t.Fatalf("fresh node lost: %+v ok=%v", n, ok)
	}

	removed, err = f.DeleteNodesBefore(500)
	if err != nil {
		t.Fatalf("DeleteNodesBefore (noop): %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed=%d on second pass, want 0", removed)
	}
}

func TestMemoryStore_DeleteNodesBefore(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	_ = m.UpsertNode(model.NodeRecord{Hash: "old", LastSeen: 10})
	_ = m.UpsertNode(model.NodeRecord{Hash: "fresh", LastSeen: 1000})

	removed, err := m.DeleteNodesBefore(500)
	if err != nil {
		t.Fatalf("DeleteNodesBefore: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}
	nodes, _ := m.ListNodes()
	if len(nodes) != 1 || nodes[0].Hash != "fresh" {
		t.Fatalf("nodes=%+v", nodes)
	}
}
