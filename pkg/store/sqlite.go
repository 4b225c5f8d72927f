package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes(hash TEXT PRIMARY KEY, name TEXT, last_seen INTEGER);
CREATE TABLE IF NOT EXISTS paths(hash TEXT PRIMARY KEY, hops INTEGER, next_hop TEXT, updated_at INTEGER);
CREATE TABLE IF NOT EXISTS identities(hash TEXT PRIMARY KEY, public_key TEXT, created_at INTEGER, updated_at INTEGER);
`

// SQLiteStore persists the registry in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpsertNode(n model.NodeRecord) error {
	_, err := s.db.Exec(`INSERT INTO nodes(hash, name, last_seen) VALUES(?,?,?)
		ON CONFLICT(hash) DO UPDATE SET name=excluded.name, last_seen=MAX(nodes.last_seen, excluded.last_seen)`,
		n.Hash, n.Name, n.LastSeen)
	return err
}

func (s *SQLiteStore) GetNode(hash string) (model.NodeRecord, bool, error) {
	var n model.NodeRecord
	err := s.db.QueryRow(`SELECT hash, name, last_seen FROM nodes WHERE hash=?`, hash).
		Scan(&n.Hash, &n.Name, &n.LastSeen)
	if err == sql.ErrNoRows {
		return model.NodeRecord{}, false, nil
	}
	if err != nil {
		return model.NodeRecord{}, false, err
	}
	return n, true, nil
}

func (s *SQLiteStore) ListNodes() ([]model.NodeRecord, error) {
	rows, err := s.db.Query(`SELECT hash, name, last_seen FROM nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.NodeRecord
	for rows.Next() {
		var n model.NodeRecord
		if err := rows.Scan(&n.Hash, &n.Name, &n.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteNodesBefore(cutoff int64) (int, error) {
	res, err := s.db.Exec(`DELETE FROM nodes WHERE last_seen < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) UpsertPath(hash string, info model.PathInfo) error {
	_, err := s.db.Exec(`INSERT INTO paths(hash, hops, next_hop, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(hash) DO UPDATE SET hops=excluded.hops, next_hop=excluded.next_hop, updated_at=excluded.updated_at`,
		hash, info.Hops, info.NextHop, info.UpdatedAt)
	return err
}

func (s *SQLiteStore) ListPaths() (map[string]model.PathInfo, error) {
	rows, err := s.db.Query(`SELECT hash, hops, next_hop, updated_at FROM paths`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.PathInfo)
	for rows.Next() {
		var hash string
		var info model.PathInfo
		if err := rows.Scan(&hash, &info.Hops, &info.NextHop, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out[hash] = info
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertIdentity(hash string, rec model.IdentityRecord) error {
	_, err := s.db.Exec(`INSERT INTO identities(hash, public_key, created_at, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(hash) DO UPDATE SET public_key=excluded.public_key, updated_at=excluded.updated_at`,
		hash, rec.PublicKey, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetIdentity(hash string) (model.IdentityRecord, bool, error) {
	var rec model.IdentityRecord
	err := s.db.QueryRow(`SELECT public_key, created_at, updated_at FROM identities WHERE hash=?`, hash).
		Scan(&rec.PublicKey, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.IdentityRecord{}, false, nil
	}
	if err != nil {
		return model.IdentityRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
