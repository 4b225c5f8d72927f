//go:build consul

package consul

import (
	"encoding/json"
	"fmt"
	"strings"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

// Store is a Consul-backed registry implementation for multi-instance
// deployments sharing one node/identity view.
type Store struct {
	cli *consulapi.Client
}

const (
	nodePrefix     = "ren-browser/nodes/"
	pathPrefix     = "ren-browser/paths/"
	identityPrefix = "ren-browser/identities/"
)

func NewStore(addr string) *Store {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, _ := consulapi.NewClient(cfg) // ignore error for build; runtime will report
	return &Store{cli: cli}
}

func (s *Store) put(key string, v interface{}) error {
	if s.cli == nil {
		return fmt.Errorf("consul client not configured")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.cli.KV().Put(&consulapi.KVPair{Key: key, Value: b}, nil)
	return err
}

func (s *Store) UpsertNode(n model.NodeRecord) error {
	return s.put(nodePrefix+n.Hash, n)
}

func (s *Store) GetNode(hash string) (model.NodeRecord, bool, error) {
	if s.cli == nil {
		return model.NodeRecord{}, false, fmt.Errorf("consul client not configured")
	}
	kv, _, err := s.cli.KV().Get(nodePrefix+hash, nil)
	if err != nil || kv == nil {
		return model.NodeRecord{}, false, err
	}
	var n model.NodeRecord
	if err := json.Unmarshal(kv.Value, &n); err != nil {
		return model.NodeRecord{}, false, err
	}
	return n, true, nil
}

func (s *Store) ListNodes() ([]model.NodeRecord, error) {
	if s.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	pairs, _, err := s.cli.KV().List(nodePrefix, nil)
	if err != nil {
		return nil, err
	}
	var out []model.NodeRecord
	for _, p := range pairs {
		var n model.NodeRecord
		if err := json.Unmarshal(p.Value, &n); err == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) DeleteNodesBefore(cutoff int64) (int, error) {
	nodes, err := s.ListNodes()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, n := range nodes {
		if n.LastSeen < cutoff {
			if _, err := s.cli.KV().Delete(nodePrefix+n.Hash, nil); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) UpsertPath(hash string, info model.PathInfo) error {
	return s.put(pathPrefix+hash, info)
}

func (s *Store) ListPaths() (map[string]model.PathInfo, error) {
	if s.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	pairs, _, err := s.cli.KV().List(pathPrefix, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.PathInfo)
	for _, p := range pairs {
		var info model.PathInfo
		if err := json.Unmarshal(p.Value, &info); err == nil {
			out[strings.TrimPrefix(p.Key, pathPrefix)] = info
		}
	}
	return out, nil
}

func (s *Store) UpsertIdentity(hash string, rec model.IdentityRecord) error {
	return s.put(identityPrefix+hash, rec)
}

func (s *Store) GetIdentity(hash string) (model.IdentityRecord, bool, error) {
	if s.cli == nil {
		return model.IdentityRecord{}, false, fmt.Errorf("consul client not configured")
	}
	kv, _, err := s.cli.KV().Get(identityPrefix+hash, nil)
	if err != nil || kv == nil {
		return model.IdentityRecord{}, false, err
	}
	var rec model.IdentityRecord
	if err := json.Unmarshal(kv.Value, &rec); err != nil {
		return model.IdentityRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Close() error { return nil }
