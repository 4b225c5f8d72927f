package model

// NodeRecord is the persisted best-effort view of a destination: the last
// name it announced and when it was last heard from.
type NodeRecord struct {
	Hash     string `json:"hash"`
	Name     string `json:"name"`
	LastSeen int64  `json:"last_seen"`
}
