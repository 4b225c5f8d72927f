package model

// PathInfo records routing diagnostics learned from path responses.
type PathInfo struct {
	Hops      int    `json:"hops"`
	NextHop   string `json:"next_hop,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
}
