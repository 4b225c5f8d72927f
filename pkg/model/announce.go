package model

// Announce captures a single destination advertisement received from the
// network. The live store keeps at most one Announce per destination hash.
type Announce struct {
	DestinationHash string `json:"destinationHash"`
	IdentityHash    string `json:"identityHash,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`
	Aspect          string `json:"aspect"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}
