package model

// IdentityRecord stores an announced identity's public key for later link
// establishment without a fresh network recall.
type IdentityRecord struct {
	PublicKey string `json:"public_key"` // base64
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}
