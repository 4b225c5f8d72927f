// Package rns defines the contract the browser core consumes from the
// external Reticulum implementation. The real transport, cryptography, and
// wire formats live behind these interfaces; the core never touches them
// directly.
package rns

import "time"

// Aspects understood by the browser.
const (
	AspectNodes    = "nomadnetwork.node"
	AspectMessages = "lxmf.delivery"
)

// LinkStatus mirrors the lifecycle the underlying session reports.
type LinkStatus int

const (
	LinkPending LinkStatus = iota
	LinkActive
	LinkClosed
)

func (s LinkStatus) String() string {
	switch s {
	case LinkPending:
		return "pending"
	case LinkActive:
		return "active"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Identity is an opaque handle to a destination's cryptographic identity.
// PublicKey returns the raw key bytes for persistence.
type Identity interface {
	Hash() []byte
	PublicKey() []byte
}

// AnnounceHandler receives announce events for one aspect. Implementations
// must tolerate being called from the transport's own goroutine.
type AnnounceHandler func(destinationHash []byte, identity Identity, appData []byte)

// Transport exposes path discovery, identity recall, and announce
// subscription. Path discovery is asynchronous: RequestPath kicks off a
// resolution whose outcome is observed by polling HasPath.
type Transport interface {
	HasPath(destinationHash []byte) bool
	RequestPath(destinationHash []byte)
	HopsTo(destinationHash []byte) int
	NextHop(destinationHash []byte) []byte

	// RecallIdentity returns the locally known identity for a destination,
	// or nil when none is cached.
	RecallIdentity(destinationHash []byte) Identity

	// IdentityFromPublicKey reconstructs an identity from persisted public
	// key bytes.
	IdentityFromPublicKey(publicKey []byte) (Identity, error)

	// Subscribe registers a handler for announces matching the given aspect.
	// An empty aspect subscribes to path responses for all aspects.
	Subscribe(aspect string, handler AnnounceHandler)
}

// ResponseCallback delivers the raw response payload for a link request.
// A nil or empty payload means the remote answered with no content.
type ResponseCallback func(payload []byte)

// FailedCallback signals that the remote explicitly failed the request.
type FailedCallback func()

// Link is one established session to a destination.
type Link interface {
	Status() LinkStatus

	// Request issues a resource request over the link. Exactly one of the
	// callbacks fires unless the underlying request itself times out, in
	// which case neither may fire.
	Request(path string, fieldData map[string]string, onResponse ResponseCallback, onFailed FailedCallback, timeout time.Duration)

	Teardown()
}

// Dialer opens links. The established and closed callbacks fire from the
// transport's goroutine as the link changes state; either may be nil.
type Dialer interface {
	OpenLink(destinationHash []byte, identity Identity, onEstablished func(Link), onClosed func(Link)) (Link, error)
}

// MessageRouter delivers store-and-forward messages (the LXMF side of the
// network). Send is synchronous from the caller's perspective; delivery
// itself is best-effort inside the router.
type MessageRouter interface {
	Send(destinationHash []byte, content, title string) error
}
