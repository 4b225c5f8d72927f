package rns

import (
	"errors"
	"log"
)

// ErrUnavailable is returned by the offline stack for every operation that
// would need the network.
var ErrUnavailable = errors.New("reticulum stack not linked")

// Offline satisfies the transport contract without a network stack behind
// it: no paths, no identities, no delivery. It stands in when no real
// binding is compiled into the binary, keeping the HTTP surface and stores
// fully functional (fetches fail with the usual typed errors).
type Offline struct{}

func NewOffline() *Offline {
	log.Printf("rns: running with the offline stack; page fetches and messages will fail")
	return &Offline{}
}

func (*Offline) HasPath([]byte) bool        { return false }
func (*Offline) RequestPath([]byte)         {}
func (*Offline) HopsTo([]byte) int          { return 0 }
func (*Offline) NextHop([]byte) []byte      { return nil }
func (*Offline) RecallIdentity([]byte) Identity { return nil }

func (*Offline) IdentityFromPublicKey([]byte) (Identity, error) {
	return nil, ErrUnavailable
}

func (*Offline) Subscribe(string, AnnounceHandler) {}

func (*Offline) OpenLink([]byte, Identity, func(Link), func(Link)) (Link, error) {
	return nil, ErrUnavailable
}

func (*Offline) Send([]byte, string, string) error { return ErrUnavailable }
