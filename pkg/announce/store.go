// Package announce maintains the live, deduplicated view of network
// announces and feeds the persisted node registry and identity cache.
package announce

import (
	"encoding/base64"
	"encoding/hex"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/metrics"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
)

// UpdateFunc receives the full announce list after every change.
type UpdateFunc func([]model.Announce)

// Store collects announces in most-recent-first order, at most one entry
// per destination. All methods are safe for concurrent use; announce
// delivery happens on the transport's goroutine.
type Store struct {
	registry *store.Registry
	backing  store.Store
	clk      clock.Clock

	mu        sync.Mutex
	announces []model.Announce
	onUpdate  UpdateFunc
}

func NewStore(registry *store.Registry, backing store.Store, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{registry: registry, backing: backing, clk: clk}
}

// SetUpdateCallback registers the subscriber notified on every change.
func (s *Store) SetUpdateCallback(fn UpdateFunc) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Attach subscribes the store to announce delivery for the aspects the
// browser cares about.
func (s *Store) Attach(t rns.Transport) {
	for _, aspect := range []string{rns.AspectNodes, rns.AspectMessages} {
		a := aspect
		t.Subscribe(a, func(destinationHash []byte, identity rns.Identity, appData []byte) {
			s.HandleAnnounce(a, destinationHash, identity, appData)
		})
	}
	log.Printf("announce: handlers registered")
}

// HandleAnnounce processes one announce event. Malformed app data only
// drops the display name; subscriber panics are contained so the transport
// keeps delivering.
func (s *Store) HandleAnnounce(aspect string, destinationHash []byte, identity rns.Identity, appData []byte) {
	destHex := hex.EncodeToString(destinationHash)
	now := s.clk.Now().Unix()
	displayName := decodeDisplayName(aspect, appData)

	identityHex := ""
	if identity != nil {
		identityHex = hex.EncodeToString(identity.Hash())
		s.storeIdentity(identityHex, identity, now)
	}

	if s.registry != nil {
		s.registry.UpdateNode(destHex, displayName)
	}
	metrics.AnnouncesReceived.WithLabelValues(aspect).Inc()

	ann := model.Announce{
		DestinationHash: destHex,
		IdentityHash:    identityHex,
		DisplayName:     displayName,
		Aspect:          aspect,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.announces {
		if existing.DestinationHash == destHex {
			ann.CreatedAt = existing.CreatedAt
			s.announces = append(s.announces[:i], s.announces[i+1:]...)
			break
		}
	}
	// list position is recency; newest entries sit at the front
	s.announces = append([]model.Announce{ann}, s.announces...)

	if s.onUpdate != nil {
		s.notify(append([]model.Announce(nil), s.announces...))
	}
}

// notify invokes the subscriber, absorbing panics so a misbehaving
// subscriber cannot break announce delivery.
func (s *Store) notify(list []model.Announce) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("announce: update callback panicked: %v", r)
		}
	}()
	s.onUpdate(list)
}

func (s *Store) storeIdentity(identityHex string, identity rns.Identity, now int64) {
	if s.backing == nil {
		return
	}
	rec := model.IdentityRecord{
		PublicKey: base64.StdEncoding.EncodeToString(identity.PublicKey()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.backing.UpsertIdentity(identityHex, rec); err != nil {
		log.Printf("announce: store identity %s failed: %v", identityHex, err)
	}
}

// Announces returns the collected announces, optionally filtered to one
// aspect. Order is recency order.
func (s *Store) Announces(aspect string) []model.Announce {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Announce, 0, len(s.announces))
	for _, ann := range s.announces {
		if aspect != "" && ann.Aspect != aspect {
			continue
		}
		out = append(out, ann)
	}
	return out
}

// decodeDisplayName extracts a human-readable name from announce app data.
// Node announces pack a msgpack map with a "name" key; message destinations
// announce a plain UTF-8 name. Anything undecodable means no name.
func decodeDisplayName(aspect string, appData []byte) string {
	if len(appData) == 0 {
		return ""
	}
	if aspect == rns.AspectNodes {
		var fields map[string]interface{}
		if err := msgpack.Unmarshal(appData, &fields); err == nil {
			if name, ok := fields["name"].(string); ok {
				return name
			}
		}
	}
	if utf8.Valid(appData) {
		return string(appData)
	}
	return ""
}
