// Package link maintains the cache of established links, hiding path
// discovery and link establishment behind a single call.
package link

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/metrics"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
)

var (
	ErrPathNotFound            = errors.New("no path to destination")
	ErrIdentityNotFound        = errors.New("identity not found")
	ErrLinkTimeout             = errors.New("link establishment timed out")
	ErrLinkEstablishmentFailed = errors.New("link establishment failed")
)

// PollInterval is how often path and link readiness are re-checked while
// waiting out a timeout.
const PollInterval = 100 * time.Millisecond

// DefaultTimeout applies to both path discovery and link establishment
// when the caller passes no explicit budget.
const DefaultTimeout = 15 * time.Second

// Cache holds at most one link per destination. Establish is serialized
// per destination; different destinations proceed independently.
type Cache struct {
	transport rns.Transport
	dialer    rns.Dialer
	backing   store.Store
	clk       clock.Clock

	mu       sync.Mutex
	links    map[string]rns.Link
	destLock map[string]*sync.Mutex
}

func NewCache(transport rns.Transport, dialer rns.Dialer, backing store.Store, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		transport: transport,
		dialer:    dialer,
		backing:   backing,
		clk:       clk,
		links:     make(map[string]rns.Link),
		destLock:  make(map[string]*sync.Mutex),
	}
}

func (c *Cache) lockFor(destHex string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.destLock[destHex]
	if !ok {
		l = &sync.Mutex{}
		c.destLock[destHex] = l
	}
	return l
}

// Establish returns a live link to the destination, reusing a cached
// active one when possible. It blocks while polling for path discovery and
// link establishment; run it off any latency-sensitive goroutine.
func (c *Cache) Establish(destinationHash []byte, pathTimeout, linkTimeout time.Duration) (rns.Link, error) {
	destHex := hex.EncodeToString(destinationHash)

	destLock := c.lockFor(destHex)
	destLock.Lock()
	defer destLock.Unlock()

	// Fast path: a cached active link costs no network I/O.
	c.mu.Lock()
	cached := c.links[destHex]
	if cached != nil && cached.Status() != rns.LinkActive {
		delete(c.links, destHex)
		cached = nil
	}
	c.mu.Unlock()
	if cached != nil {
		metrics.LinkCacheHits.Inc()
		return cached, nil
	}
	metrics.LinkCacheMisses.Inc()

	if err := c.waitForPath(destinationHash, pathTimeout); err != nil {
		return nil, err
	}

	identity := c.resolveIdentity(destinationHash, destHex)
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	return c.openLink(destinationHash, destHex, identity, linkTimeout)
}

// waitForPath requests a path if none is known and polls until one appears
// or the timeout elapses. The underlying request is not cancellable; on
// timeout we simply stop waiting.
func (c *Cache) waitForPath(destinationHash []byte, timeout time.Duration) error {
	if c.transport.HasPath(destinationHash) {
		return nil
	}
	c.transport.RequestPath(destinationHash)
	deadline := c.clk.Now().Add(timeout)
	for !c.transport.HasPath(destinationHash) {
		if !c.clk.Now().Before(deadline) {
			return ErrPathNotFound
		}
		c.clk.Sleep(PollInterval)
	}
	return nil
}

// resolveIdentity prefers the persisted identity cache (exact key match),
// falling back to the transport's own recall.
func (c *Cache) resolveIdentity(destinationHash []byte, destHex string) rns.Identity {
	if c.backing != nil {
		if rec, ok, err := c.backing.GetIdentity(destHex); err == nil && ok {
			if pub, err := base64.StdEncoding.DecodeString(rec.PublicKey); err == nil {
				if id, err := c.transport.IdentityFromPublicKey(pub); err == nil {
					return id
				}
			}
			log.Printf("link: stored identity for %s unusable, falling back to recall", destHex)
		}
	}
	return c.transport.RecallIdentity(destinationHash)
}

func (c *Cache) openLink(destinationHash []byte, destHex string, identity rns.Identity, timeout time.Duration) (rns.Link, error) {
	onEstablished := func(l rns.Link) {
		// Also fires when establishment outlives the caller's timeout;
		// caching here keeps the late link usable for the next caller.
		c.mu.Lock()
		c.links[destHex] = l
		c.mu.Unlock()
	}
	onClosed := func(l rns.Link) {
		c.mu.Lock()
		if c.links[destHex] == l {
			delete(c.links, destHex)
		}
		c.mu.Unlock()
	}

	l, err := c.dialer.OpenLink(destinationHash, identity, onEstablished, onClosed)
	if err != nil {
		return nil, ErrLinkEstablishmentFailed
	}

	deadline := c.clk.Now().Add(timeout)
	for {
		switch l.Status() {
		case rns.LinkActive:
			c.mu.Lock()
			c.links[destHex] = l
			c.mu.Unlock()
			return l, nil
		case rns.LinkClosed:
			// fail fast rather than waiting out the remaining budget
			return nil, ErrLinkEstablishmentFailed
		}
		if !c.clk.Now().Before(deadline) {
			return nil, ErrLinkTimeout
		}
		c.clk.Sleep(PollInterval)
	}
}

// CleanupInactive drops every cache entry whose link is not active.
func (c *Cache) CleanupInactive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for destHex, l := range c.links {
		if l.Status() != rns.LinkActive {
			delete(c.links, destHex)
		}
	}
}

// Active reports how many cached links are currently active, for the
// status endpoint.
func (c *Cache) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.links {
		if l.Status() == rns.LinkActive {
			n++
		}
	}
	return n
}

// Shutdown tears down every cached link and clears the cache. Safe to call
// repeatedly and with an empty cache.
func (c *Cache) Shutdown() {
	c.mu.Lock()
	links := c.links
	c.links = make(map[string]rns.Link)
	c.mu.Unlock()
	for destHex, l := range links {
		l.Teardown()
		log.Printf("link: tore down link to %s", destHex)
	}
}
