package link

import (
	"bytes"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
)

type fakeIdentity struct {
	hash []byte
	pub  []byte
}

func (f *fakeIdentity) Hash() []byte      { return f.hash }
func (f *fakeIdentity) PublicKey() []byte { return f.pub }

type fakeTransport struct {
	mu            sync.Mutex
	paths         map[string]bool
	identity      rns.Identity
	pathRequests  int
	recallCalls   int
	fromKeyCalls  int
	subscriptions []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{paths: map[string]bool{}}
}

func (f *fakeTransport) HasPath(dest []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[string(dest)]
}

func (f *fakeTransport) RequestPath(dest []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pathRequests++
}

func (f *fakeTransport) HopsTo([]byte) int     { return 2 }
func (f *fakeTransport) NextHop([]byte) []byte { return []byte{0xaa} }

func (f *fakeTransport) RecallIdentity([]byte) rns.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recallCalls++
	return f.identity
}

func (f *fakeTransport) IdentityFromPublicKey(pub []byte) (rns.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fromKeyCalls++
	return &fakeIdentity{pub: pub}, nil
}

func (f *fakeTransport) Subscribe(aspect string, _ rns.AnnounceHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions = append(f.subscriptions, aspect)
}

type fakeLink struct {
	mu        sync.Mutex
	status    rns.LinkStatus
	teardowns int
	requests  int
}

func (f *fakeLink) Status() rns.LinkStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeLink) setStatus(s rns.LinkStatus) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *fakeLink) Request(string, map[string]string, rns.ResponseCallback, rns.FailedCallback, time.Duration) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
}

func (f *fakeLink) Teardown() {
	f.mu.Lock()
	f.teardowns++
	f.status = rns.LinkClosed
	f.mu.Unlock()
}

type fakeDialer struct {
	mu            sync.Mutex
	link          *fakeLink
	opens         int
	err           error
	onEstablished func(rns.Link)
	onClosed      func(rns.Link)
}

func (f *fakeDialer) OpenLink(_ []byte, _ rns.Identity, onEstablished func(rns.Link), onClosed func(rns.Link)) (rns.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.onEstablished = onEstablished
	f.onClosed = onClosed
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

func (f *fakeDialer) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

var dest = bytes.Repeat([]byte{0xab}, 16)

func activeSetup() (*fakeTransport, *fakeDialer) {
	t := newFakeTransport()
	t.paths[string(dest)] = true
	t.identity = &fakeIdentity{hash: []byte{0x01}, pub: []byte{0x02}}
	d := &fakeDialer{link: &fakeLink{status: rns.LinkActive}}
	return t, d
}

func TestEstablish_ReusesActiveLink(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	first, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	second, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish (cached): %v", err)
	}
	if first != second {
		t.Fatalf("expected cached link to be reused")
	}
	if dialer.openCount() != 1 {
		t.Fatalf("opens=%d, want 1", dialer.openCount())
	}
	if transport.pathRequests != 0 {
		t.Fatalf("pathRequests=%d, want 0", transport.pathRequests)
	}
}

func TestEstablish_PathTimeoutZero(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	dialer := &fakeDialer{link: &fakeLink{status: rns.LinkActive}}
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	_, err := c.Establish(dest, 0, time.Second)
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("err=%v, want ErrPathNotFound", err)
	}
	if dialer.openCount() != 0 {
		t.Fatalf("opens=%d, want 0 (no link creation on path failure)", dialer.openCount())
	}
	if transport.pathRequests != 1 {
		t.Fatalf("pathRequests=%d, want 1", transport.pathRequests)
	}
}

func TestEstablish_IdentityNotFound(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.paths[string(dest)] = true
	dialer := &fakeDialer{link: &fakeLink{status: rns.LinkActive}}
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	_, err := c.Establish(dest, time.Second, time.Second)
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("err=%v, want ErrIdentityNotFound", err)
	}
}

func TestEstablish_StoredIdentityPreferred(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	backing := store.NewMemoryStore()
	destHex := "abababababababababababababababab"
	_ = backing.UpsertIdentity(destHex, model.IdentityRecord{
		PublicKey: base64.StdEncoding.EncodeToString([]byte{0x02}),
	})
	c := NewCache(transport, dialer, backing, nil)

	if _, err := c.Establish(dest, time.Second, time.Second); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if transport.fromKeyCalls != 1 {
		t.Fatalf("fromKeyCalls=%d, want 1", transport.fromKeyCalls)
	}
	if transport.recallCalls != 0 {
		t.Fatalf("recallCalls=%d, want 0 (stored identity should win)", transport.recallCalls)
	}
}

func TestEstablish_ClosedFailsFast(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	dialer.link.status = rns.LinkClosed
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	start := time.Now()
	_, err := c.Establish(dest, time.Second, 30*time.Second)
	if !errors.Is(err, ErrLinkEstablishmentFailed) {
		t.Fatalf("err=%v, want ErrLinkEstablishmentFailed", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("closed link waited %v instead of failing fast", elapsed)
	}
}

func TestEstablish_LinkTimeout(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	dialer.link.status = rns.LinkPending
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	_, err := c.Establish(dest, time.Second, 0)
	if !errors.Is(err, ErrLinkTimeout) {
		t.Fatalf("err=%v, want ErrLinkTimeout", err)
	}
}

func TestEstablish_LateEstablishmentPopulatesCache(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	dialer.link.status = rns.LinkPending
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	if _, err := c.Establish(dest, time.Second, 0); !errors.Is(err, ErrLinkTimeout) {
		t.Fatalf("err=%v, want ErrLinkTimeout", err)
	}

	// the underlying establishment completes after the caller gave up
	dialer.link.setStatus(rns.LinkActive)
	dialer.onEstablished(dialer.link)

	got, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish after late completion: %v", err)
	}
	if got != dialer.link {
		t.Fatalf("late link not served from cache")
	}
	if dialer.openCount() != 1 {
		t.Fatalf("opens=%d, want 1 (second call must hit the cache)", dialer.openCount())
	}
}

func TestEstablish_EvictsStaleCachedLink(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	first, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	first.(*fakeLink).setStatus(rns.LinkClosed)

	replacement := &fakeLink{status: rns.LinkActive}
	dialer.mu.Lock()
	dialer.link = replacement
	dialer.mu.Unlock()

	second, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish after close: %v", err)
	}
	if second != rns.Link(replacement) {
		t.Fatalf("stale link was not replaced")
	}
	if dialer.openCount() != 2 {
		t.Fatalf("opens=%d, want 2", dialer.openCount())
	}
}

func TestCleanupInactive(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	l, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if c.Active() != 1 {
		t.Fatalf("active=%d, want 1", c.Active())
	}
	l.(*fakeLink).setStatus(rns.LinkClosed)
	c.CleanupInactive()
	if c.Active() != 0 {
		t.Fatalf("active=%d after cleanup, want 0", c.Active())
	}
}

func TestShutdown_TearsDownAndIsIdempotent(t *testing.T) {
	t.Parallel()

	transport, dialer := activeSetup()
	c := NewCache(transport, dialer, store.NewMemoryStore(), nil)

	l, err := c.Establish(dest, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	c.Shutdown()
	c.Shutdown()
	if got := l.(*fakeLink).teardowns; got != 1 {
		t.Fatalf("teardowns=%d, want 1", got)
	}
}

func TestPathTracker_RecordsPathInfo(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.paths[string(dest)] = true
	backing := store.NewMemoryStore()
	tracker := NewPathTracker(transport, backing, nil)

	tracker.record(dest)

	paths, err := tracker.Paths()
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	info, ok := paths["abababababababababababababababab"]
	if !ok {
		t.Fatalf("path info missing: %v", paths)
	}
	if info.Hops != 2 || info.NextHop != "aa" {
		t.Fatalf("info=%+v", info)
	}
}
