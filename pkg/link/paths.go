package link

import (
	"encoding/hex"
	"log"

	"github.com/benbjohnson/clock"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
)

// PathTracker records hop count and next hop for every destination a path
// response arrives for. Diagnostic only; link establishment does not read
// from it.
type PathTracker struct {
	transport rns.Transport
	backing   store.Store
	clk       clock.Clock
}

func NewPathTracker(transport rns.Transport, backing store.Store, clk clock.Clock) *PathTracker {
	if clk == nil {
		clk = clock.New()
	}
	return &PathTracker{transport: transport, backing: backing, clk: clk}
}

// Attach subscribes the tracker to path responses for all aspects.
func (p *PathTracker) Attach() {
	p.transport.Subscribe("", func(destinationHash []byte, _ rns.Identity, _ []byte) {
		p.record(destinationHash)
	})
}

func (p *PathTracker) record(destinationHash []byte) {
	if !p.transport.HasPath(destinationHash) {
		return
	}
	destHex := hex.EncodeToString(destinationHash)
	info := model.PathInfo{
		Hops:      p.transport.HopsTo(destinationHash),
		UpdatedAt: p.clk.Now().Unix(),
	}
	if next := p.transport.NextHop(destinationHash); next != nil {
		info.NextHop = hex.EncodeToString(next)
	}
	if err := p.backing.UpsertPath(destHex, info); err != nil {
		log.Printf("link: save path info for %s failed: %v", destHex, err)
	}
}

// Paths returns the recorded path diagnostics.
func (p *PathTracker) Paths() (map[string]model.PathInfo, error) {
	return p.backing.ListPaths()
}
