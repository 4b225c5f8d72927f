// Package pages performs page request/response exchanges over established
// links.
package pages

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/link"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/metrics"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
)

var (
	ErrRequestFailed  = errors.New("page request failed")
	ErrRequestTimeout = errors.New("page request timed out")
)

// NoContent is returned when the remote answers with an empty payload.
const NoContent = "No content received"

// DefaultTimeout bounds one page request/response exchange.
const DefaultTimeout = 15 * time.Second

const (
	pageCacheSize = 256
	pageCacheTTL  = 5 * time.Minute
)

// Fetcher downloads pages over cached links. Fetch blocks for up to the
// request timeout; run it off any latency-sensitive goroutine.
type Fetcher struct {
	links *link.Cache
	clk   clock.Clock

	// PathTimeout and LinkTimeout bound the establishment phases of each
	// fetch.
	PathTimeout time.Duration
	LinkTimeout time.Duration

	cache *expirable.LRU[string, string]
}

func NewFetcher(links *link.Cache, clk clock.Clock) *Fetcher {
	if clk == nil {
		clk = clock.New()
	}
	return &Fetcher{
		links:       links,
		clk:         clk,
		PathTimeout: link.DefaultTimeout,
		LinkTimeout: link.DefaultTimeout,
		cache:       expirable.NewLRU[string, string](pageCacheSize, nil, pageCacheTTL),
	}
}

type outcome struct {
	content string
	err     error
}

// Fetch performs exactly one request/response exchange and returns the
// page body. Requests with field data bypass the page cache. Exactly one
// of body, typed error, or timeout error results; late callbacks after the
// timeout are no-ops.
func (f *Fetcher) Fetch(req model.PageRequest, timeout time.Duration) (string, error) {
	destinationHash, err := hex.DecodeString(req.DestinationHash)
	if err != nil {
		return "", fmt.Errorf("invalid destination hash %q: %w", req.DestinationHash, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cacheKey := req.DestinationHash + ":" + req.PagePath
	cacheable := len(req.FieldData) == 0
	if cacheable {
		if body, ok := f.cache.Get(cacheKey); ok {
			metrics.PageCacheHits.Inc()
			return body, nil
		}
	}

	l, err := f.links.Establish(destinationHash, f.PathTimeout, f.LinkTimeout)
	if err != nil {
		metrics.PageFailures.WithLabelValues("link").Inc()
		return "", err
	}

	// Buffered so a late callback firing after the timeout has a place to
	// write without blocking; the sync.Once makes completion idempotent.
	done := make(chan outcome, 1)
	var once sync.Once
	complete := func(o outcome) {
		once.Do(func() { done <- o })
	}

	l.Request(req.PagePath, req.FieldData,
		func(payload []byte) {
			if len(payload) == 0 {
				complete(outcome{content: NoContent})
				return
			}
			complete(outcome{content: string(payload)})
		},
		func() {
			complete(outcome{err: ErrRequestFailed})
		},
		timeout,
	)

	timer := f.clk.Timer(timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		if o.err != nil {
			metrics.PageFailures.WithLabelValues("failed").Inc()
			return "", o.err
		}
		metrics.PagesFetched.Inc()
		if cacheable && o.content != NoContent {
			f.cache.Add(cacheKey, o.content)
		}
		return o.content, nil
	case <-timer.C:
		log.Printf("pages: request for %s:%s timed out", req.DestinationHash, req.PagePath)
		metrics.PageFailures.WithLabelValues("timeout").Inc()
		return "", ErrRequestTimeout
	}
}
