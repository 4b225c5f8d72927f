// Package api exposes the browser core over HTTP, in the shape the UI
// consumes: announce lists, merged node lists, page fetches, and status.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/announce"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/link"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/messages"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/model"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/pages"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/version"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Announces *announce.Store
	Fetcher   *pages.Fetcher
	Registry  *store.Registry
	Paths     *link.PathTracker
	Links     *link.Cache
	Messages  *messages.Queue

	// Token is the bootstrap bearer token; empty disables auth.
	Token string
	// RequestTimeout bounds each page fetch.
	RequestTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers on the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	auth := authFunc(d.Token)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ren-browser api"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/announces", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, d.Announces.Announces(r.URL.Query().Get("aspect")))
	})

	mux.HandleFunc("/api/v1/nodes", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		live := d.Announces.Announces(rns.AspectNodes)
		saved, err := d.Registry.Nodes()
		if err != nil {
			log.Printf("api: list saved nodes failed: %v", err)
		}
		writeJSON(w, http.StatusOK, mergeNodes(live, saved))
	})

	mux.HandleFunc("/api/v1/page", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req model.PageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.DestinationHash == "" || !strings.HasPrefix(req.PagePath, "/") {
			http.Error(w, "destination_hash and an absolute page_path are required", http.StatusBadRequest)
			return
		}
		content, err := d.Fetcher.Fetch(req, d.RequestTimeout)
		if err != nil {
			http.Error(w, err.Error(), fetchStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, PageResponse{Content: content})
	})

	mux.HandleFunc("/api/v1/paths", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		paths, err := d.Paths.Paths()
		if err != nil {
			http.Error(w, "failed to list paths", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, paths)
	})

	mux.HandleFunc("/api/v1/message", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DestinationHash == "" || req.Content == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		msg, err := d.Messages.Enqueue(req.DestinationHash, req.Content, req.Title)
		if err != nil {
			if errors.Is(err, messages.ErrQueueFull) {
				http.Error(w, "queue full", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusAccepted, msg)
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		nodes, _ := d.Registry.Nodes()
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:      "connected",
			Version:     version.Build,
			NodesCount:  len(nodes),
			ActiveLinks: d.Links.Active(),
		})
	})
}

// mergeNodes combines live announces with the persisted registry, live
// entries first, deduplicated by destination hash.
func mergeNodes(live []model.Announce, saved []model.NodeRecord) []model.Announce {
	seen := make(map[string]struct{}, len(live))
	out := make([]model.Announce, 0, len(live)+len(saved))
	for _, ann := range live {
		seen[ann.DestinationHash] = struct{}{}
		out = append(out, ann)
	}
	for _, n := range saved {
		if _, ok := seen[n.Hash]; ok {
			continue
		}
		seen[n.Hash] = struct{}{}
		out = append(out, model.Announce{
			DestinationHash: n.Hash,
			DisplayName:     n.Name,
			Aspect:          rns.AspectNodes,
			CreatedAt:       n.LastSeen,
			UpdatedAt:       n.LastSeen,
		})
	}
	return out
}

// fetchStatus maps fetch errors onto HTTP statuses: timeouts gateway-style,
// everything else a bad gateway or not found.
func fetchStatus(err error) int {
	switch {
	case errors.Is(err, link.ErrPathNotFound), errors.Is(err, link.ErrIdentityNotFound):
		return http.StatusNotFound
	case errors.Is(err, link.ErrLinkTimeout), errors.Is(err, pages.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, link.ErrLinkEstablishmentFailed), errors.Is(err, pages.ErrRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func authFunc(token string) func(r *http.Request) bool {
	if token == "" {
		return func(_ *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		h := r.Header.Get("X-Auth-Token")
		if h == "" {
			// also allow simple Bearer token
			authz := r.Header.Get("Authorization")
			if strings.HasPrefix(authz, "Bearer ") {
				h = strings.TrimPrefix(authz, "Bearer ")
			}
		}
		if h == token {
			return true
		}
		return authFuncJWT(r)
	}
}
