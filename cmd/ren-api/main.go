package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/announce"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/api"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/config"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/db"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/link"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/messages"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/pages"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/store"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "YAML config path (optional)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	token := flag.String("token", "", "bootstrap auth token (overrides config)")
	storeType := flag.String("store", "", "store backend: memory|file|sqlite|consul (overrides config)")
	dataDir := flag.String("data-dir", "", "data directory (overrides config)")
	consulAddr := flag.String("consul-addr", "", "consul address when store=consul")
	flag.Parse()

	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *token != "" {
		cfg.AuthToken = *token
	}
	if *storeType != "" {
		cfg.Store = *storeType
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *consulAddr != "" {
		cfg.ConsulAddr = *consulAddr
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var backing store.Store
	switch cfg.Store {
	case "memory":
		backing = store.NewMemoryStore()
	case "file":
		backing, err = store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Printf("file store unavailable (%v); degrading to memory", err)
			backing = store.NewMemoryStore()
		}
	case "sqlite":
		backing, err = store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Printf("sqlite store unavailable (%v); degrading to memory", err)
			backing = store.NewMemoryStore()
		}
	case "consul":
		backing = store.NewConsulStore(cfg.ConsulAddr)
	}
	defer backing.Close()

	clk := clock.New()

	// The real Reticulum binding is supplied externally; without one the
	// offline stack keeps the service and its stores functional.
	offline := rns.NewOffline()
	var transport rns.Transport = offline
	var dialer rns.Dialer = offline
	var router rns.MessageRouter = offline

	registry := store.NewRegistry(backing, clk)
	announces := announce.NewStore(registry, backing, clk)
	links := link.NewCache(transport, dialer, backing, clk)
	tracker := link.NewPathTracker(transport, backing, clk)
	fetcher := pages.NewFetcher(links, clk)
	fetcher.PathTimeout = cfg.PathTimeout
	fetcher.LinkTimeout = cfg.LinkTimeout
	queue := messages.NewQueue(router, cfg.MessageQueueSize)

	hub := api.NewWSHub()
	announces.SetUpdateCallback(hub.Broadcast)
	announces.Attach(transport)
	tracker.Attach()

	stop := make(chan struct{})
	go registry.RunJanitor(cfg.CleanupInterval, cfg.NodeMaxAge, stop)
	go queue.Run(stop)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Deps{
		Announces:      announces,
		Fetcher:        fetcher,
		Registry:       registry,
		Paths:          tracker,
		Links:          links,
		Messages:       queue,
		Token:          cfg.AuthToken,
		RequestTimeout: cfg.RequestTimeout,
	})
	mux.HandleFunc("/api/v1/ws/announces", hub.HandleAnnounces)

	if cfg.EnableUserAuth {
		gdb, err := db.Init()
		if err != nil {
			log.Fatalf("mysql init failed: %v", err)
		}
		(&api.AuthHandler{DB: gdb}).RegisterRoutes(mux)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("ren-api %s listening on %s (store=%s)", version.Build, cfg.Listen, cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("shutting down")
	close(stop)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	// cached links must be torn down before the store is released
	links.Shutdown()
}
