package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zapstream/config"
	"zapstream/internal/api"
	"zapstream/internal/api/handler"
	"zapstream/internal/cache"
	"zapstream/internal/engine"
	"zapstream/internal/fiat"
	"zapstream/internal/grid"
	"zapstream/internal/relay"
)

const profileCacheTTL = time.Hour

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("[CONFIG] Failed to load configuration: %v", err)
	}

	// 2. Fiat conversion with its 30s price refresh loop
	priceClient := fiat.NewClient(cfg.Fiat.PriceURL, cfg.Fiat.HistoricalPriceURL)
	converter := fiat.NewConverter(priceClient, cfg.Fiat.Currencies)
	converter.Start(cfg.GetRefreshInterval())
	defer converter.Stop()

	// 3. Engine with the HTTP snapshot store as its listener
	store := api.NewStore()
	opts := grid.Options{
		PodiumEnabled: true,
		GridEnabled:   true,
		SortMode:      grid.SortByAmount,
	}
	eng := engine.New(cfg.Target, opts, store, cfg.GetDebounce())

	// 4. Relay transport: receipt listener plus batched profile resolution
	pool := relay.NewPool(context.Background())
	defer pool.Stop()
	health := relay.NewHealthTracker()

	profiles := cache.NewProfileCache(profileCacheTTL)
	defer profiles.Stop()
	resolver := relay.NewProfileResolver(pool, health, eng, profiles, cfg.Relays)
	defer resolver.Stop()
	eng.OnNewPayer(resolver.Request)

	eng.Start()
	defer eng.Stop()

	listener := relay.NewListener(pool, health, eng, cfg.Relays, cfg.Target)
	listener.Start()
	defer listener.Stop()

	// 5. HTTP API for the presentation layer
	mux := http.NewServeMux()
	handler.New(store, converter).Register(mux)

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Printf("[API] Starting API server on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server failed: %v", err)
		}
	}()

	// 6. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("[MAIN] Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}

	log.Println("[MAIN] Exiting...")
}
