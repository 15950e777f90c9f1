package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/mkobay/ddp-pricer/internal/config"
	"github.com/mkobay/ddp-pricer/internal/database"
	"github.com/mkobay/ddp-pricer/internal/ebay"
	"github.com/mkobay/ddp-pricer/internal/handlers"
	"github.com/mkobay/ddp-pricer/internal/pricing"
	"github.com/mkobay/ddp-pricer/internal/sync"
)

func main() {
	// Command line flags
	sandbox := flag.Bool("sandbox", true, "Use eBay sandbox environment")
	seed := flag.Bool("seed", false, "Seed the bundled rate card on startup")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if *seed {
		if err := db.SeedDefaults(context.Background()); err != nil {
			log.Fatal(err)
		}
		log.Printf("Seeded default rate card into %s", cfg.DBPath)
	}

	// Create eBay client
	ebayClient := ebay.NewClient(ebay.Config{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		Sandbox:      *sandbox,
	})

	solverCfg := pricing.DefaultSolverConfig()
	engine := pricing.NewEngine(db, db, solverCfg)

	// Create handlers
	h := handlers.NewHandler(db, engine, solverCfg)

	// Set up routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", h.HealthCheck)
	mux.HandleFunc("/api/price", h.PriceQuote)
	mux.HandleFunc("/api/price/batch", h.PriceBatch)
	mux.HandleFunc("/api/tariff", h.GetTariff)
	mux.HandleFunc("/api/tiers", h.GetTiers)

	// Scheduled refresh of shipping caps and store fee discounts
	if ebayClient.IsConfigured() {
		svc := sync.NewService(db, ebayClient)
		c := cron.New()
		if _, err := c.AddFunc(cfg.RefreshSchedule, func() {
			if err := svc.RefreshAll(context.Background(), cfg.MarketplaceID); err != nil {
				log.Printf("Reference data refresh failed: %v", err)
			}
		}); err != nil {
			log.Fatalf("Invalid refresh schedule %q: %v", cfg.RefreshSchedule, err)
		}
		c.Start()
		defer c.Stop()
	} else {
		log.Println("WARNING: EBAY_CLIENT_ID not set - reference data refresh disabled")
	}

	// Start server
	addr := ":" + cfg.Port
	log.Printf("Starting landed-cost pricer on http://localhost%s", addr)
	log.Printf("Sandbox mode: %v", *sandbox)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
