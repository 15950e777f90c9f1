package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mkobay/ddp-pricer/internal/database"
	"github.com/mkobay/ddp-pricer/internal/ebay"
	"github.com/mkobay/ddp-pricer/internal/pricing"
)

// Service refreshes marketplace reference data (category shipping caps,
// store fee discounts) from the eBay API into the local database. The
// pricing engine itself never talks to the network; it only reads what
// this service has stored.
type Service struct {
	db     *database.DB
	client *ebay.Client
}

// NewService creates a new refresh service
func NewService(db *database.DB, client *ebay.Client) *Service {
	return &Service{db: db, client: client}
}

// RefreshAll refreshes every reference-data source. Partial failures
// are recorded but do not abort the remaining sources.
func (s *Service) RefreshAll(ctx context.Context, marketplaceID string) error {
	var lastErr error

	log.Printf("Refreshing category shipping caps...")
	if count, err := s.refreshShippingCaps(ctx, marketplaceID); err != nil {
		log.Printf("Error refreshing shipping caps: %v", err)
		lastErr = err
	} else {
		log.Printf("Refreshed %d category shipping caps", count)
	}

	log.Printf("Refreshing store fee discounts...")
	if err := s.refreshStoreDiscount(ctx); err != nil {
		log.Printf("Error refreshing store fee discounts: %v", err)
		lastErr = err
	} else {
		log.Printf("Refreshed store fee discounts")
	}

	return lastErr
}

func (s *Service) refreshShippingCaps(ctx context.Context, marketplaceID string) (int, error) {
	history := &database.RefreshHistory{
		Source:    "caps",
		Status:    "running",
		StartedAt: time.Now(),
	}
	if err := s.db.CreateRefreshHistory(history); err != nil {
		return 0, fmt.Errorf("failed to create refresh history: %w", err)
	}

	caps, err := s.client.CategoryShippingCaps(ctx, marketplaceID)
	if err != nil {
		s.complete(history.ID, "failed", 0, err)
		return 0, err
	}

	count := 0
	var lastErr error
	for category, maxShipping := range caps {
		if err := s.db.UpsertShippingCap(ctx, category, maxShipping); err != nil {
			log.Printf("Error storing cap for category %s: %v", category, err)
			lastErr = err
			continue
		}
		count++
	}

	status := "success"
	if lastErr != nil {
		status = "partial"
	}
	s.complete(history.ID, status, count, lastErr)
	return count, lastErr
}

func (s *Service) refreshStoreDiscount(ctx context.Context) error {
	history := &database.RefreshHistory{
		Source:    "store_fees",
		Status:    "running",
		StartedAt: time.Now(),
	}
	if err := s.db.CreateRefreshHistory(history); err != nil {
		return fmt.Errorf("failed to create refresh history: %w", err)
	}

	level, err := s.client.StoreSubscriptionLevel(ctx)
	if err != nil {
		s.complete(history.ID, "failed", 0, err)
		return err
	}

	tier := pricing.StoreTier(strings.ToLower(level))
	if level == "" {
		tier = pricing.StoreNone
	}
	discount, ok := pricing.StoreDiscounts[tier]
	if !ok {
		err := fmt.Errorf("unknown store subscription level %q", level)
		s.complete(history.ID, "failed", 0, err)
		return err
	}

	if err := s.db.UpsertStoreFeeDiscount(ctx, string(tier), discount); err != nil {
		s.complete(history.ID, "failed", 0, err)
		return err
	}

	s.complete(history.ID, "success", 1, nil)
	return nil
}

func (s *Service) complete(id int64, status string, items int, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := s.db.CompleteRefreshHistory(id, status, items, msg); err != nil {
		log.Printf("Error completing refresh history %d: %v", id, err)
	}
}
