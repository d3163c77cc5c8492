package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shoply/internal/models"
	"shoply/internal/notify"
	"shoply/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StockScanResult reports how many products tripped each alert.
type StockScanResult struct {
	LowStock   int `json:"low_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// StockService scans inventory and raises system-wide product alerts. A
// per-(product, kind) dedup window keeps back-to-back scans from emitting
// the same alert twice; with Redis configured the window also holds across
// instances.
type StockService struct {
	products *repository.ProductRepository
	notifier *Notifier
	rdb      *redis.Client
	logger   *zap.Logger
	window   time.Duration

	mu     sync.Mutex
	recent map[string]time.Time
}

func NewStockService(products *repository.ProductRepository, notifier *Notifier, rdb *redis.Client, window time.Duration, logger *zap.Logger) *StockService {
	return &StockService{
		products: products,
		notifier: notifier,
		rdb:      rdb,
		logger:   logger,
		window:   window,
		recent:   make(map[string]time.Time),
	}
}

// acquireOnce reports whether this alert is the first in its window.
// Redis errors fail open so a broken cache never suppresses alerts.
func (s *StockService) acquireOnce(ctx context.Context, kind string, productID uint) bool {
	key := fmt.Sprintf("stockalert:%s:%d", kind, productID)
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, key, 1, s.window).Result()
		if err == nil {
			return ok
		}
		s.logger.Warn("stock alert dedup fell back to memory", zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if at, ok := s.recent[key]; ok && now.Sub(at) < s.window {
		return false
	}
	s.recent[key] = now
	// drop stale entries while we hold the lock
	for k, at := range s.recent {
		if now.Sub(at) >= s.window {
			delete(s.recent, k)
		}
	}
	return true
}

// Scan raises one LOW_STOCK alert per product at or below threshold and one
// OUT_OF_STOCK alert per sold-out product. Counts reflect alerts actually
// created, not products matched.
func (s *StockService) Scan(ctx context.Context) (*StockScanResult, error) {
	var res StockScanResult

	low, err := s.products.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("low stock scan: %w", err)
	}
	for i := range low {
		if s.alert(ctx, "low", &low[i], notify.LowStock(&low[i])) {
			res.LowStock++
		}
	}

	out, err := s.products.ListOutOfStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("out of stock scan: %w", err)
	}
	for i := range out {
		if s.alert(ctx, "out", &out[i], notify.OutOfStock(&out[i])) {
			res.OutOfStock++
		}
	}
	return &res, nil
}

func (s *StockService) alert(ctx context.Context, kind string, p *models.Product, payload notify.Payload) bool {
	if !s.acquireOnce(ctx, kind, p.ID) {
		return false
	}
	if _, err := s.notifier.NotifyProductAlert(ctx, p.ID, payload); err != nil {
		s.logger.Warn("stock alert failed",
			zap.Uint("product_id", p.ID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return false
	}
	return true
}
