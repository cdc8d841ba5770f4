package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/port"
)

// InventoryService orchestrates multi-SKU reserve/release sweeps over the
// stock ledger. SKUs are always processed in ascending order, so any two
// concurrent multi-SKU operations that share SKUs contend on them in the
// same relative order and cannot deadlock each other.
type InventoryService struct {
	inventory port.InventoryRepository
	publisher port.EventPublisher
	policy    RetryPolicy
	logger    *zap.Logger
}

func NewInventoryService(
	inventory port.InventoryRepository,
	publisher port.EventPublisher,
	policy RetryPolicy,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
	}
}

// Reserve reserves stock for every SKU of the order and publishes
// StockReserved once all per-SKU saves have committed. A version conflict
// restarts the sweep (bounded by the retry policy); SKUs whose save already
// committed are skipped on restart because that reservation is durable. On
// a hard failure the SKUs reserved earlier in the sweep stay reserved:
// compensation is the saga's job, not this layer's.
func (s *InventoryService) Reserve(ctx context.Context, orderID uuid.UUID, skuQuantities map[string]int) error {
	s.logger.Info("reserving stock",
		zap.String("order_id", orderID.String()),
		zap.Int("sku_count", len(skuQuantities)))

	if err := s.sweep(ctx, skuQuantities, (*domain.InventoryItem).Reserve); err != nil {
		return err
	}

	return s.publisher.Publish(ctx, domain.NewStockReserved(orderID, skuQuantities))
}

// Release returns reserved stock to the available pool, SKU by SKU in the
// same sorted order as Reserve. No event is published: release is a
// compensation step, not a saga trigger.
func (s *InventoryService) Release(ctx context.Context, orderID uuid.UUID, skuQuantities map[string]int) error {
	s.logger.Info("releasing stock",
		zap.String("order_id", orderID.String()),
		zap.Int("sku_count", len(skuQuantities)))

	return s.sweep(ctx, skuQuantities, (*domain.InventoryItem).Release)
}

func (s *InventoryService) sweep(
	ctx context.Context,
	skuQuantities map[string]int,
	apply func(*domain.InventoryItem, int) error,
) error {
	skus := sortedSkus(skuQuantities)
	committed := make(map[string]bool, len(skus))

	return retryOnConflict(ctx, s.policy, func() error {
		for _, sku := range skus {
			if committed[sku] {
				continue
			}
			item, err := s.inventory.FindBySku(ctx, sku)
			if err != nil {
				return fmt.Errorf("load inventory for %s: %w", sku, err)
			}
			if item == nil {
				return fmt.Errorf("%w: %s", domain.ErrSkuNotFound, sku)
			}
			if err := apply(item, skuQuantities[sku]); err != nil {
				return err
			}
			if err := s.inventory.Save(ctx, item); err != nil {
				return fmt.Errorf("save inventory for %s: %w", sku, err)
			}
			committed[sku] = true
		}
		return nil
	})
}

func sortedSkus(skuQuantities map[string]int) []string {
	skus := make([]string, 0, len(skuQuantities))
	for sku := range skuQuantities {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}
