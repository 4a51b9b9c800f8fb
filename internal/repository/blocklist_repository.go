package repository

import (
	"context"
	"errors"
	"fmt"

	"geogate/internal/model"
	"gorm.io/gorm"
)

// BlocklistRepository handles database operations for blocked addresses
type BlocklistRepository struct {
	db *gorm.DB
}

// NewBlocklistRepository creates a blocklist repository sharing the
// link repository's database handle
func NewBlocklistRepository(db *gorm.DB) *BlocklistRepository {
	return &BlocklistRepository{db: db}
}

// ListBlockedAddresses returns every blocked network address
func (r *BlocklistRepository) ListBlockedAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	if err := r.db.WithContext(ctx).Model(&model.BlockedIP{}).
		Pluck("ip_address", &addrs).Error; err != nil {
		return nil, fmt.Errorf("failed to list blocked addresses: %w", err)
	}
	return addrs, nil
}

// List returns full blocklist entries, newest first
func (r *BlocklistRepository) List(ctx context.Context) ([]model.BlockedIP, error) {
	var entries []model.BlockedIP
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list blocklist entries: %w", err)
	}
	return entries, nil
}

// Block inserts a blocklist entry; duplicate addresses are rejected by
// the unique index
func (r *BlocklistRepository) Block(ctx context.Context, entry *model.BlockedIP) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to block address: %w", err)
	}
	return nil
}

// Unblock removes a blocklist entry by address. Errors when the
// address was not blocked.
func (r *BlocklistRepository) Unblock(ctx context.Context, ipAddress string) error {
	res := r.db.WithContext(ctx).Where("ip_address = ?", ipAddress).Delete(&model.BlockedIP{})
	if res.Error != nil {
		return fmt.Errorf("failed to unblock address: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("address not blocked")
	}
	return nil
}
