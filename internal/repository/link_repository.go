package repository

import (
	"context"
	"errors"
	"fmt"

	"geogate/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrLinkGone is returned by RecordAccess when the target row vanished
// between lookup and commit.
var ErrLinkGone = errors.New("link row no longer exists")

// LinkRepository handles database operations for links and access logs
type LinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new link repository instance
func NewLinkRepository(dsn string, maxIdleConns, maxOpenConns int) (*LinkRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	if err := db.AutoMigrate(&model.Link{}, &model.AccessLog{}, &model.BlockedIP{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &LinkRepository{db: db}, nil
}

// Create creates a new link
func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetByShortCode retrieves a link by short code. Soft-deleted rows are
// returned too; lifecycle interpretation belongs to the state resolver.
func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

// GetByID retrieves a link by primary key
func (r *LinkRepository) GetByID(ctx context.Context, id uint) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

// Update persists all fields of a link
func (r *LinkRepository) Update(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	return nil
}

// List retrieves links with pagination, optional search over short code,
// location name and target URL, and a deleted/live toggle.
func (r *LinkRepository) List(ctx context.Context, createdBy uint, search string, showDeleted bool, offset, limit int) ([]model.Link, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Link{}).Where("is_deleted = ?", showDeleted)
	if createdBy != 0 {
		query = query.Where("created_by = ?", createdBy)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("short_code ILIKE ? OR location_name ILIKE ? OR target_url ILIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count links: %w", err)
	}

	var links []model.Link
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&links).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}
	return links, total, nil
}

// RecordAccess applies the side effects of one verification event as a
// single transaction: bump visit_count plus exactly one of
// success_count/denied_count, then append the audit row. The increments
// run as row-level atomic updates, so concurrent events on the same link
// serialize without a read-modify-write gap. Either everything commits
// or nothing does.
func (r *LinkRepository) RecordAccess(ctx context.Context, linkID uint, granted bool, entry *model.AccessLog) error {
	counter := "denied_count"
	if granted {
		counter = "success_count"
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Link{}).
			Where("id = ? AND is_deleted = ?", linkID, false).
			UpdateColumns(map[string]interface{}{
				"visit_count": gorm.Expr("visit_count + 1"),
				counter:       gorm.Expr(counter + " + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkGone
		}

		entry.LinkID = linkID
		entry.AccessGranted = granted
		return tx.Create(entry).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// ListAccessLogs retrieves the audit trail for a link, newest first
func (r *LinkRepository) ListAccessLogs(ctx context.Context, linkID uint, offset, limit int) ([]model.AccessLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AccessLog{}).Where("link_id = ?", linkID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count access logs: %w", err)
	}

	var logs []model.AccessLog
	if err := query.Order("accessed_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list access logs: %w", err)
	}
	return logs, total, nil
}

// GetAllShortCodes retrieves every short code for bloom filter warm-up.
// Soft-deleted codes stay in the filter; the state resolver hides them.
func (r *LinkRepository) GetAllShortCodes(ctx context.Context) ([]string, error) {
	var shortCodes []string
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Pluck("short_code", &shortCodes).Error; err != nil {
		return nil, fmt.Errorf("failed to get all short codes: %w", err)
	}
	return shortCodes, nil
}

// Close closes the database connection
func (r *LinkRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the underlying database instance
func (r *LinkRepository) GetDB() *gorm.DB {
	return r.db
}
