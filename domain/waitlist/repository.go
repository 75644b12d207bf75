package waitlist

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

import (
	"context"
	"errors"

	"github.com/akeren/waitlist-landing/internal/models"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"gorm.io/gorm"
)

const importBatchSize = 200

type WaitlistRepository interface {
	// AppendEntry adds one row to the end of the table.
	AppendEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// AppendEntries adds rows in batches and returns how many were written.
	AppendEntries(ctx context.Context, entries []*models.WaitlistEntry) (int64, error)
	// FindEntryByID retrieves a waitlist entry by its unique ID.
	FindEntryByID(ctx context.Context, id uint) (*models.WaitlistEntry, error)
	// ListEntries returns one page in row order together with the total row count.
	ListEntries(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error)
	// AllEntries returns every row in row order.
	AllEntries(ctx context.Context) ([]*models.WaitlistEntry, error)
	CountEntries(ctx context.Context) (int64, error)
	CountBySource(ctx context.Context) ([]models.SourceCount, error)
	// ApplyCleanup deletes removeIDs and rewrites emails in a single transaction.
	ApplyCleanup(ctx context.Context, removeIDs []uint, rewrites map[uint]string) error
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) AppendEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to append waitlist entry", err)
	}

	return entry, nil
}

func (wr *waitlistRepository) AppendEntries(ctx context.Context, entries []*models.WaitlistEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	result := wr.db.WithContext(ctx).CreateInBatches(entries, importBatchSize)
	if result.Error != nil {
		return 0, apperrors.NewDatabaseError("unable to import waitlist entries", result.Error)
	}

	return result.RowsAffected, nil
}

func (wr *waitlistRepository) FindEntryByID(ctx context.Context, id uint) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	if err := wr.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("waitlist entry not found", err)
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (wr *waitlistRepository) ListEntries(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error) {
	var (
		entries []*models.WaitlistEntry
		total   int64
	)

	db := wr.db.WithContext(ctx).Model(&models.WaitlistEntry{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	if err := wr.db.WithContext(ctx).Order("id asc").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to fetch waitlist entries", err)
	}

	return entries, total, nil
}

func (wr *waitlistRepository) AllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	var entries []*models.WaitlistEntry

	if err := wr.db.WithContext(ctx).Order("id asc").Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err)
	}

	return entries, nil
}

func (wr *waitlistRepository) CountEntries(ctx context.Context) (int64, error) {
	var total int64

	if err := wr.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&total).Error; err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	return total, nil
}

func (wr *waitlistRepository) CountBySource(ctx context.Context) ([]models.SourceCount, error) {
	var counts []models.SourceCount

	err := wr.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Select("source, count(*) as count").
		Group("source").
		Order("count desc, source asc").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to aggregate waitlist entries", err)
	}

	return counts, nil
}

func (wr *waitlistRepository) ApplyCleanup(ctx context.Context, removeIDs []uint, rewrites map[uint]string) error {
	err := wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(removeIDs) > 0 {
			if err := tx.Where("id IN ?", removeIDs).Delete(&models.WaitlistEntry{}).Error; err != nil {
				return err
			}
		}

		for id, email := range rewrites {
			err := tx.Model(&models.WaitlistEntry{}).
				Where("id = ?", id).
				Update("email", email).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return apperrors.NewDatabaseError("unable to apply waitlist cleanup", err)
	}

	return nil
}
