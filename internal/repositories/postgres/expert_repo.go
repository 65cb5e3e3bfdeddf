package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nikhilkumar000/Intern/internal/models"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

// ExpertRepository reads and updates the account store's experts table.
type ExpertRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	SetCurrentStatus(ctx context.Context, id string, status models.ExpertStatus) error
	ResetStatuses(ctx context.Context) (int64, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Expert, error)
}

type expertRepo struct {
	db *gorm.DB
}

func NewExpertRepo(db *gorm.DB) ExpertRepository {
	return &expertRepo{db: db}
}

func (r *expertRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Expert{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (r *expertRepo) SetCurrentStatus(ctx context.Context, id string, status models.ExpertStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Expert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_status": status,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// ResetStatuses marks every expert still flagged online or busy as offline.
// Run at startup, before any connection can register.
func (r *expertRepo) ResetStatuses(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Expert{}).
		Where("current_status IN ?", []models.ExpertStatus{models.ExpertOnline, models.ExpertBusy}).
		Updates(map[string]any{
			"current_status": models.ExpertOffline,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *expertRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Expert, error) {
	if len(ids) == 0 {
		return []models.Expert{}, nil
	}
	var experts []models.Expert
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&experts).Error
	return experts, err
}
