package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/repo"
	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
)

var (
	// ErrNotFound is returned when the account has no stored activity record.
	ErrNotFound = errors.New("activity record not found")
	// ErrVersionConflict is returned when a conditional write lost a race.
	ErrVersionConflict = errors.New("activity record version conflict")
)

// Repository persists account activity records. Update is conditional on
// row.Version and bumps it on success.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.AccountActivity, error)
	Create(ctx context.Context, row *models.AccountActivity) error
	Update(ctx context.Context, row *models.AccountActivity) error
}

// NewRow builds the initial row for userID holding rec.
func NewRow(userID uuid.UUID, rec domain.Record) *models.AccountActivity {
	row := &models.AccountActivity{
		UserID:         userID,
		Version:        1,
		MergedSessions: []string{},
	}
	row.Apply(rec)
	return row
}

// GormRepository stores activity rows in the account_activity table.
type GormRepository struct {
	base repo.Base
}

func NewGormRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to tx.
func (r *GormRepository) WithTx(tx *gorm.DB) *GormRepository {
	return &GormRepository{base: r.base.WithTx(tx)}
}

func (r *GormRepository) Get(ctx context.Context, userID uuid.UUID) (*models.AccountActivity, error) {
	var row models.AccountActivity
	if err := r.base.DB(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *GormRepository) Create(ctx context.Context, row *models.AccountActivity) error {
	if row.Version < 1 {
		row.Version = 1
	}
	if err := r.base.DB(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *GormRepository) Update(ctx context.Context, row *models.AccountActivity) error {
	expected := row.Version
	row.Version = expected + 1

	res := r.base.DB(ctx).
		Model(row).
		Where("version = ?", expected).
		Select("cart", "viewed_products", "search_history", "merged_sessions", "last_activity", "version", "updated_at").
		Updates(row)
	if res.Error != nil {
		row.Version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		row.Version = expected
		return ErrVersionConflict
	}
	return nil
}

// Initialize creates an empty record for a newly registered user. Pass the
// registration transaction so both rows commit together.
func (r *GormRepository) Initialize(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) error {
	return r.WithTx(tx).Create(ctx, NewRow(userID, domain.Empty(now)))
}
