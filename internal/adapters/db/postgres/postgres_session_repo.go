package postgres

import (
	"context"
	"errors"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSessionRepo struct {
	db *gorm.DB
}

func NewPostgresSessionRepo(db *gorm.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// CreateCapped serializes logins of one user on the user row, so concurrent
// logins cannot both slip under the cap.
func (p *PostgresSessionRepo) CreateCapped(ctx context.Context, s model.Session, max int) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			var owner model.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").Where("id = ?", s.UserID).First(&owner).Error; err != nil {
				return err
			}
		}

		var ids []uuid.UUID
		if err := tx.Model(&model.Session{}).
			Where("user_id = ?", s.UserID).
			Order("created_at DESC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if keep := max - 1; len(ids) > keep {
			if err := tx.Where("id IN ?", ids[keep:]).Delete(&model.Session{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&s).Error
	})
	if err != nil {
		return customErrors.WrapInternal(err, "CreateCapped")
	}
	return nil
}

func (p *PostgresSessionRepo) GetSession(ctx context.Context, id uuid.UUID) (model.Session, error) {
	var s model.Session
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&s)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Session{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession")
	}
	return s, nil
}

func (p *PostgresSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	var out []model.Session
	if err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, customErrors.WrapInternal(err, "ListByUser")
	}
	return out, nil
}

func (p *PostgresSessionRepo) SwapRefreshHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	res := p.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND refresh_token_hash = ?", id, oldHash).
		Update("refresh_token_hash", newHash)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "SwapRefreshHash")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrInvalidSession
	}
	return nil
}

func (p *PostgresSessionRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{}).Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteSession")
	}
	return nil
}

func (p *PostgresSessionRepo) DeleteUserSession(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := p.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Session{})
	if err := res.Error; err != nil {
		return false, customErrors.WrapInternal(err, "DeleteUserSession")
	}
	return res.RowsAffected > 0, nil
}
