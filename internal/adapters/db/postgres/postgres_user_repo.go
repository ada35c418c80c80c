package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User, cred *model.Credential) (uuid.UUID, error) {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if cred != nil {
			cred.UserID = user.ID
			return tx.Create(cred).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, customErrors.ErrUserExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("email = ?", email).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByEmail")
	}

	return u, nil
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByID")
	}

	return u, nil
}

// UpdateUser writes every column of user, so nil OTP fields are cleared.
func (p *PostgresUserRepo) UpdateUser(ctx context.Context, user model.User, cred *model.Credential) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if cred == nil {
			return nil
		}
		cred.UserID = user.ID
		cred.UpdatedAt = time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "updated_at"}),
		}).Create(cred).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrUserExists
		}
		return customErrors.WrapInternal(err, "UpdateUser")
	}
	return nil
}

func (p *PostgresUserRepo) GetCredential(ctx context.Context, userID uuid.UUID) (model.Credential, error) {
	var c model.Credential
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&c)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Credential{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.Credential{}, customErrors.WrapInternal(err, "GetCredential")
	}
	return c, nil
}
