package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"support-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (models.User, error)
	Create(ctx context.Context, telegramID, name string, photoURL *string) (models.User, error)
	SetOnboarding(ctx context.Context, id, city, dealerCenter string) error
	ListDealerCenters(ctx context.Context, city string) ([]models.DealerCenterRow, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, telegram_id, name, photo_url, role, city, dealer_center, created_at`

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByTelegramID fetches a user by the external Telegram identity.
func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE telegram_id=$1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// Create inserts a new user with the dealer role.
func (r *UserRepo) Create(ctx context.Context, telegramID, name string, photoURL *string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, telegram_id, name, photo_url, role) VALUES ($1, $2, $3, $4, 'dealer')
         RETURNING `+userColumns,
		uuid.NewString(), telegramID, name, photoURL).StructScan(&user)
	return user, err
}

// SetOnboarding stores the city and dealer-center choice made during onboarding.
func (r *UserRepo) SetOnboarding(ctx context.Context, id, city, dealerCenter string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET city=$2, dealer_center=$3 WHERE id=$1`, id, city, dealerCenter)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListDealerCenters returns dealer centers registered for a city.
func (r *UserRepo) ListDealerCenters(ctx context.Context, city string) ([]models.DealerCenterRow, error) {
	var centers []models.DealerCenterRow
	err := r.db.SelectContext(ctx, &centers, `SELECT id, city, name FROM dealer_centers WHERE city=$1 ORDER BY name ASC`, city)
	return centers, err
}
