package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/goongpt/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, wallet_address, username, email, profile_picture,
	token_balance, total_tokens_earned, daily_tokens_earned, last_token_earn_date,
	credits_balance, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.WalletAddress, &u.Username, &u.Email, &u.ProfilePicture,
		&u.TokenBalance, &u.TotalTokensEarned, &u.DailyTokensEarned, &u.LastTokenEarnDate,
		&u.CreditsBalance, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (wallet_address, username, email, profile_picture)
		VALUES ($1, $2, $3, $4)
		RETURNING id, token_balance, total_tokens_earned, daily_tokens_earned,
			credits_balance, created_at, updated_at
	`, u.WalletAddress, u.Username, u.Email, u.ProfilePicture).Scan(
		&u.ID, &u.TokenBalance, &u.TotalTokensEarned, &u.DailyTokensEarned,
		&u.CreditsBalance, &u.CreatedAt, &u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, walletAddress))
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			profile_picture = COALESCE($4, profile_picture),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, upd.Username, upd.Email, upd.ProfilePicture))
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	return u, err
}

func (r *UserRepo) EarnTokens(ctx context.Context, id uuid.UUID, amount int64, day string, dailyCap int64) (*models.User, error) {
	// Один атомарный UPDATE: смена календарного дня обнуляет дневной
	// счётчик, начисление сверх потолка не проходит условие WHERE.
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			daily_tokens_earned = (CASE WHEN last_token_earn_date = $2 THEN daily_tokens_earned ELSE 0 END) + $3,
			token_balance = token_balance + $3,
			total_tokens_earned = total_tokens_earned + $3,
			last_token_earn_date = $2,
			updated_at = now()
		WHERE id = $1
		  AND (CASE WHEN last_token_earn_date = $2 THEN daily_tokens_earned ELSE 0 END) + $3 <= $4
		RETURNING `+userColumns+`
	`, id, day, amount, dailyCap))
	if errors.Is(err, ErrNotFound) {
		// Либо юзера нет, либо упёрлись в дневной потолок.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrDailyCapReached
	}
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
