package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateLimitRepo struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepo(pool *pgxpool.Pool) *RateLimitRepo {
	return &RateLimitRepo{pool: pool}
}

// Consume — атомарный fixed-window инкремент без check-then-act гонки:
// условный UPDATE не пустит счётчик выше max, протухшее окно заменяется
// upsert-ом со счётчиком 1.
func (r *RateLimitRepo) Consume(ctx context.Context, walletAddress, actionType string, max int, window time.Duration, now time.Time) (*ConsumeResult, error) {
	windowEnd := now.Add(window)

	// Две итерации: вторая покрывает гонку, когда чужой запрос успел
	// пересоздать окно между нашим UPDATE и upsert-ом.
	for attempt := 0; attempt < 2; attempt++ {
		// 1. Живое окно с запасом квоты — инкрементируем.
		var res ConsumeResult
		err := r.pool.QueryRow(ctx, `
			UPDATE rate_limit_windows
			SET request_count = request_count + 1
			WHERE wallet_address = $1 AND action_type = $2
			  AND window_end > $3 AND request_count < $4
			RETURNING request_count, window_end
		`, walletAddress, actionType, now, max).Scan(&res.Count, &res.WindowEnd)
		if err == nil {
			res.Allowed = true
			return &res, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		// 2. Живое окно без квоты — отказ.
		err = r.pool.QueryRow(ctx, `
			SELECT request_count, window_end FROM rate_limit_windows
			WHERE wallet_address = $1 AND action_type = $2 AND window_end > $3
		`, walletAddress, actionType, now).Scan(&res.Count, &res.WindowEnd)
		if err == nil {
			res.Allowed = false
			return &res, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		// 3. Окна нет или оно протухло — создаём новое со счётчиком 1.
		err = r.pool.QueryRow(ctx, `
			INSERT INTO rate_limit_windows (wallet_address, action_type, request_count, window_start, window_end)
			VALUES ($1, $2, 1, $3, $4)
			ON CONFLICT (wallet_address, action_type) DO UPDATE SET
				request_count = 1,
				window_start = EXCLUDED.window_start,
				window_end = EXCLUDED.window_end
			WHERE rate_limit_windows.window_end <= $3
			RETURNING request_count, window_end
		`, walletAddress, actionType, now, windowEnd).Scan(&res.Count, &res.WindowEnd)
		if err == nil {
			res.Allowed = true
			return &res, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		// Upsert никого не вставил: окно пересоздали параллельно. Ещё круг.
	}

	return nil, errors.New("rate limit window contention")
}
