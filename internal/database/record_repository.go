package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/202030481266/FengWenServer/internal/domain"
)

// recordColumns must match the scan order in scanRecord.
const recordColumns = `id, email, name, birth_date, birth_time, gender,
	COALESCE(lunar_date, ''),
	COALESCE(preview_result_zh, ''), COALESCE(preview_result_en, ''),
	COALESCE(full_result_zh, ''), COALESCE(full_result_en, ''),
	is_purchased, COALESCE(shopify_order_id, ''), created_at`

// RecordRepo implements domain.RecordRepository backed by PostgreSQL.
type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.AstrologyRecord, error) {
	var r domain.AstrologyRecord
	err := row.Scan(
		&r.ID, &r.Email, &r.Name, &r.BirthDate, &r.BirthTime, &r.Gender,
		&r.LunarDate,
		&r.PreviewResultZH, &r.PreviewResultEN,
		&r.FullResultZH, &r.FullResultEN,
		&r.IsPurchased, &r.ShopifyOrderID, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RecordRepo) Create(ctx context.Context, record *domain.AstrologyRecord) (*domain.AstrologyRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO astrology_records (email, name, birth_date, birth_time, gender, lunar_date, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW())
		RETURNING `+recordColumns,
		record.Email, record.Name, record.BirthDate, record.BirthTime, record.Gender, record.LunarDate,
	)

	created, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert astrology record: %w", err)
	}
	return created, nil
}

func (r *RecordRepo) GetByID(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM astrology_records WHERE id = $1`, id)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load astrology record: %w", err)
	}
	return record, nil
}

func (r *RecordRepo) GetLatestByEmail(ctx context.Context, email string) (*domain.AstrologyRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM astrology_records
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1`, email)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest record for email: %w", err)
	}
	return record, nil
}

// SaveResults writes the reading pipeline outputs. Empty strings leave the
// stored column untouched so each stage stays idempotent.
func (r *RecordRepo) SaveResults(ctx context.Context, id int64, previewZH, previewEN, fullZH, fullEN string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE astrology_records SET
			preview_result_zh = COALESCE(NULLIF($2, ''), preview_result_zh),
			preview_result_en = COALESCE(NULLIF($3, ''), preview_result_en),
			full_result_zh    = COALESCE(NULLIF($4, ''), full_result_zh),
			full_result_en    = COALESCE(NULLIF($5, ''), full_result_en)
		WHERE id = $1`,
		id, previewZH, previewEN, fullZH, fullEN,
	)
	if err != nil {
		return fmt.Errorf("failed to save reading results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepo) MarkPurchased(ctx context.Context, id int64, shopifyOrderID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE astrology_records
		SET is_purchased = TRUE, shopify_order_id = $2
		WHERE id = $1 AND shopify_order_id IS NULL`,
		id, shopifyOrderID,
	)
	if err != nil {
		// The partial unique index rejects an order id already consumed by a
		// different record.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrOrderAlreadyProcessed
		}
		return fmt.Errorf("failed to mark record purchased: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the record does not exist or it already carries an order id.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM astrology_records WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check record existence: %w", err)
		}
		if !exists {
			return domain.ErrRecordNotFound
		}
		return domain.ErrOrderAlreadyProcessed
	}

	return nil
}
