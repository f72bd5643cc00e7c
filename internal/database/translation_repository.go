package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const translationColumns = `id, chinese_text, english_text, created_at, updated_at`

// TranslationRepo implements domain.TranslationRepository backed by PostgreSQL.
type TranslationRepo struct {
	pool *pgxpool.Pool
}

func NewTranslationRepo(pool *pgxpool.Pool) *TranslationRepo {
	return &TranslationRepo{pool: pool}
}

func scanTranslation(row rowScanner) (*domain.TranslationPair, error) {
	var tp domain.TranslationPair
	err := row.Scan(&tp.ID, &tp.ChineseText, &tp.EnglishText, &tp.CreatedAt, &tp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func (r *TranslationRepo) List(ctx context.Context) ([]domain.TranslationPair, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+translationColumns+` FROM translation_pairs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list translation pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.TranslationPair
	for rows.Next() {
		tp, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan translation pair: %w", err)
		}
		pairs = append(pairs, *tp)
	}
	return pairs, rows.Err()
}

func (r *TranslationRepo) Create(ctx context.Context, chineseText, englishText string) (*domain.TranslationPair, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO translation_pairs (chinese_text, english_text, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING `+translationColumns,
		chineseText, englishText,
	)

	tp, err := scanTranslation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert translation pair: %w", err)
	}
	return tp, nil
}

func (r *TranslationRepo) Update(ctx context.Context, id int64, chineseText, englishText string) (*domain.TranslationPair, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE translation_pairs
		SET chinese_text = $2, english_text = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+translationColumns,
		id, chineseText, englishText,
	)

	tp, err := scanTranslation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTranslationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update translation pair: %w", err)
	}
	return tp, nil
}

func (r *TranslationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM translation_pairs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete translation pair: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTranslationNotFound
	}
	return nil
}
