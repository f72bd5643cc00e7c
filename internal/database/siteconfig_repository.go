package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const siteConfigColumns = `id, config_key, config_value, updated_at`

// SiteConfigRepo implements domain.SiteConfigRepository backed by PostgreSQL.
type SiteConfigRepo struct {
	pool *pgxpool.Pool
}

func NewSiteConfigRepo(pool *pgxpool.Pool) *SiteConfigRepo {
	return &SiteConfigRepo{pool: pool}
}

func scanSiteConfig(row rowScanner) (*domain.SiteConfig, error) {
	var sc domain.SiteConfig
	err := row.Scan(&sc.ID, &sc.Key, &sc.Value, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *SiteConfigRepo) Get(ctx context.Context, key string) (*domain.SiteConfig, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+siteConfigColumns+` FROM site_config WHERE config_key = $1`, key)

	sc, err := scanSiteConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site config: %w", err)
	}
	return sc, nil
}

func (r *SiteConfigRepo) Set(ctx context.Context, key, value string) (*domain.SiteConfig, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO site_config (config_key, config_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (config_key) DO UPDATE SET
			config_value = EXCLUDED.config_value,
			updated_at = NOW()
		RETURNING `+siteConfigColumns,
		key, value,
	)

	sc, err := scanSiteConfig(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert site config: %w", err)
	}
	return sc, nil
}

func (r *SiteConfigRepo) List(ctx context.Context) ([]domain.SiteConfig, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+siteConfigColumns+` FROM site_config ORDER BY config_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list site config: %w", err)
	}
	defer rows.Close()

	var configs []domain.SiteConfig
	for rows.Next() {
		sc, err := scanSiteConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site config: %w", err)
		}
		configs = append(configs, *sc)
	}
	return configs, rows.Err()
}
