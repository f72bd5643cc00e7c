package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const productColumns = `id, name, COALESCE(image_url, ''), COALESCE(redirect_url, ''), created_at, updated_at`

// storefrontSize is the number of product tiles the landing page shows.
const storefrontSize = 3

const placeholderImageURL = "https://via.placeholder.com/300x200"

// ProductRepo implements domain.ProductRepository backed by PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.ImageURL, &p.RedirectURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *ProductRepo) EnsureThree(ctx context.Context) ([]domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for len(products) < storefrontSize {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO products (name, image_url, redirect_url, created_at, updated_at)
			VALUES ($1, $2, '#', NOW(), NOW())
			RETURNING `+productColumns,
			fmt.Sprintf("Product %d", len(products)+1), placeholderImageURL,
		)
		p, err := scanProduct(row)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill product: %w", err)
		}
		products = append(products, *p)
	}

	return products[:storefrontSize], nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return p, nil
}

// Update applies only the provided fields; nil pointers leave columns unchanged.
func (r *ProductRepo) Update(ctx context.Context, id int64, name, imageURL, redirectURL *string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			image_url = COALESCE($3, image_url),
			redirect_url = COALESCE($4, redirect_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		id, name, imageURL, redirectURL,
	)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}
