package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/domain"
)

// CreateTestRecord inserts an astrology record with default values for testing.
func CreateTestRecord(t *testing.T, pool *pgxpool.Pool, email string) *domain.AstrologyRecord {
	t.Helper()

	repo := NewRecordRepo(pool)
	record, err := repo.Create(context.Background(), &domain.AstrologyRecord{
		Email:     email,
		Name:      "Test User",
		BirthDate: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		BirthTime: "08:30",
		Gender:    "Female",
		LunarDate: "1990-05-23",
	})
	require.NoError(t, err)
	require.NotZero(t, record.ID)

	return record
}
