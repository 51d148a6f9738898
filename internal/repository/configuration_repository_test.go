package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/models"
)

func newConfigurationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestConfigurationRepositoryGet(t *testing.T) {
	db, mock, cleanup := newConfigurationRepoMock(t)
	defer cleanup()

	repo := NewConfigurationRepository(db)
	rows := sqlmock.NewRows([]string{"key", "value", "type", "description", "updated_by", "updated_at"}).
		AddRow(models.ConfigKeyFirstDayOfWeek, "1", "INTEGER", nil, "admin-1", time.Now())
	mock.ExpectQuery("SELECT key, value").
		WithArgs(models.ConfigKeyFirstDayOfWeek).
		WillReturnRows(rows)

	cfg, err := repo.Get(context.Background(), models.ConfigKeyFirstDayOfWeek)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Value)
	assert.Equal(t, models.ConfigurationTypeInteger, cfg.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newConfigurationRepoMock(t)
	defer cleanup()

	repo := NewConfigurationRepository(db)
	mock.ExpectQuery("SELECT key, value").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), models.ConfigKeyFirstDayOfWeek)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newConfigurationRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.ConfigKeyFirstDayOfWeek, "6", "INTEGER", sqlmock.AnyArg(), "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	admin := "admin-1"
	cfg := &models.Configuration{
		Key:       models.ConfigKeyFirstDayOfWeek,
		Value:     "6",
		Type:      models.ConfigurationTypeInteger,
		UpdatedBy: &admin,
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.False(t, cfg.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
