package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostgres(t *testing.T) (*PostgresCache, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cache_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	pc, err := NewPostgresCacheFromDB(context.Background(), db)
	require.NoError(t, err)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pc.now = func() time.Time { return fixed }
	return pc, mock
}

func TestPostgresCacheMigrateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	_, err = NewPostgresCacheFromDB(context.Background(), db)
	assert.ErrorContains(t, err, "postgres: migrate")
}

func TestPostgresCacheGetHit(t *testing.T) {
	pc, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT value FROM cache_entries WHERE key").
		WithArgs("valuation:k", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	val, ok, err := pc.Get(context.Background(), "valuation:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheGetMiss(t *testing.T) {
	pc, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT value FROM cache_entries").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := pc.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresCacheGetError(t *testing.T) {
	pc, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT value FROM cache_entries").
		WillReturnError(errors.New("connection reset"))

	_, ok, err := pc.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPostgresCacheSetUpserts(t *testing.T) {
	pc, mock := newTestPostgres(t)

	mock.ExpectExec("INSERT INTO cache_entries").
		WithArgs("k", "v", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, pc.Set(context.Background(), "k", "v", 30*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCachePurge(t *testing.T) {
	pc, mock := newTestPostgres(t)

	mock.ExpectExec("DELETE FROM cache_entries WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := pc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
