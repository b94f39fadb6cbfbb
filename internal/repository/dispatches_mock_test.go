package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*SQLiteDB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &SQLiteDB{db: db}, mock
}

func dispatchRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "district_id", "level", "message", "status", "error", "created_at"}).
		AddRow("d-1", int64(7), int64(3), "HIGH", "Flood risk escalated to HIGH", "pending", "", time.Now().UTC())
}

func TestCommitDispatch_RollsBackWhenLogInsertFails(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, district_id`).
		WithArgs("d-1", "pending").
		WillReturnRows(dispatchRow())
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := repo.CommitDispatch(context.Background(), "d-1", time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitDispatch_RollsBackWhenUserMissing(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, district_id`).
		WithArgs("d-1", "pending").
		WillReturnRows(dispatchRow())
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE users SET last_risk_level`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CommitDispatch(context.Background(), "d-1", time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitDispatch_CommitsAllThreeWrites(t *testing.T) {
	repo, mock := setupMockDB(t)
	sentAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, district_id`).
		WithArgs("d-1", "pending").
		WillReturnRows(dispatchRow())
	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs("d-1", "Flood risk escalated to HIGH", int64(7), int64(3), "HIGH", sentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE users SET last_risk_level`).
		WithArgs("HIGH", sentAt, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE alert_dispatches SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.CommitDispatch(context.Background(), "d-1", sentAt)

	require.NoError(t, err)
	assert.Equal(t, "d-1", entry.ID)
	assert.Equal(t, sentAt, entry.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingDispatches_QueryError(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM alert_dispatches`).
		WillReturnError(errors.New("database is locked"))

	_, err := repo.ListPendingDispatches(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
