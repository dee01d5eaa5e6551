package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/database/dbtest"
)

func insertUser(ctx context.Context, q database.DBTX, id, email string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO users (id, email, password, full_name, username) VALUES (?, ?, 'x', 'X', ?)",
		id, email, id)
	return err
}

func countUsers(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	return n
}

func TestWithTxCommits(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	err := database.WithTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return insertUser(ctx, tx, "u1", "a@x.com")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, db))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.WithTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertUser(ctx, tx, "u1", "a@x.com"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countUsers(t, db))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = database.WithTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			_ = insertUser(ctx, tx, "u1", "a@x.com")
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countUsers(t, db))
}

func TestWithTxIgnoresCallerCancellation(t *testing.T) {
	db := dbtest.Open(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := database.WithTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		cancel()
		return insertUser(ctx, tx, "u1", "a@x.com")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, db))
}

func TestUniqueViolation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, insertUser(ctx, db, "u1", "a@x.com"))
	err := insertUser(ctx, db, "u2", "a@x.com")
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_real\\`, database.EscapeLike(`100% _real\`))
}
