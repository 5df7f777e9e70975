package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestMigrationFiles_ShippedMigrations(t *testing.T) {
	files, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"001_contact_messages.sql",
		"002_newsletter_subscriptions.sql",
		"003_newsletter_email_unique.sql",
	}, files)
}

func TestShippedMigrations_UniqueEmailOnExistingTable(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "migrations", "003_newsletter_email_unique.sql"))
	require.NoError(t, err)

	stmt := string(data)
	assert.Contains(t, stmt, "CREATE UNIQUE INDEX IF NOT EXISTS")
	assert.Contains(t, stmt, "ON newsletter_subscriptions (email)")
}

func TestApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.NoError(t, apply(context.Background(), db, "CREATE TABLE t (id int)"))

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()
	assert.ErrorContains(t, apply(context.Background(), db, "CREATE TABLE oops"), "syntax error")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_HoldsAdvisoryLock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.sql"), []byte("CREATE TABLE a (id int);"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_empty.sql"), []byte("  \n"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))

	okCount, errCount, err := run(context.Background(), db, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 0, errCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RefusesWhileAnotherMigrationRuns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.sql"), []byte("CREATE TABLE a (id int);"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	_, _, err = run(context.Background(), db, dir)
	assert.ErrorContains(t, err, "already running")
	assert.NoError(t, mock.ExpectationsWereMet())
}
