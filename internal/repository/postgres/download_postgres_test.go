package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikishkaa/docx-bot/internal/ledger"
)

func TestDownloadPostgres_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"file_name", "user_id", "count"}).
			AddRow("a.zip", "42", 2).
			AddRow("a.zip", "7", 1).
			AddRow("b.pdf", "42", 5)
		mock.ExpectQuery("SELECT file_name, user_id, count FROM download_counts").WillReturnRows(rows)

		got, err := NewDownloadPostgres(db).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, ledger.Counts{
			"a.zip": {"42": 2, "7": 1},
			"b.pdf": {"42": 5},
		}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM download_counts").
			WillReturnRows(sqlmock.NewRows([]string{"file_name", "user_id", "count"}))

		got, err := NewDownloadPostgres(db).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("negative count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM download_counts").
			WillReturnRows(sqlmock.NewRows([]string{"file_name", "user_id", "count"}).AddRow("a", "1", -3))

		_, err = NewDownloadPostgres(db).Load(ctx)
		assert.ErrorIs(t, err, ledger.ErrMalformed)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM download_counts").WillReturnError(errors.New("relation does not exist"))

		_, err = NewDownloadPostgres(db).Load(ctx)
		assert.Error(t, err)
	})
}

func TestDownloadPostgres_Save(t *testing.T) {
	ctx := context.Background()
	counts := ledger.Counts{
		"b.pdf": {"42": 5},
		"a.zip": {"7": 1, "42": 2},
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM download_counts").WillReturnResult(sqlmock.NewResult(0, 3))
		prep := mock.ExpectPrepare("INSERT INTO download_counts")
		prep.ExpectExec().WithArgs("a.zip", "42", 2).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs("a.zip", "7", 1).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs("b.pdf", "42", 5).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, NewDownloadPostgres(db).Save(ctx, counts))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert fails rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM download_counts").WillReturnResult(sqlmock.NewResult(0, 0))
		prep := mock.ExpectPrepare("INSERT INTO download_counts")
		prep.ExpectExec().WithArgs("a.zip", "42", 2).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err = NewDownloadPostgres(db).Save(ctx, counts)
		assert.ErrorContains(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("no conn"))

		err = NewDownloadPostgres(db).Save(ctx, counts)
		assert.ErrorContains(t, err, "begin tx")
	})
}
