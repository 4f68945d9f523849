package migration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()
	const check = `SELECT to_regclass\('public.download_counts'\) IS NOT NULL`

	tests := []struct {
		name       string
		setupMocks func(mock sqlmock.Sqlmock)
		wantErr    string
		wantEvent  string
	}{
		{
			name: "schema exists",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(check).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantEvent: "db_migration_skip",
		},
		{
			name: "fresh database",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(check).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS download_counts").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_download_counts_user_id").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantEvent: "db_migration_success",
		},
		{
			name: "check fails",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(check).WillReturnError(errors.New("conn refused"))
			},
			wantErr:   "failed to check sentinel table",
			wantEvent: "db_migration_failed",
		},
		{
			name: "step fails",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(check).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS download_counts").WillReturnError(errors.New("permission denied"))
			},
			wantErr:   "migration step create_table_download_counts failed",
			wantEvent: "db_migration_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMocks(mock)

			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))

			err = EnsureMigrated(ctx, db, log, "db.local")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), `"event":"`+tt.wantEvent+`"`)
			assert.Contains(t, buf.String(), `"db_host":"db.local"`)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
