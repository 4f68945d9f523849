package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/nikishkaa/docx-bot/internal/ledger"
)

// DownloadPostgres persists the download ledger in the download_counts table.
// It uses database/sql with parameterized queries and contains no business logic.
type DownloadPostgres struct {
	db *sql.DB
}

// NewDownloadPostgres creates a new DownloadPostgres persister.
func NewDownloadPostgres(db *sql.DB) *DownloadPostgres {
	return &DownloadPostgres{db: db}
}

var _ ledger.Persister = (*DownloadPostgres)(nil)

// Load reads every counter row into memory.
func (r *DownloadPostgres) Load(ctx context.Context) (ledger.Counts, error) {
	const q = `
		SELECT file_name, user_id, count
		FROM download_counts
		ORDER BY file_name, user_id
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := ledger.Counts{}
	for rows.Next() {
		var (
			file, user string
			n          int64
		)
		if err := rows.Scan(&file, &user, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", ledger.ErrMalformed, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d for %q/%q", ledger.ErrMalformed, n, file, user)
		}
		users, ok := out[file]
		if !ok {
			users = make(map[string]int)
			out[file] = users
		}
		users[user] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the table contents with c in a single transaction.
func (r *DownloadPostgres) Save(ctx context.Context, c ledger.Counts) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM download_counts`); err != nil {
		return fmt.Errorf("clear counts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO download_counts (file_name, user_id, count, updated_at)
		VALUES ($1, $2, $3, now())
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, file := range sortedKeys(c) {
		users := c[file]
		for _, user := range sortedKeys(users) {
			if _, err = stmt.ExecContext(ctx, file, user, users[user]); err != nil {
				return fmt.Errorf("insert count %q/%q: %w", file, user, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
