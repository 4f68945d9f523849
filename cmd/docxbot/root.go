package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikishkaa/docx-bot/internal/config"
	"github.com/nikishkaa/docx-bot/internal/database"
	"github.com/nikishkaa/docx-bot/internal/database/migration"
	"github.com/nikishkaa/docx-bot/internal/ledger"
	"github.com/nikishkaa/docx-bot/internal/logging"
	"github.com/nikishkaa/docx-bot/internal/repository/postgres"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
)

// runtime is what every subcommand starts from: configuration from the
// environment (.env auto-loaded) and the process logger.
type runtime struct {
	cfg *config.AppConfig
	loc *time.Location
	log *slog.Logger
}

var (
	rt       runtime
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "docxbot",
	Short: "Telegram file store bot",
	Long: `docxbot keeps a categorized file store that Telegram users browse,
search, download from and upload to. It counts downloads per user and
offers an optional AI chat mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		rt.cfg = config.Load()
		if logLevel != "" {
			rt.cfg.Log.Level = logLevel
		}
		rt.loc = rt.cfg.Location()
		rt.log = logging.New(cmd.ErrOrStderr(), rt.cfg.Log.Level, rt.cfg.Log.Format, rt.loc)
		slog.SetDefault(rt.log)
	},
}

// Execute runs the command tree. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}

// openStore loads the taxonomy and binds it to the storage root.
func (r *runtime) openStore() (*taxonomy.Store, error) {
	tax, err := taxonomy.Load(r.cfg.Storage.TaxonomyFile)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewStore(r.cfg.Storage.Root, tax), nil
}

// openLedger loads the download ledger from the configured backend.
// The returned *sql.DB is nil for the json backend; the caller closes it otherwise.
func (r *runtime) openLedger(ctx context.Context) (*ledger.Ledger, *sql.DB, error) {
	var (
		store ledger.Persister
		db    *sql.DB
	)
	switch r.cfg.Ledger.Backend {
	case "postgres":
		var err error
		db, err = database.OpenLedgerDB(ctx, r.cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, r.log, r.cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store = postgres.NewDownloadPostgres(db)
	default:
		store = ledger.NewJSONFile(r.cfg.Ledger.Path)
	}

	l := ledger.New(store)
	if err := l.Load(ctx); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, db, nil
}
