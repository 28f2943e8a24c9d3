package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/adapters/ftp"
	"github.com/atlasvoyages/cruisesync/internal/adapters/httpapi"
	"github.com/atlasvoyages/cruisesync/internal/adapters/metrics"
	"github.com/atlasvoyages/cruisesync/internal/adapters/persistence"
	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/application/importer"
	"github.com/atlasvoyages/cruisesync/internal/application/maintenance"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/database"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/logging"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/pidfile"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/scheduler"
)

var configPath string

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cruisesync",
		Short: "Cruise catalog sync daemon and maintenance tooling",
		Long: `cruisesync ingests vendor sailing feeds over FTP into the cruise
catalog database. The serve command runs the HTTP control surface plus
the cron scheduler; the remaining commands run one job and exit.

Examples:
  cruisesync serve
  cruisesync sync --year 2026 --month 6
  cruisesync sync --dry-run --max-files 50
  cruisesync cleanup --preview
  cruisesync purge`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ., ./configs, /etc/cruisesync)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newPurgeCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newStubReportCommand())
	return rootCmd
}

// app wires configuration, database, feed adapters and services for one
// command invocation.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	logger common.Logger
	clock  shared.Clock

	feed     *ftp.Client
	pool     *ftp.Pool
	cache    common.ReferenceCache
	importer common.SailingImporter
	history  common.SyncHistoryRepository
	sync     *importer.SyncService
	purge    *maintenance.PurgeService
	cleanup  *maintenance.CleanupService
	stubs    *maintenance.StubReportService
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	clock := shared.NewRealClock()
	logger := logging.NewLogger(&cfg.Logging, clock)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cache := importer.NewReferenceCache(clock)
	sailingImporter := persistence.NewGormSailingImporter(db, cache, cfg.Sync.Provider, clock)
	history := persistence.NewGormSyncHistoryRepository(db)
	fileSync := persistence.NewGormFileSyncRepository(db)

	feed := ftp.NewClient(cfg.FTP)
	pool := ftp.NewPool(cfg.FTP)

	syncService := importer.NewSyncService(
		feed, pool, sailingImporter, cache, fileSync, history, clock,
		importer.GuardConfig{
			APIURL:        cfg.Sync.APIURL,
			ProductionURL: cfg.Sync.ProductionURL,
			Bypass:        cfg.Sync.BypassEnvironmentGuard,
		},
	)

	a := &app{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		clock:    clock,
		feed:     feed,
		pool:     pool,
		cache:    cache,
		importer: sailingImporter,
		history:  history,
		sync:     syncService,
		purge:    maintenance.NewPurgeService(persistence.NewGormRawPayloadRepository(db), clock),
		cleanup:  maintenance.NewCleanupService(persistence.NewGormSailingCleanupRepository(db), clock, cfg.Sync.CleanupDaysBuffer),
		stubs:    maintenance.NewStubReportService(persistence.NewGormStubReportRepository(db), clock),
	}
	return a, nil
}

func (a *app) close() {
	a.feed.Disconnect()
	if a.db != nil {
		_ = database.Close(a.db)
	}
}

// ctx returns a base context carrying the process logger
func (a *app) ctx() context.Context {
	return common.WithLogger(context.Background(), a.logger)
}

// syncOptions overlays configured tuning onto request options; zero
// fields fall through to the config, then to built-in defaults.
func (a *app) syncOptions(opts ingestion.SyncOptions) ingestion.SyncOptions {
	sync := a.cfg.Sync
	if opts.MaxFileSizeBytes == 0 && sync.MaxFileSizeBytes > 0 {
		opts.MaxFileSizeBytes = sync.MaxFileSizeBytes
	}
	if opts.FileTimeoutMs == 0 && sync.FileTimeoutMs > 0 {
		opts.FileTimeoutMs = sync.FileTimeoutMs
	}
	if opts.RetryAttempts == 0 && sync.RetryAttempts > 0 {
		opts.RetryAttempts = sync.RetryAttempts
	}
	if opts.RetryDelayMs == 0 && sync.RetryDelayMs > 0 {
		opts.RetryDelayMs = sync.RetryDelayMs
	}
	if opts.Concurrency == 0 && sync.Concurrency > 0 {
		opts.Concurrency = sync.Concurrency
	}
	return opts
}

// configuredRunner feeds config-derived options into scheduled syncs
type configuredRunner struct {
	app *app
}

func (r *configuredRunner) Run(ctx context.Context, opts ingestion.SyncOptions) (ingestion.ImportMetrics, string, error) {
	return r.app.sync.Run(ctx, r.app.syncOptions(opts))
}

func newServeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon: HTTP API plus cron scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runServe(a, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Kill an existing daemon instance and take over")
	return cmd
}

func runServe(a *app, force bool) error {
	pf := pidfile.New(a.cfg.Server.PIDFile)
	if err := pf.Acquire(); err != nil {
		if !force {
			return fmt.Errorf("%w\nUse --force to kill the existing daemon", err)
		}
		a.logger.Log("warn", "killing existing daemon instance", nil)
		if killErr := pf.KillExisting(); killErr != nil {
			return fmt.Errorf("failed to kill existing daemon: %w", killErr)
		}
		if err := pf.Acquire(); err != nil {
			return fmt.Errorf("failed to acquire PID file after takeover: %w", err)
		}
	}
	defer func() {
		if err := pf.Release(); err != nil {
			a.logger.Log("warn", "failed to release PID file", map[string]interface{}{"error": err.Error()})
		}
	}()

	metrics.InitRegistry()
	collector := metrics.NewSyncMetricsCollector()
	if err := collector.Register(); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.sync.SetObserver(collector)

	server := httpapi.NewServer(httpapi.Deps{
		Sync:     a.sync,
		History:  a.history,
		Feed:     a.feed,
		Cache:    a.cache,
		Purge:    a.purge,
		Cleanup:  a.cleanup,
		Stubs:    a.stubs,
		Importer: a.importer,
		DB:       a.db,
		Logger:   a.logger,
	})

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		locker := persistence.NewPgAdvisoryLocker(a.db)
		scheduled := importer.NewScheduledSync(
			&configuredRunner{app: a}, locker, a.clock,
			a.cfg.Scheduler.MaxRetries, a.cfg.Scheduler.RetryInitialDelay,
		)
		var err error
		sched, err = scheduler.New(&a.cfg.Scheduler, scheduler.Jobs{
			Sync:    scheduled,
			Purge:   a.purge,
			Cleanup: a.cleanup,
			Stubs:   a.stubs,
		}, a.logger)
		if err != nil {
			return err
		}
		sched.Start()
	} else {
		a.logger.Log("info", "scheduler disabled, jobs run via API only", nil)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Log("info", "http server listening", map[string]interface{}{"addr": addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case sig := <-stop:
		a.logger.Log("info", "shutting down", map[string]interface{}{"signal": sig.String()})
	}

	a.sync.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}

func newSyncCommand() *cobra.Command {
	var opts ingestion.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one import of the vendor feed and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			result, runID, err := a.sync.Run(a.ctx(), a.syncOptions(opts))
			if err != nil {
				return err
			}
			fmt.Printf("Sync %s finished\n", runID)
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Discover files without downloading or importing")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "Restrict discovery to one year")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "Restrict discovery to one month (1-12)")
	cmd.Flags().StringVar(&opts.LineID, "line", "", "Restrict discovery to one cruise line ID")
	cmd.Flags().StringVar(&opts.ShipID, "ship", "", "Restrict discovery to one ship ID")
	cmd.Flags().IntVar(&opts.MaxFiles, "max-files", 0, "Stop after this many files")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Worker count (max 8)")
	cmd.Flags().BoolVar(&opts.ForceFullSync, "force-full", false, "Ignore delta state and reprocess every file")
	cmd.Flags().BoolVar(&opts.IncludeHistorical, "include-historical", false, "Walk feed years before the current year")
	return cmd
}

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired raw vendor payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.purge.PurgeExpired(a.ctx())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newCleanupCommand() *cobra.Command {
	var preview bool
	var daysBuffer int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove sailings that ended before the cutoff date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var override *int
			if cmd.Flags().Changed("days-buffer") {
				override = &daysBuffer
			}
			if preview {
				result, err := a.cleanup.Preview(a.ctx(), override)
				if err != nil {
					return err
				}
				return printJSON(result)
			}
			result, err := a.cleanup.Run(a.ctx(), override)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "Count affected rows without deleting")
	cmd.Flags().IntVar(&daysBuffer, "days-buffer", 0, "Keep sailings that ended within this many days (overrides config)")
	return cmd
}

func newStubReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stub-report",
		Short: "Report catalog rows created as stubs during import",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.stubs.Report(a.ctx())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
