package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rkershaw/proxydeck/internal/audit"
	"github.com/rkershaw/proxydeck/internal/auth"
	"github.com/rkershaw/proxydeck/internal/certs"
	"github.com/rkershaw/proxydeck/internal/config"
	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/dnscheck"
	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/logging"
	"github.com/rkershaw/proxydeck/internal/metrics"
	"github.com/rkershaw/proxydeck/internal/server"
	"github.com/rkershaw/proxydeck/internal/service"
	"github.com/rkershaw/proxydeck/internal/syncer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveFlags struct {
	configPath string
	dbPath     string
	apiAddr    string
	engineURL  string
	engineBin  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the management API and engine synchronizer",
	Long: `Start the proxydeck server: the management REST API, the audit
writer, the scheduled engine liveness poll, and the configuration
synchronizer that pushes host records to the engine's admin API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.configPath, "config", os.Getenv("PROXYDECK_CONFIG"), "path to YAML config file")
	serveCmd.Flags().StringVar(&serveFlags.dbPath, "db", "", "database path (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.apiAddr, "api-addr", "", "management API listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.engineURL, "engine-url", "", "engine admin API base URL (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.engineBin, "engine-bin", "", "engine binary path for hash-password (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveFlags.dbPath != "" {
		cfg.DBPath = serveFlags.dbPath
	}
	if serveFlags.apiAddr != "" {
		cfg.APIAddr = serveFlags.apiAddr
	}
	if serveFlags.engineURL != "" {
		cfg.Engine.AdminURL = serveFlags.engineURL
	}
	if serveFlags.engineBin != "" {
		cfg.Engine.Binary = serveFlags.engineBin
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := bootstrapAdmin(database); err != nil {
		return err
	}

	m := metrics.New()
	engineClient := engine.NewClient(cfg.Engine.AdminURL)
	hasher := engine.NewHasher(cfg.Engine.Binary, logger)
	prober := certs.NewProber(engineClient, logger, m)
	recorder := audit.NewRecorder(database, logger, m)
	sync := syncer.New(database, engineClient, logger, m)

	resolver, err := dnscheck.New()
	if err != nil {
		logger.Warn("DNS preflight disabled", zap.Error(err))
		resolver = nil
	}

	svc := service.New(database, logger, m, hasher, sync, recorder, prober, resolver)

	apiServer := &server.APIServer{
		DB:      database,
		Service: svc,
		Syncer:  sync,
		Logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", apiServer.Handler())

	managed := server.NewManagedServer("api", cfg.APIAddr, mux, logger)
	managed.Start()
	if err := managed.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}
	logger.Info("management API listening", logging.Addr(cfg.APIAddr))

	// Reconcile the engine on startup so it serves the store's current
	// state even after a crash or missed push.
	ctx := context.Background()
	if err := sync.Reload(ctx); err != nil {
		logger.Warn("initial engine sync failed", zap.Error(err))
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc("@every 30s", func() {
		sync.Status(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule liveness poll: %w", err)
	}
	_, err = scheduler.AddFunc("@daily", func() {
		sweepExpiringCertificates(context.Background(), svc)
	})
	if err != nil {
		return fmt.Errorf("schedule certificate sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if serveFlags.configPath != "" {
		stopWatch, err := watchConfig(serveFlags.configPath, sync)
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		} else {
			defer stopWatch()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	managed.Shutdown(shutdownCtx)
	recorder.Close()
	return nil
}

// bootstrapAdmin creates the first operator account and its API key on an
// empty database, printing the key once.
func bootstrapAdmin(database *sql.DB) error {
	count, err := db.CountUsers(database)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	userID, err := db.CreateUser(database, "Administrator", "admin@localhost", "!")
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	displayKey, prefix, hash, err := auth.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	if _, err := db.CreateAPIKey(database, userID, prefix, hash); err != nil {
		return fmt.Errorf("create API key: %w", err)
	}

	fmt.Println("=============================================================")
	fmt.Println("API KEY CREATED (save this, it will not be shown again):")
	fmt.Println(displayKey)
	fmt.Println("=============================================================")
	return nil
}

// sweepExpiringCertificates logs SSL hosts whose certificates expire
// within two weeks.
func sweepExpiringCertificates(ctx context.Context, svc *service.Service) {
	hosts, err := svc.GetAllHostsWithStatus(ctx)
	if err != nil {
		logger.Warn("certificate sweep failed", zap.Error(err))
		return
	}
	for _, h := range hosts {
		cert := h.Certificate
		if cert == nil || cert.DaysRemaining == nil {
			continue
		}
		if *cert.DaysRemaining <= 14 {
			logger.Warn("certificate expiring soon",
				logging.Domain(h.Host.Domain),
				zap.Int("days_remaining", *cert.DaysRemaining))
		}
	}
}

// watchConfig triggers an engine resync when the config file changes, so
// an operator edit is followed by a reconcile without a restart.
func watchConfig(path string, sync *syncer.Synchronizer) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				logger.Info("config file changed, resyncing engine", logging.Path(path))
				if err := sync.Reload(context.Background()); err != nil {
					logger.Warn("resync after config change failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watch error", zap.Error(err))
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
