// Command worker runs one replica of the batch-extraction worker: it
// contends for the per-worker lease, and whichever replica wins extracts
// every configured file to completion before releasing.
//
// Usage:
//
//	go run github.com/acme/batchworker/cmd/worker
//
// Configuration is read from WORKER_* environment variables, with an
// optional file overlay named by WORKER_CONFIG_FILE. See config.Load.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/config"
	"github.com/acme/batchworker/health"
	"github.com/acme/batchworker/logging"
	"github.com/acme/batchworker/metrics"
	"github.com/acme/batchworker/orchestrator"
	"github.com/acme/batchworker/pagereader"
	"github.com/acme/batchworker/publisher"
	"github.com/acme/batchworker/retry"
	"github.com/acme/batchworker/store"
	mysqlstore "github.com/acme/batchworker/store/mysql"
	pgstore "github.com/acme/batchworker/store/postgres"
	sqlitestore "github.com/acme/batchworker/store/sqlite"
	"github.com/acme/batchworker/translator"
	"github.com/acme/batchworker/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.NewSlog(logging.ParseLevel(cfg.LogLevel))
	instanceID := uuid.NewString()

	viewDB, err := sql.Open(driverName(cfg.SQLDialect), cfg.ConnectionString)
	if err != nil {
		log.Fatalf("opening view database: %v", err)
	}
	defer viewDB.Close()

	stateDB := viewDB
	if cfg.StateConnectionString != cfg.ConnectionString || cfg.StateDialect != cfg.SQLDialect {
		stateDB, err = sql.Open(driverName(cfg.StateDialect), cfg.StateConnectionString)
		if err != nil {
			log.Fatalf("opening state database: %v", err)
		}
		defer stateDB.Close()
	}

	leaseStore, progressStore, err := newStores(stateDB, cfg)
	if err != nil {
		log.Fatalf("constructing state stores: %v", err)
	}

	reader, err := pagereader.New(viewDB, pagereader.Config{
		ViewName: cfg.ViewName,
		OrderBy:  cfg.OrderBy,
		PageSize: cfg.PageSize,
		Dialect:  pagereader.Dialect(cfg.SQLDialect),
		RetryConfig: retry.Config{
			MaxRetries:        cfg.MaxRetries,
			InitialBackoff:    cfg.InitialBackoff,
			BackoffMultiplier: cfg.BackoffMultiplier,
		},
	})
	if err != nil {
		log.Fatalf("constructing page reader: %v", err)
	}

	pub, err := publisher.NewAMQPPublisher(publisher.AMQPConfig{
		BootstrapServers: cfg.BootstrapServers,
		Topic:            cfg.Topic,
		ConsumerGroup:    cfg.ConsumerGroup,
		TimeoutMs:        cfg.TimeoutMs,
		RetryConfig: retry.Config{
			MaxRetries:        cfg.MaxRetries,
			InitialBackoff:    cfg.InitialBackoff,
			BackoffMultiplier: cfg.BackoffMultiplier,
		},
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("connecting to message bus: %v", err)
	}
	defer pub.Close()

	registry := translator.NewRegistry()
	if err := registry.Register("csv", translator.CSVTranslator{Columns: csvColumnsFromOrderBy(cfg.OrderBy)}); err != nil {
		log.Fatalf("registering csv translator: %v", err)
	}
	if err := registry.Register("json", translator.JSONTranslator{}); err != nil {
		log.Fatalf("registering json translator: %v", err)
	}

	files := make([]batchworker.FileConfig, len(cfg.Files))
	for i, f := range cfg.Files {
		files[i] = batchworker.FileConfig{FileID: f.FileID, FileNamePattern: f.FileNamePattern, TranslatorID: f.TranslatorID}
	}

	collector := metrics.NewCollector(cfg.WorkerID)

	orch, err := orchestrator.New(
		func(c *orchestrator.Config) {
			c.WorkerID = cfg.WorkerID
			c.InstanceID = instanceID
			c.OutputRootPath = cfg.OutputRootPath
			c.PageSize = cfg.PageSize
			c.EventType = cfg.EventType
			c.LeaseHeartbeatInterval = cfg.LeaseHeartbeatInterval
			c.LeaseTTL = cfg.LeaseTTL
			c.TakeoverPollingInterval = cfg.TakeoverPollingInterval
			c.RetryConfig = retry.Config{
				MaxRetries:        cfg.MaxRetries,
				InitialBackoff:    cfg.InitialBackoff,
				BackoffMultiplier: cfg.BackoffMultiplier,
			}
			c.Logger = logger
			c.Collector = collector
		},
		orchestrator.WithLeaseStore(leaseStore),
		orchestrator.WithProgressStore(progressStore),
		orchestrator.WithPageReader(reader),
		orchestrator.WithTranslators(registry),
		orchestrator.WithEventPublisher(pub),
		orchestrator.WithTriggerGuard(trigger.NewProgressGuard(progressStore)),
		orchestrator.WithFiles(files),
	)
	if err != nil {
		log.Fatalf("constructing orchestrator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("received shutdown signal, stopping worker...")
		cancel()
	}()

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr)
		metricsServer.Start()
		defer metricsServer.Shutdown(context.Background())
	}

	var healthServer *health.Server
	if cfg.HealthAddr != "" {
		checker := health.NewChecker(leaseStore, progressStore, reader)
		healthServer = health.NewServer(cfg.HealthAddr, checker, cfg.WorkerID, instanceID)
		healthServer.Start()
		defer healthServer.Shutdown(context.Background())
	}

	if cfg.CronSchedule != "" {
		runCronDriven(ctx, orch, cfg.CronSchedule)
		return
	}

	log.Printf("starting worker %s (instance %s)", cfg.WorkerID, instanceID)
	if err := orch.Run(ctx); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}
	log.Println("worker stopped")
}

// runCronDriven schedules a single TryOnce attempt per tick of schedule
// (the configured CronSchedule) instead of relying on Run's internal polling loop, following the
// corpus's cron.New/AddFunc/Start/Stop scheduler idiom. The daily gate is
// still enforced entirely by TriggerGuard, so this cadence is only a
// convenience for hosts that prefer a cron-shaped process to a long-lived
// polling loop.
func runCronDriven(ctx context.Context, orch *orchestrator.Orchestrator, schedule string) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := orch.TryOnce(ctx); err != nil {
			log.Printf("scheduled attempt failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("invalid cron schedule %q: %v", schedule, err)
	}

	c.Start()
	log.Printf("worker scheduled on %q", schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("worker stopped")
}

func driverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite3"
	default:
		return dialect
	}
}

func newStores(db *sql.DB, cfg config.Config) (store.LeaseStore, store.ProgressStore, error) {
	switch cfg.StateDialect {
	case "postgres":
		tc := pgstore.TableConfig{LeaseTable: cfg.LeaseTable, ProgressTable: cfg.ProgressTable}
		return pgstore.NewLeaseStoreWithConfig(db, tc), pgstore.NewProgressStoreWithConfig(db, tc), nil
	case "mysql":
		tc := mysqlstore.TableConfig{LeaseTable: cfg.LeaseTable, ProgressTable: cfg.ProgressTable}
		return mysqlstore.NewLeaseStoreWithConfig(db, tc), mysqlstore.NewProgressStoreWithConfig(db, tc), nil
	case "sqlite":
		tc := sqlitestore.TableConfig{LeaseTable: cfg.LeaseTable, ProgressTable: cfg.ProgressTable}
		return sqlitestore.NewLeaseStoreWithConfig(db, tc), sqlitestore.NewProgressStoreWithConfig(db, tc), nil
	default:
		return nil, nil, fmt.Errorf("unsupported state dialect %q", cfg.StateDialect)
	}
}

// csvColumnsFromOrderBy is a minimal default: when no richer column
// configuration is supplied, the csv translator emits at least the column
// the view is ordered by. Hosts needing a full projection should register
// their own Translator under a distinct id via translator.Registry.
func csvColumnsFromOrderBy(orderBy string) []string {
	if orderBy == "" {
		return nil
	}
	return []string{orderBy}
}
