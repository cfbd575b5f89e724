// Command mailmove rewrites mail addresses from one or more old domains onto
// a new domain, across every mailbox and group of a tenant or for a single
// targeted identity. Flags decide what a run does; the environment decides
// where it connects.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mailmove/internal/directory"
	"mailmove/internal/directory/graphapi"
	"mailmove/internal/migration/metrics"
	"mailmove/internal/migration/models"
	"mailmove/internal/migration/orchestrator"
	"mailmove/internal/migration/processor"
	"mailmove/internal/platform/config"
	"mailmove/internal/platform/httpserver"
	"mailmove/internal/platform/kafka"
	"mailmove/internal/platform/logger"
	platformmetrics "mailmove/internal/platform/metrics"
	"mailmove/internal/platform/postgres"
	platformredis "mailmove/internal/platform/redis"
	"mailmove/internal/recorder"
	"mailmove/internal/recorder/csvlog"
	kafkarecorder "mailmove/internal/recorder/kafka"
	postgresrecorder "mailmove/internal/recorder/postgres"
	"mailmove/internal/runs"
	runspostgres "mailmove/internal/runs/postgres"
	runsredis "mailmove/internal/runs/redis"
	httptransport "mailmove/internal/transport/http"
	dErrors "mailmove/pkg/domain-errors"
	pstrings "mailmove/pkg/platform/strings"
)

type flags struct {
	oldDomains string
	newDomain  string
	identity   string
	dryRun     bool
	logDir     string
	adminAddr  string
	runID      string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.oldDomains, "old-domains", "", "comma-separated domains to migrate away from (required)")
	flag.StringVar(&f.newDomain, "new-domain", "", "domain to migrate onto (required)")
	flag.StringVar(&f.identity, "identity", "", "principal name or address of a single mailbox to migrate")
	flag.BoolVar(&f.dryRun, "dry-run", false, "compute and record plans without mutating the directory")
	flag.StringVar(&f.logDir, "log-dir", ".", "directory for the CSV change log and error log")
	flag.StringVar(&f.adminAddr, "admin-addr", "", "admin HTTP listen address (overrides MAILMOVE_ADMIN_ADDR)")
	flag.StringVar(&f.runID, "run-id", "", "run identifier; reuse one to resume an interrupted run")
	flag.Parse()
	return f
}

func main() {
	if err := run(); err != nil {
		slog.Error("run aborted", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	f := parseFlags()

	log := logger.New(cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(log)

	domains, err := models.NewDomainSet(splitDomains(f.oldDomains), f.newDomain)
	if err != nil {
		return err
	}
	if f.runID == "" {
		f.runID = uuid.NewString()
	}
	if f.adminAddr != "" {
		cfg.AdminAddr = f.adminAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := newDirectory(cfg.Directory, log)
	if err != nil {
		return err
	}

	rec, cleanup, err := newRecorder(ctx, cfg, f, log)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		checkpoints orchestrator.Checkpoints
		runStore    runs.Store
	)
	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConnectivity, "checkpoint store unavailable")
		}
		defer client.Close()
		checkpoints = runsredis.New(client.Client)
	}
	if cfg.Postgres.URL != "" {
		pool, err := postgres.OpenPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConnectivity, "run history store unavailable")
		}
		defer pool.Close()
		runStore = runspostgres.New(pool)
	}

	proc := processor.New(dir, domains,
		processor.WithLogger(log),
		processor.WithMetrics(metrics.New()),
		processor.WithDryRun(f.dryRun),
	)
	orch := orchestrator.New(dir, proc, rec, orchestrator.Config{
		RunID:          f.runID,
		Domains:        domains,
		DryRun:         f.dryRun,
		SingleIdentity: f.identity,
		Pacing:         cfg.Pacing,
	}, orchestrator.WithLogger(log), orchestrator.WithCheckpoints(checkpoints))

	runMetrics := platformmetrics.New()
	runMetrics.IncrementRunsStarted()

	handler := httptransport.NewHandler(runStore, log)
	srv := httpserver.New(cfg.AdminAddr, httptransport.NewRouter(handler, cfg.AdminTokenHash))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Info("admin server listening", "addr", cfg.AdminAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpserver.Shutdown(srv, 10*time.Second)
	})
	g.Go(func() error {
		defer cancel()

		started := time.Now()
		totals, runErr := orch.Run(gctx)
		if runErr != nil {
			runMetrics.IncrementRunsFailed()
		}
		if runStore != nil {
			saveSummary(log, runStore, f, domains, started, totals)
		}
		return runErr
	})

	return g.Wait()
}

// splitDomains folds repeated or differently-cased domains into one entry;
// domain matching is case-insensitive throughout.
func splitDomains(s string) []string {
	return pstrings.DedupeAndTrimLower(strings.Split(s, ","))
}

func newDirectory(cfg config.DirectoryConfig, log *slog.Logger) (directory.Service, error) {
	if cfg.BaseURL == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "MAILMOVE_DIRECTORY_URL is required")
	}
	client, err := graphapi.New(graphapi.Config{
		BaseURL:      cfg.BaseURL,
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      cfg.Timeout,
	}, graphapi.WithLogger(log))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "directory client configuration invalid")
	}
	return client, nil
}

// newRecorder assembles the record fan-out: the CSV log is always on, the
// postgres store and kafka publisher join when configured.
func newRecorder(ctx context.Context, cfg config.Config, f flags, log *slog.Logger) (recorder.Recorder, func(), error) {
	sink, err := csvlog.New(f.logDir, f.runID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "change log not writable")
	}
	multi := recorder.Multi{sink}
	var closers []func()

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConnectivity, "record store unavailable")
		}
		closers = append(closers, func() { db.Close() })
		multi = append(multi, postgresrecorder.New(db))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConnectivity, "kafka unavailable")
		}
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, 3); err != nil {
			producer.Close()
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConnectivity, "kafka topic unavailable")
		}
		closers = append(closers, producer.Close)
		multi = append(multi, kafkarecorder.NewPublisher(producer, cfg.Kafka.Topic))
	}

	cleanup := func() {
		if err := multi.Close(); err != nil {
			log.Warn("closing recorders", "error", err)
		}
		for _, c := range closers {
			c()
		}
	}
	return multi, cleanup, nil
}

func saveSummary(log *slog.Logger, store runs.Store, f flags, domains models.DomainSet, started time.Time, totals orchestrator.Totals) {
	summary := runs.Summary{
		RunID:      f.runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		DryRun:     f.dryRun,
		OldDomains: domains.Old(),
		NewDomain:  domains.New(),
		Processed:  totals.Processed,
		Succeeded:  totals.Succeeded,
		Failed:     totals.Failed,
		Skipped:    totals.Skipped,
		Simulated:  totals.Simulated,
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, summary); err != nil {
		log.Error("saving run summary", "run_id", f.runID, "error", err)
	}
}
