package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Motta-Financial/statement-audit/internal/audit"
	"github.com/Motta-Financial/statement-audit/internal/bankprofile"
	"github.com/Motta-Financial/statement-audit/internal/gateway"
	bqgateway "github.com/Motta-Financial/statement-audit/internal/gateway/bigquery"
	"github.com/Motta-Financial/statement-audit/internal/gateway/inmemory"
	"github.com/Motta-Financial/statement-audit/internal/jobs"
	jobsmem "github.com/Motta-Financial/statement-audit/internal/jobs/inmemory"
	"github.com/Motta-Financial/statement-audit/internal/learning"
	"github.com/Motta-Financial/statement-audit/internal/logger"
	"github.com/Motta-Financial/statement-audit/internal/statementstore"
)

const syncInterval = time.Minute

func main() {
	log := logger.New()

	uris := os.Args[1:]
	if len(uris) == 0 {
		log.Fatal().Msg("usage: worker <statement-uri> [<statement-uri> ...]")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	gw, closeGW := buildGateway(ctx, log)
	defer closeGW()

	store := learning.NewStore(learning.WithLogger(log))
	store.HydrateFromGateway(ctx, gw)

	registry := bankprofile.NewRegistry()
	engine := audit.NewEngine(audit.WithRegistry(registry), audit.WithLogger(log))

	jobStore := jobsmem.NewStore()
	queue := jobsmem.NewQueue(100, 5, jobStore)

	log.Info().Int("statements", len(uris)).Msg("starting audit worker")

	handler := func(ctx context.Context, job jobs.Job) error {
		auditJob, ok := job.(*jobs.AuditStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		return processStatement(ctx, auditJob, engine, store, gw, log)
	}

	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("failed to start job consumer")
	}

	for _, uri := range uris {
		job := &jobs.AuditStatementJob{StatementURI: uri}
		if err := queue.PublishAuditStatement(ctx, job); err != nil {
			log.Error().Err(err).Str("uri", uri).Msg("failed to enqueue statement")
		}
	}

	// Periodically push learned state back so a crash loses at most one
	// interval of increments.
	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-syncTicker.C:
				store.SyncToGateway(ctx, gw)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down audit worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	// Final sync so the last increments survive the restart.
	store.SyncToGateway(shutdownCtx, gw)

	log.Info().Msg("audit worker exited")
}

// processStatement loads one extracted statement, pre-applies learned
// patterns for its institution, audits it, and records the parsed count.
func processStatement(
	ctx context.Context,
	job *jobs.AuditStatementJob,
	engine *audit.Engine,
	store *learning.Store,
	gw gateway.Gateway,
	log zerolog.Logger,
) error {
	loader := statementstore.ForURI(job.StatementURI)
	stmt, err := loader.Load(ctx, job.StatementURI)
	if err != nil {
		return fmt.Errorf("load statement %s: %w", job.StatementURI, err)
	}
	if job.Institution == "" {
		job.Institution = stmt.Institution
	}

	applied := store.ApplyToStatement(ctx, gw, stmt)

	result, err := engine.RunFullAudit(stmt)
	if err != nil {
		return fmt.Errorf("audit statement %s: %w", job.StatementURI, err)
	}
	job.Score = &result.Score
	job.Passed = &result.Passed

	store.RecordTransactionsParsed(stmt.Institution, len(stmt.Transactions))

	details := fmt.Sprintf("uri=%s score=%.1f passed=%t patterns_applied=%d",
		job.StatementURI, result.Score, result.Passed, applied)
	if err := gw.LogEvent(ctx, stmt.Institution, gateway.EventStatementAudited, details); err != nil {
		log.Warn().Err(err).Msg("event log write failed")
	}

	log.Info().
		Str("uri", job.StatementURI).
		Str("institution", stmt.Institution).
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Int("issues", len(result.Issues)).
		Int("patterns_applied", applied).
		Msg("statement audited")

	return nil
}

// buildGateway picks BigQuery when BQ_PROJECT/BQ_DATASET are configured,
// otherwise an in-memory gateway for local runs.
func buildGateway(ctx context.Context, log zerolog.Logger) (gateway.Gateway, func()) {
	project := os.Getenv("BQ_PROJECT")
	dataset := os.Getenv("BQ_DATASET")
	if project == "" || dataset == "" {
		log.Warn().Msg("BQ_PROJECT/BQ_DATASET not set; using in-memory gateway")
		return inmemory.NewStore(), func() {}
	}

	gw, err := bqgateway.NewGateway(ctx, project, dataset)
	if err != nil {
		log.Error().Err(err).Msg("bigquery gateway unavailable; using in-memory gateway")
		return inmemory.NewStore(), func() {}
	}
	log.Info().Str("project", project).Str("dataset", dataset).Msg("using bigquery gateway")
	return gw, func() {
		if err := gw.Close(); err != nil {
			log.Warn().Err(err).Msg("closing bigquery gateway")
		}
	}
}
