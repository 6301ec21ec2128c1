// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclients "report-workers/internal/common/aws"
	"report-workers/internal/common/camunda"
	"report-workers/internal/common/config"
	"report-workers/internal/common/database"
	"report-workers/internal/common/genai"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/mail"
	"report-workers/internal/common/observability"
	"report-workers/internal/common/pdf"
	"report-workers/internal/report/archive"
	"report-workers/internal/report/assembler"
	"report-workers/internal/report/delivery"
	"report-workers/internal/report/pipeline"
	"report-workers/internal/report/quality"
	"report-workers/internal/report/render"
	"report-workers/internal/report/sections"
	"report-workers/pkg/registry"

	dr "report-workers/internal/workers/report/deliver-report"
	gr "report-workers/internal/workers/report/generate-report"
	rd "report-workers/internal/workers/report/render-document"
	vr "report-workers/internal/workers/report/validate-report"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")
	bootLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	serviceName := cfg.App.Name
	if serviceName == "" {
		serviceName = "report-workers"
	}
	obs, err := observability.New(serviceName)
	if err != nil {
		zapLog.Warn("OpenTelemetry metrics exporter unavailable", zap.Error(err))
	}

	ctx := context.Background()
	checks := make(map[string]readinessCheck)

	// --- Init Zeebe Client (retries inside until the broker answers) ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            camunda.DefaultRetryConfig,
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks["zeebe"] = zeebe.HealthCheck
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry (delivery job mirror) ---
	var jobStore delivery.JobStore
	if cfg.Delivery.JobStore == "postgres" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping

		store := delivery.NewPostgresJobStore(pg.DB)
		if err := store.Open(ctx); err != nil {
			zapLog.Fatal("postgres job store schema failed", zap.Error(err))
		}
		jobStore = store
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Redis with retry (idempotency keys) ---
	var idempotency delivery.IdempotencyStore
	if cfg.Delivery.IdempotencyBackend == "redis" {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb.Ping

		store := delivery.NewRedisIdempotencyStore(rdb.Client)
		if err := store.Open(ctx); err != nil {
			zapLog.Fatal("redis idempotency store failed", zap.Error(err))
		}
		idempotency = store
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (report archive) ---
	var reportArchive archive.Archive
	if cfg.Report.Archive.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = esClient.Ping
		reportArchive = archive.NewElasticsearchArchive(esClient.Client, cfg.Report.Archive.Index)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Report building blocks ---
	prompts, err := sections.NewPromptLoader(cfg.Prompts.Dir)
	if err != nil {
		zapLog.Fatal("prompt templates unavailable", zap.Error(err))
	}
	industries, err := sections.LoadIndustries()
	if err != nil {
		zapLog.Fatal("industry defaults unavailable", zap.Error(err))
	}
	if cfg.LLM.APIKey == "" {
		zapLog.Warn("llm.api_key is empty, chapters will use static fallback text")
	}

	generator := sections.NewGenerator(genai.NewClient(cfg.LLM, log), prompts, industries, sections.Options{
		ExecutiveSummaryModel: cfg.LLM.ExecutiveSummaryModel,
		Timeout:               config.GetDuration(cfg.LLM.Timeout),
	}, log)
	reportAssembler := assembler.New(generator, assembler.Options{
		ChapterConcurrency: cfg.Report.ChapterConcurrency,
		DistillTimeout:     config.GetDuration(cfg.LLM.DistillTimeout),
	}, obs, log)
	validator := quality.NewValidator()
	reviewer := quality.NewReviewer(validator, reportAssembler, log)
	renderer, err := render.New()
	if err != nil {
		zapLog.Fatal("report templates failed to parse", zap.Error(err))
	}

	// --- Delivery ---
	mailer, err := newMailer(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("mail transport failed", zap.Error(err))
	}
	pdfClient := pdf.NewClient(cfg.PDF)

	var alerter delivery.Alerter
	if cfg.Alerts.Enabled {
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.Alerts.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alerter = delivery.NewSNSAlerter(snsClient, cfg.Alerts.TopicARN)
	}

	dispatcher := delivery.NewReportDispatcher(pdfClient, mailer, delivery.MailSettings{
		From:       cfg.Mail.From,
		AdminEmail: cfg.Mail.AdminEmail,
		Subjects:   map[string]string{"de": cfg.Mail.SubjectDE, "en": cfg.Mail.SubjectEN},
		Filename:   cfg.Delivery.Filename,
	}, log)
	coordinator := delivery.NewCoordinator(delivery.Dependencies{
		Dispatcher:  dispatcher,
		Idempotency: idempotency,
		Persistent:  jobStore,
		Warmer:      pdfClient,
		Alerter:     alerter,
		Obs:         obs,
	}, delivery.Options{
		IdempotencyTTL: config.GetDuration(cfg.Delivery.IdempotencyTTL),
		GuardWindow:    cfg.Delivery.GuardWindow,
		Warmup:         cfg.PDF.Warmup,
	}, log)

	// --- Activity schemas ---
	activities, err := registry.Load()
	if err != nil {
		zapLog.Fatal("activity registry failed to load", zap.Error(err))
	}
	schemaFor := func(taskType string) map[string]interface{} {
		schema, err := activities.InputSchema(taskType)
		if err != nil {
			zapLog.Fatal("input schema missing", zap.String("taskType", taskType), zap.Error(err))
		}
		return schema
	}
	briefingSchema, err := activities.PropertySchema(gr.TaskType, "briefing")
	if err != nil {
		zapLog.Fatal("briefing schema missing", zap.Error(err))
	}

	reportPipeline := pipeline.New(pipeline.Dependencies{
		Assembler: reportAssembler,
		Reviewer:  reviewer,
		Renderer:  renderer,
		Deliverer: coordinator,
		Archive:   reportArchive,
	}, pipeline.Options{BriefingSchema: briefingSchema}, log)

	// --- Register workers ---
	client := zeebe.GetClient()
	var workers []*camunda.Worker

	if wcfg := config.GetWorkerConfig(cfg, gr.TaskType); wcfg.Enabled {
		handler := gr.NewHandler(&gr.Config{
			Timeout:         config.GetDuration(wcfg.Timeout),
			DefaultLanguage: cfg.Report.DefaultLanguage,
		}, reportAssembler, schemaFor(gr.TaskType), log)
		workers = append(workers, camunda.StartWorker(client, gr.TaskType, wcfg, handler.Handle, log))
	}

	if wcfg := config.GetWorkerConfig(cfg, vr.TaskType); wcfg.Enabled {
		handler := vr.NewHandler(&vr.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, validator, reviewer, schemaFor(vr.TaskType), log)
		workers = append(workers, camunda.StartWorker(client, vr.TaskType, wcfg, handler.Handle, log))
	}

	if wcfg := config.GetWorkerConfig(cfg, rd.TaskType); wcfg.Enabled {
		handler := rd.NewHandler(&rd.Config{
			Timeout:        config.GetDuration(wcfg.Timeout),
			ArchiveTimeout: 10 * time.Second,
		}, renderer, reportArchive, schemaFor(rd.TaskType), log)
		workers = append(workers, camunda.StartWorker(client, rd.TaskType, wcfg, handler.Handle, log))
	}

	if wcfg := config.GetWorkerConfig(cfg, dr.TaskType); wcfg.Enabled {
		handler := dr.NewHandler(&dr.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, coordinator, schemaFor(dr.TaskType), log)
		workers = append(workers, camunda.StartWorker(client, dr.TaskType, wcfg, handler.Handle, log))
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health, metrics and report API ---
	api := &apiServer{
		reports:       reportPipeline,
		jobs:          coordinator,
		archive:       reportArchive,
		checks:        checks,
		reportTimeout: config.GetDuration(config.GetWorkerConfig(cfg, gr.TaskType).Timeout),
		logger:        log.WithFields(map[string]interface{}{"component": "api"}),
	}
	router := newRouter(api)
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	srv := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(20 * time.Second)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := coordinator.Wait(shutdownCtx); err != nil {
		zapLog.Warn("Delivery jobs still running at shutdown", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

// newMailer selects the transport named by mail.provider.
func newMailer(ctx context.Context, cfg *config.Config, log logger.Logger) (mail.Mailer, error) {
	switch cfg.Mail.Provider {
	case "smtp":
		return mail.NewSMTPMailer(cfg.Mail, log), nil
	case "ses":
		client, err := awsclients.NewSESClient(ctx, cfg.Mail.SES.Region)
		if err != nil {
			return nil, err
		}
		return mail.NewSESMailer(client, log), nil
	default:
		return mail.NewNoopMailer(log), nil
	}
}
