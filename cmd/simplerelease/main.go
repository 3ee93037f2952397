package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/haatos/simple-release/internal"
	"github.com/haatos/simple-release/internal/handler"
	"github.com/haatos/simple-release/internal/logging"
	"github.com/haatos/simple-release/internal/notify"
	"github.com/haatos/simple-release/internal/release"
	"github.com/haatos/simple-release/internal/security"
	"github.com/haatos/simple-release/internal/service"
	"github.com/haatos/simple-release/internal/settings"
	"github.com/haatos/simple-release/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

func main() {
	if err := settings.ReadDotenv(internal.DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
	settings.Settings = settings.NewSettings()
	log := logging.Must(settings.Settings.Debug)
	defer func() { _ = log.Sync() }()

	config, err := internal.LoadConfiguration(internal.ConfigPath)
	if err != nil {
		log.Fatal("err loading configuration", zap.Error(err))
	}

	hashKey, err := security.EnsureHashKey(settings.Settings.HashKey, func(key string) error {
		return settings.AppendDotenv(internal.DotEnvPath, "SIMPLERELEASE_HASH_KEY", key)
	})
	if err != nil {
		log.Fatal("err initializing hash key", zap.Error(err))
	}
	if settings.Settings.WebhookSecret == "" {
		log.Warn("SIMPLERELEASE_WEBHOOK_SECRET is not set, github webhooks will be rejected")
	}

	rdb, err := store.InitDatabase(settings.Settings, true)
	if err != nil {
		log.Fatal("err opening read database", zap.Error(err))
	}
	defer rdb.Close()
	rwdb, err := store.InitDatabase(settings.Settings, false)
	if err != nil {
		log.Fatal("err opening write database", zap.Error(err))
	}
	defer rwdb.Close()
	if err := store.RunMigrations(rwdb); err != nil {
		log.Fatal("err running migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(registry)

	projectStore := store.NewProjectSQLiteStore(rdb, rwdb)
	releaseStore := store.NewReleaseSQLiteStore(rdb, rwdb)
	credentialStore := store.NewCredentialSQLiteStore(rdb, rwdb)
	apiKeyStore := store.NewAPIKeySQLiteStore(rdb, rwdb)
	aesEncrypter := security.NewAESEncrypter(hashKey)

	runner := release.NewExecRunner(log.Named("exec"), nil)
	envs := release.NewEnvironments(runner, log.Named("compose"))
	pipeline := release.NewPipeline(
		release.NewRevisions(runner, release.GoGitCloner{}, release.DefaultVersion(), log.Named("git")),
		envs,
		release.NewMonitor(envs, log.Named("health")),
		release.NewGate(),
		release.PipelineOptions{
			MaxWait:      config.HealthMaxWait.Duration(),
			PollInterval: config.HealthPollInterval.Duration(),
		},
		log.Named("pipeline"),
	)

	notifier := notify.NewWebhook(settings.Settings.NotifyURL, http.DefaultClient, log.Named("notify"))
	credentialSvc := service.NewCredentialService(credentialStore, aesEncrypter)
	apiKeySvc := service.NewAPIKeyService(apiKeyStore, service.NewUUIDGen())
	releaseSvc := service.NewReleaseService(
		projectStore,
		releaseStore,
		credentialStore,
		aesEncrypter,
		pipeline,
		service.ReleaseServiceConfig{
			AppsDir:   settings.Settings.AppsDir,
			QueueSize: config.QueueSize,
			Notifier:  notifier,
			Metrics:   metrics,
		},
		log.Named("releases"),
	)

	ctx := context.Background()
	if err := releaseSvc.InitializeReleaseQueues(ctx); err != nil {
		log.Fatal("err initializing release queues", zap.Error(err))
	}
	if ak, created, err := apiKeySvc.EnsureAPIKey(ctx); err != nil {
		log.Fatal("err creating initial api key", zap.Error(err))
	} else if created {
		log.Info("created initial api key", zap.String("api_key", ak.Value))
	}

	scheduler, err := service.NewScheduler()
	if err != nil {
		log.Fatal("err creating scheduler", zap.Error(err))
	}
	if _, err := service.SchedulePrune(
		scheduler, releaseSvc, config.RetentionPeriod(), log.Named("prune"),
	); err != nil {
		log.Fatal("err scheduling release pruning", zap.Error(err))
	}
	scheduler.Start()

	e := setupEcho(log)
	handler.SetupSystemRoutes(e, registry, rdb)
	handler.SetupWebhookRoutes(e, releaseSvc, settings.Settings.WebhookSecret, log.Named("webhook"))
	api := e.Group("/api", handler.APIKeyMiddleware(apiKeySvc))
	handler.SetupProjectRoutes(api, releaseSvc)
	handler.SetupReleaseRoutes(api, releaseSvc, log.Named("sse"))
	handler.SetupCredentialRoutes(api, credentialSvc)
	handler.SetupAPIKeyRoutes(api, apiKeySvc)
	handler.SetupConfigRoutes(api, internal.ConfigPath)

	internal.GracefulShutdown(e, settings.Settings.Port, log,
		func() {
			if err := scheduler.Shutdown(); err != nil {
				log.Error("err shutting down scheduler", zap.Error(err))
			}
		},
		releaseSvc.ShutdownAll,
		notifier.Close,
	)
}

func setupEcho(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewErrorHandler(log)
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		handler.RequestLogger(log.Named("http")),
		middleware.CORSWithConfig(internal.GetCORSConfig()),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)
	return e
}
