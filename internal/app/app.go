package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/catalog"
	"github.com/MrSnakeDoc/linkdex/internal/config"
	"github.com/MrSnakeDoc/linkdex/internal/extractor"
	"github.com/MrSnakeDoc/linkdex/internal/guides"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/pages"
	"github.com/MrSnakeDoc/linkdex/internal/resources"
	"github.com/MrSnakeDoc/linkdex/internal/scheduler"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
	redisstore "github.com/MrSnakeDoc/linkdex/internal/store/redis"
	"github.com/MrSnakeDoc/linkdex/internal/store/sqlite"
	"github.com/MrSnakeDoc/linkdex/internal/users"
	"github.com/MrSnakeDoc/linkdex/internal/utils"
	"github.com/MrSnakeDoc/linkdex/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       kv.Store
	bg          *actor.Background
	pages       *pages.Store
	resources   *resources.Store
	users       *users.Store
	guides      *guides.Store
	syncer      *scheduler.IndexSyncer
	reconciler  *scheduler.Reconciler
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Connect to Redis early when any component needs it - fail fast if unavailable
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redisstore.Connect(redisstore.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		loggerClient.Info("Redis initialized successfully")
	}

	store, err := openStore(cfg, redisClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s storage: %v", cfg.StorageBackend, err)
		os.Exit(1)
	}
	loggerClient.Info("storage ready", logger.String("backend", cfg.StorageBackend))

	var c cache.Cache
	if cfg.CacheBackend == config.BackendRedis {
		c = cache.NewRedis(redisClient, cfg.CacheTTL)
	} else {
		c = cache.NewMemory(cfg.CacheSize, cfg.CacheTTL)
	}

	table, err := integrations.Load(cfg.IntegrationsFile)
	if err != nil {
		loggerClient.Errorf("Failed to load integrations table: %v", err)
		os.Exit(1)
	}

	safety := extractor.NewSafety(extractor.SafetyOptions{
		APIKey:     cfg.SafeBrowsingKey,
		BaseURL:    cfg.SafeBrowsingURL,
		Production: cfg.IsProduction(),
		Timeout:    cfg.FetchTimeout,
	}, loggerClient)
	ex := extractor.New(extractor.OptionsFromConfig(cfg), table, safety, loggerClient)

	bg := actor.NewBackground(loggerClient)
	idx := index.New(store)

	pageStore := pages.New(store, ex, c, bg, cfg.ActorIdleTimeout, loggerClient)
	resourceStore := resources.New(store, pageStore, idx, table, c, bg, cfg.ActorIdleTimeout, loggerClient)
	userStore := users.New(store, c, bg, cfg.ActorIdleTimeout, loggerClient)
	guideStore := guides.New(store, pageStore, table, c, bg, cfg.ActorIdleTimeout, loggerClient)
	cat := catalog.New(pageStore, resourceStore, userStore, idx, c, bg, loggerClient)

	// Create manual reindex trigger channel
	reindexTrigger := make(chan struct{}, 1)

	reconciler := scheduler.NewReconciler(
		resourceStore,
		idx,
		loggerClient,
		cfg.ReconcileInterval,
		reindexTrigger,
	)

	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		AllowedOrigins:     cfg.AllowedOrigins,
		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		TrustProxy:         cfg.TrustProxy,
		SubmitBurst:        cfg.SubmitBurst,
		SubmitRefillPerMin: cfg.SubmitRefillPerMin,
		StorageBackend:     cfg.StorageBackend,
		Storage:            store,
		Pages:              pageStore,
		Resources:          resourceStore,
		Users:              userStore,
		Guides:             guideStore,
		Catalog:            cat,
		Index:              idx,
		ReindexTrigger:     reindexTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		store:       store,
		bg:          bg,
		pages:       pageStore,
		resources:   resourceStore,
		users:       userStore,
		guides:      guideStore,
		syncer:      scheduler.NewIndexSyncer(idx, loggerClient),
		reconciler:  reconciler,
	}
}

func openStore(cfg *config.Config, client *goredis.Client) (kv.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		return redisstore.NewStore(client, redisstore.DefaultNamespace), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendMemory:
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting linkdex %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("linkdex %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rebuild the index from storage before serving reads
	if err := a.syncer.Sync(ctx); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	a.reconciler.Start(ctx)
	a.logger.Info("reconciler started",
		logger.Duration("interval", a.cfg.ReconcileInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// Let pending follow-ups land before the actors and storage go away
	a.bg.Wait()
	a.guides.Close()
	a.resources.Close()
	a.users.Close()
	a.pages.Close()

	utils.MustClose("storage", a.store, a.logger)
	if a.redisClient != nil && a.cfg.StorageBackend != config.BackendRedis {
		// Only the cache uses Redis; the Redis store closes its own client.
		utils.MustClose("redis", a.redisClient, a.logger)
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ linkdex stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
