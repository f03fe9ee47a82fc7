package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"jobjeeves/internal/analyses"
	"jobjeeves/internal/llm"
	"jobjeeves/internal/llm/openai"
	"jobjeeves/internal/services/health"
	"jobjeeves/internal/shared/config"
	"jobjeeves/internal/shared/ratelimit"
	"jobjeeves/internal/shared/server"
	"jobjeeves/internal/shared/storage/db"
	"jobjeeves/internal/shared/storage/object"
	localstore "jobjeeves/internal/shared/storage/object/local"
	s3store "jobjeeves/internal/shared/storage/object/s3"
	"jobjeeves/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Limiter         ratelimit.Limiter
	LLM             llm.Client
	AnalysesRepo    analyses.Repo
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler

	closers []func()
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, func() { _ = sqlDB.Close() })
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	app.Limiter = buildLimiter(ctx, cfg, app)
	app.LLM = openai.New(LLMSettings(cfg))

	if app.DB != nil {
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}
	app.AnalysesService = analyses.NewService(app.AnalysesRepo, app.LLM, app.Store)
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, cfg.MaxUploadBytes)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	healthSvc := health.NewService(nil)
	if app.DB != nil {
		healthSvc = health.NewService(app.DB)
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: app.AnalysisHandler,
		Health:          healthSvc,
		Limiter:         app.Limiter,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": llm.NormalizeProvider(cfg.LLMProvider),
		"object_store": cfg.ObjectStoreType,
		"persistence":  persistenceKind(app.DB),
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// LLMSettings maps configuration onto provider settings.
func LLMSettings(cfg config.Config) llm.Settings {
	return llm.Settings{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  cfg.LLMTimeout,
		Credentials: map[string]llm.Credentials{
			llm.ProviderOpenAI:     {APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel},
			llm.ProviderGroq:       {APIKey: cfg.GroqAPIKey, Model: cfg.GroqModel},
			llm.ProviderOpenRouter: {APIKey: cfg.OpenRouterAPIKey, Model: cfg.OpenRouterModel},
		},
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

// buildLimiter prefers Valkey so replicas share budgets, falling back to the
// in-process limiter when Valkey is absent or unreachable.
func buildLimiter(ctx context.Context, cfg config.Config, app *App) ratelimit.Limiter {
	if strings.TrimSpace(cfg.ValkeyAddr) == "" {
		return ratelimit.NewMemory(nil)
	}
	limiter, err := ratelimit.NewValkey(ctx, cfg.ValkeyAddr, cfg.ValkeyPassword)
	if err != nil {
		telemetry.Warn("bootstrap.valkey_unavailable", map[string]any{"addr": cfg.ValkeyAddr, "error": err.Error()})
		return ratelimit.NewMemory(nil)
	}
	app.closers = append(app.closers, limiter.Close)
	return limiter
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func persistenceKind(sqlDB *sql.DB) string {
	if sqlDB == nil {
		return "memory"
	}
	return "postgres"
}
