package app

import (
	"context"
	"fmt"

	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/handlers"
	"github.com/upb/llm-gateway/internal/observability"
	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/repositories/postgres"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/services/providers/bedrock"
	"github.com/upb/llm-gateway/services/providers/openai"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Resolutions repositories.ResolutionRepository
	TxManager   repositories.TransactionManager

	// Domain
	ProviderRegistry *providers.Registry
	Chains           *config.ChainSet
	Metrics          *observability.Metrics
	Gateway          *gateway.GatewayService

	// HTTP
	AuthMiddleware    *middleware.AuthMiddleware
	InferenceHandler  *handlers.InferenceHandler
	ResolutionHandler *handlers.ResolutionHandler
	HealthHandler     *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initChains(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize chains: %w", err)
	}

	deps.initServices()
	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() error {
	repos := d.RepoFactory.NewRepositories()

	d.Resolutions = repos.Resolutions
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initProviders initializes the provider registry with configured providers
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	if cfg.Providers.OpenAI.APIKey != "" {
		providerCfg := providers.DefaultConfig()
		providerCfg.APIKey = cfg.Providers.OpenAI.APIKey
		providerCfg.BaseURL = cfg.Providers.OpenAI.BaseURL
		providerCfg.Timeout = cfg.Providers.OpenAI.Timeout
		providerCfg.MaxRetries = cfg.Providers.OpenAI.MaxRetries

		if err := registry.Register(openai.New(providerCfg)); err != nil {
			return err
		}
		d.Logger.Info("registered OpenAI provider")
	}

	if cfg.Providers.Bedrock.Region != "" {
		adapter := bedrock.New(bedrock.Config{
			DefaultRegion: cfg.Providers.Bedrock.Region,
			AccessKey:     cfg.Providers.Bedrock.AccessKey,
			SecretKey:     cfg.Providers.Bedrock.SecretKey,
		})
		if err := registry.Register(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered Bedrock provider",
			zap.String("default_region", cfg.Providers.Bedrock.Region))
	}

	if registry.Count() == 0 {
		d.Logger.Warn("no LLM providers configured")
	}

	d.ProviderRegistry = registry
	return nil
}

// initChains loads and validates the fallback chain definitions
func (d *Dependencies) initChains(cfg *config.Config) error {
	chains, err := config.LoadChains(cfg.Chains.File, d.ProviderRegistry.Names())
	if err != nil {
		return err
	}

	d.Chains = chains
	d.Logger.Info("fallback chains loaded",
		zap.Strings("chains", chains.Names()),
		zap.String("default", chains.DefaultChain()))
	return nil
}

// initServices initializes the gateway service
func (d *Dependencies) initServices() {
	d.Metrics = observability.NewMetrics()
	d.Gateway = gateway.NewGatewayService(d.Chains, d.ProviderRegistry, d.Resolutions, d.Metrics, d.Logger)
}

// initHandlers initializes HTTP handlers and middleware
func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Disabled, d.Logger)
	d.InferenceHandler = handlers.NewInferenceHandler(d.Gateway, d.Logger)
	d.ResolutionHandler = handlers.NewResolutionHandler(d.Gateway, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.ProviderRegistry.Names(), d.Logger)
}

// Close releases all resources held by the dependencies
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
