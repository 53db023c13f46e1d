package commands

import (
	"fmt"

	"github.com/calder/noteval/internal/catalog"
	"github.com/calder/noteval/internal/engine"
	"github.com/calder/noteval/internal/marketdata"
	"github.com/calder/noteval/internal/reportstore"
	"github.com/calder/noteval/internal/service"
	"github.com/calder/noteval/pkg/config"
	"github.com/calder/noteval/pkg/database"
	"github.com/calder/noteval/pkg/logger"
	"github.com/calder/noteval/pkg/redis"
)

// app holds the wired application components shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	catalog *catalog.Repository
	market  *marketdata.Repository
	service *service.EvaluationService
}

// buildApp loads config and wires the standard component graph
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	if verbose {
		cfg.LogLevel = "debug"
		log = logger.New(cfg)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	catalogRepo := catalog.NewRepository(db.Pool)
	marketRepo := marketdata.NewRepository(db.Pool)
	provider := marketdata.NewProvider(marketRepo)
	reports := reportstore.NewRepository(db.Pool)
	cache := redis.NewCache(redisClient, "eval")

	eng := engine.New(engine.FromAppConfig(cfg.Engine), log)
	svc := service.New(catalogRepo, provider, reports, eng, cache, cfg.Engine.ResultCacheTTL, log)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		redis:   redisClient,
		catalog: catalogRepo,
		market:  marketRepo,
		service: svc,
	}, nil
}

// close releases the app's connections
func (a *app) close() {
	a.redis.Close()
	a.db.Close()
}
