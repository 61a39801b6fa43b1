package bootstrap

import (
	"os"
	"time"

	"pipeline_server/adapter/out/llm"
	"pipeline_server/adapter/out/messaging"
	"pipeline_server/adapter/out/notify"
	"pipeline_server/adapter/out/persistence"
	"pipeline_server/config"
	"pipeline_server/core/port/out"
	"pipeline_server/core/service/classification"
	"pipeline_server/core/service/escalation"
	"pipeline_server/core/service/pipeline"
	"pipeline_server/core/service/queue"
	"pipeline_server/core/service/response"
	"pipeline_server/core/service/routing"
	"pipeline_server/core/service/rules"
	"pipeline_server/infra/database"
	"pipeline_server/pkg/cache"
	"pipeline_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dependencies wires adapters and services for both binary modes.
type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *pgxpool.Pool
	SQLDB *sqlx.DB
	Redis *redis.Client

	// Repositories
	QueueRepo      out.QueueRepository
	EscalationRepo out.EscalationRepository
	RuleRepo       out.RuleRepository
	StyleRepo      out.StyleProfileRepository
	TemplateRepo   out.TemplateRepository
	StatsRepo      out.StatsRepository

	// Outbound services
	Cache    out.StatsCache
	Notifier out.Notifier
	Producer out.InboundProducer

	// Core services
	QueueService   *queue.Service
	RulesEngine    *rules.Engine
	Escalation     *escalation.Engine
	Generator      *response.Generator
	TemplateEngine *response.TemplateEngine
	Orchestrator   *pipeline.Orchestrator
	StatsService   *pipeline.StatsService
}

// NewDependencies builds the full dependency graph from configuration.
// The returned cleanup closes connections in reverse order.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	snowflake.Init(cfg.NodeID)

	deps := &Dependencies{Config: cfg, Log: log}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { _ = sqlDB.Close() })

	// Redis is optional; without it stats are uncached and the
	// ingestion bus is disabled.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis connection failed, running without cache and ingestion bus")
		} else {
			deps.Redis = redisClient
			deps.Cache = cache.NewRedisCache(redisClient, log)
			deps.Producer = messaging.NewRedisProducer(redisClient)
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
		}
	}

	// Repositories
	deps.QueueRepo = persistence.NewQueueAdapter(sqlDB)
	deps.EscalationRepo = persistence.NewEscalationAdapter(sqlDB)
	deps.RuleRepo = persistence.NewRuleAdapter(sqlDB)
	deps.StyleRepo = persistence.NewStyleProfileAdapter(sqlDB)
	deps.TemplateRepo = persistence.NewTemplateAdapter(sqlDB)
	deps.StatsRepo = persistence.NewStatsAdapter(sqlDB)

	// Notifications
	deps.Notifier = notify.NewWebhookNotifier(cfg.WebhookEndpoint, cfg.WebhookSecret, log)

	// LLM adapters; without an API key the keyword classifier and the
	// template fallback carry the pipeline alone.
	var classifySvc out.ClassificationService
	var generateSvc out.GenerationService
	if cfg.OpenAIAPIKey != "" {
		client := llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		}, log)
		classifySvc = llm.NewClassifier(client)
		generateSvc = llm.NewReplyGenerator(client)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, AI classification and generation disabled")
	}

	// Core services
	deps.QueueService = queue.NewService(deps.QueueRepo, log)
	deps.RulesEngine = rules.NewEngine(deps.RuleRepo, log)
	deps.Generator = response.NewGenerator(deps.StyleRepo, deps.Cache, generateSvc, log)
	deps.TemplateEngine = response.NewTemplateEngine(deps.TemplateRepo, log)
	deps.Escalation = escalation.NewEngine(
		deps.EscalationRepo,
		deps.RulesEngine,
		deps.Notifier,
		deps.Generator,
		deps.QueueService,
		log,
	)

	strategies := []classification.Strategy{}
	if classifySvc != nil {
		strategies = append(strategies, classification.NewAIStrategy(classifySvc))
	}
	strategies = append(strategies, classification.NewKeywordStrategy())
	classifier := classification.NewClassifier(log, strategies...)

	deps.Orchestrator = pipeline.NewOrchestrator(
		classifier,
		deps.RulesEngine,
		routing.NewRouter(log),
		deps.Escalation,
		deps.Generator,
		deps.TemplateEngine,
		log,
	)
	deps.StatsService = pipeline.NewStatsService(deps.StatsRepo, deps.Cache, log)

	return deps, cleanup, nil
}
