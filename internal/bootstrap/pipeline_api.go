package bootstrap

import (
	"strings"

	"pipeline_server/adapter/in/http"
	"pipeline_server/config"
	"pipeline_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the fiber application serving the pipeline API.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := deps.Log

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json replaces encoding/json for request/response bodies
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 5 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health check (no auth required)
	healthHandler := http.NewHealthHandler(deps.DB, deps.Redis)
	healthHandler.Register(app)

	// API routes (tenant-scoped)
	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret, log))

	emailHandler := http.NewEmailHandler(deps.Orchestrator, deps.QueueService, deps.Producer)
	emailHandler.Register(api)

	escalationHandler := http.NewEscalationHandler(deps.Escalation, deps.EscalationRepo)
	escalationHandler.Register(api)

	statsHandler := http.NewStatsHandler(deps.StatsService)
	statsHandler.Register(api)

	log.Info().Msg("API server initialized")

	return app, cleanup, nil
}
