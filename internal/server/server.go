package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saaj376/StreetSafe/internal/auth"
	"github.com/saaj376/StreetSafe/internal/config"
	"github.com/saaj376/StreetSafe/internal/emergency"
	"github.com/saaj376/StreetSafe/internal/feedback"
	"github.com/saaj376/StreetSafe/internal/stream"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	// Bare liveness probe; the store-backed /api/health lives with the
	// feedback routes.
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	emergency.RegisterRoutes(s.App, emergency.NewService(s.DB, s.Stream, s.Cfg.PublicOrigin), jwtMiddleware)
	feedback.RegisterRoutes(s.App, feedback.NewService(s.DB, s.Redis), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
