package server

import (
	"backend-tripcal/internal/account"
	"backend-tripcal/internal/auth"
	"backend-tripcal/internal/config"
	"backend-tripcal/internal/db"
	"backend-tripcal/internal/event"
	"backend-tripcal/internal/invitation"
	"backend-tripcal/internal/notify"
	"backend-tripcal/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Pool
	Redis  *redis.Client
	Notify *notify.Hub
}

func NewServer(cfg config.Config, pool db.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Notify: notify.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

// Close releases the notification subscription.
func (s *Server) Close() error {
	return s.Notify.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authMiddleware := auth.Middleware(s.Cfg.JWTSecret, s.Cfg.AuthRequired)

	accounts := account.NewService(s.DB)
	account.RegisterRoutes(s.App, accounts, auth.NewService(s.Cfg.JWTSecret), authMiddleware)
	trip.RegisterRoutes(s.App.Group("/calendars"), trip.NewService(s.DB), authMiddleware)
	event.RegisterRoutes(s.App.Group("/events"), event.NewService(s.DB), authMiddleware)
	invitation.RegisterRoutes(s.App.Group("/invitations"), invitation.NewService(s.DB, accounts, s.Notify), authMiddleware)
	notify.RegisterRoutes(s.App.Group("/notify"), s.Notify)
}
