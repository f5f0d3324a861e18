package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/cache"
	"proptrack-backend/internal/client"
	"proptrack-backend/internal/config"
	"proptrack-backend/internal/dashboard"
	"proptrack-backend/internal/database"
	"proptrack-backend/internal/models"
	"proptrack-backend/internal/property"
	"proptrack-backend/internal/viewing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ch := openCache(cfg)

	// Store'lar
	users := auth.NewUserStore(db)
	properties := property.NewStore(db)
	clients := client.NewStore(db)
	viewings := viewing.NewStore(db)
	auditLog := audit.NewService(db)

	similar := property.NewSimilarResolver(properties)
	scheduler := viewing.NewScheduler(viewings, properties, clients, viewing.PolicyFromConfig(cfg), cfg.Location)

	app := fiber.New(fiber.Config{
		AppName:      "PropTrack API",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: api.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/health", healthHandler(db))

	r := app.Group("/api")

	// Public auth
	r.Post("/auth/register", auth.RegisterHandler(cfg, users))
	r.Post("/auth/login", auth.LoginHandler(cfg, users))

	// Public ilan okuma
	r.Get("/properties", property.ListPropertiesHandler(properties, ch))
	r.Get("/properties/stats", property.PropertyStatsHandler(properties))
	r.Get("/properties/:id", property.GetPropertyHandler(properties))
	r.Get("/properties/:id/similar", property.SimilarPropertiesHandler(similar, ch))

	// Public inquiry formu, IP bazlı dakika limiti
	r.Post("/clients", limiter.New(limiter.Config{
		Max:        cfg.InquiryRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many inquiries, please try again later")
		},
	}), client.CreateClientHandler(clients, properties, auditLog))

	r.Post("/viewings/availability", viewing.AvailabilityHandler(scheduler))

	// Protected
	protected := r.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(users))

	// İlan yönetimi sadece danışmanlar (admin)
	agentOnly := auth.RequireRole(models.RoleAdmin)
	protected.Post("/properties", agentOnly, property.CreatePropertyHandler(properties, ch, auditLog))
	protected.Post("/properties/import", agentOnly, property.ImportPropertiesHandler(properties, ch, auditLog))
	protected.Put("/properties/:id", agentOnly, property.UpdatePropertyHandler(properties, ch, auditLog))
	protected.Delete("/properties/:id", agentOnly, property.DeletePropertyHandler(properties, ch, auditLog))

	// Client / inquiry
	protected.Get("/clients", client.ListClientsHandler(cfg, clients))
	protected.Get("/clients/stats", client.ClientStatsHandler(clients))
	protected.Get("/clients/export", client.ExportClientsHandler(cfg, clients))
	protected.Get("/clients/:id", client.GetClientHandler(clients))
	protected.Put("/clients/:id", client.UpdateClientHandler(clients, auditLog))
	protected.Post("/clients/:id/notes", client.AddNoteHandler(clients))
	protected.Delete("/clients/:id", client.DeleteClientHandler(clients, auditLog))

	// Görüntülemeler
	protected.Post("/viewings", viewing.CreateViewingHandler(scheduler, auditLog))
	protected.Get("/viewings", viewing.ListViewingsHandler(scheduler, viewings))
	protected.Get("/viewings/stats", viewing.ViewingStatsHandler(scheduler, viewings))
	protected.Get("/viewings/:id", viewing.GetViewingHandler(scheduler, viewings))
	protected.Put("/viewings/:id", viewing.UpdateViewingHandler(scheduler, viewings, auditLog))
	protected.Patch("/viewings/:id/status", viewing.UpdateStatusHandler(scheduler, viewings, auditLog))
	protected.Delete("/viewings/:id", viewing.DeleteViewingHandler(viewings, auditLog))

	// Dashboard
	protected.Get("/dashboard/activity", agentOnly, dashboard.ActivityChartHandler(cfg, dashboard.NewSource(db)))

	// Audit logs
	protected.Get("/audit-logs", agentOnly, audit.ListAuditLogsHandler(db))

	log.Println("[INFO] Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

// openCache Redis tanımlıysa ve erişilebiliyorsa onu, değilse Nop cache döner.
func openCache(cfg *config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.Nop{}
	}

	rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		log.Printf("[WARN] Redis'e bağlanılamadı (%s): %v, cache kapalı", cfg.RedisAddr, err)
		_ = rc.Close()
		return cache.Nop{}
	}
	log.Println("[INFO] Redis cache aktif:", cfg.RedisAddr)
	return rc
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success":  false,
				"status":   "unhealthy",
				"database": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok", "time": time.Now()})
	}
}
