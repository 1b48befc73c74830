package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/cafelog/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || websocket.IsWebSocketUpgrade(c)
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(LegacyRoutes))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	with := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	// Records. Static segments go before :id.
	v1.Get("/cafes", with(ListCafesHandler(deps)))
	v1.Post("/cafes", with(CreateCafeHandler(deps)))
	v1.Get("/cafes/export.geojson", with(ExportGeoJSONHandler(deps)))
	v1.Get("/cafes/nearby", with(NearbyCafesHandler(deps)))
	v1.Get("/cafes/:id", with(GetCafeHandler(deps)))
	v1.Patch("/cafes/:id", with(UpdateCafeHandler(deps)))
	v1.Delete("/cafes/:id", with(DeleteCafeHandler(deps)))
	v1.Post("/cafes/:id/wishlist/toggle", with(ToggleWishlistHandler(deps)))
	v1.Get("/stats", with(StatsHandler(deps)))

	// Photos. Compression can take a while for large images.
	v1.Post("/cafes/:id/photos", timeout.NewWithContext(UploadPhotoHandler(deps), 60*time.Second))
	v1.Get("/photos/:id", with(GetPhotoHandler(deps)))
	v1.Delete("/photos/:id", with(DeletePhotoHandler(deps)))

	// Place search
	v1.Get("/places/search", with(SearchPlacesHandler(deps)))

	// Fog
	v1.Get("/fog/points", with(FogPointsHandler(deps)))
	v1.Get("/visited-coords", with(FogPointsHandler(deps))) // deprecated alias
	v1.Get("/fog.png", with(FogPNGHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/fog", websocket.New(FogSocketHandler(deps)))
}
