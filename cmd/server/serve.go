package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wildmind/studio-api/internal/auth"
	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/handler"
	"github.com/wildmind/studio-api/internal/middleware"
	"github.com/wildmind/studio-api/pkg/response"
)

var serveWithWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(serveWithWorker)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWithWorker, "with-worker", true, "Also process queued jobs in this process")
}

func runServe(withWorker bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg)
	defer a.Close()

	go a.hub.Run(ctx)
	go a.hub.Subscribe(ctx)

	if withWorker {
		srv := newWorkerServer(a)
		if err := srv.Start(newWorkerMux(a)); err != nil {
			return err
		}
		defer srv.Shutdown()
	}

	app := newFiberApp(a, newAuthenticator(ctx, cfg))

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Infof("Server starting on %s", addr)
	return app.Listen(addr)
}

// newAuthenticator builds the bearer token chain. The Zitadel verifier is
// optional; session tokens signed with JWT_SECRET are the fallback.
func newAuthenticator(ctx context.Context, cfg *config.Config) *auth.Authenticator {
	var verifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		jwks, err := auth.NewJWKSVerifier(ctx, &cfg.Zitadel)
		if err != nil {
			log.WithError(err).Warn("JWKS verifier not initialized")
		} else {
			verifier = jwks
		}
	}
	return auth.NewAuthenticator(verifier, cfg.JWT.Secret)
}

func newFiberApp(a *app, authn *auth.Authenticator) *fiber.App {
	validate := validator.New()

	apiAuth := middleware.Authenticate(authn)
	if cfg.Gateway.Enabled {
		log.Info("Gateway mode enabled, using header-based auth")
		apiAuth = middleware.GatewayIdentity()
	}
	log.WithField("mode", authn.Mode()).Info("Bearer authentication ready")

	authHandler := handler.NewAuthHandler(authn)
	projectHandler := handler.NewProjectHandler(a.jobs, validate)
	videoHandler := handler.NewVideoHandler(a.videos, a.jobs, a.minimax.IsConfigured(), validate)
	libraryHandler := handler.NewLibraryHandler(a.library)
	uploadHandler := handler.NewUploadHandler(a.uploads)
	mediaHandler := handler.NewMediaHandler(a.images, a.music, a.media, a.backend.IsConfigured(), a.minimax.IsConfigured(), validate)
	rateLimiter := middleware.NewRateLimiter(a.redis, cfg.RateLimit, a.metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    20 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	logFormat := "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(logger.New(logger.Config{Format: logFormat}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: fiber.HeaderXRequestID,
	}))
	app.Use(middleware.Metrics(a.metrics))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})

	healthHandler := handler.NewHealthHandler(handler.HealthStatus{
		Redis:   func(ctx context.Context) bool { return a.redis.Ping(ctx).Err() == nil },
		Flux:    a.flux.IsConfigured(),
		MiniMax: a.minimax.IsConfigured(),
		Backend: a.backend.IsConfigured(),
		Storage: a.blobsStored,
		Auth:    authn.Configured(),
	})
	app.Get("/health", healthHandler.Health)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", apiAuth)

	projects := api.Group("/projects")
	projects.Post("/start", rateLimiter.ProjectLimit(), projectHandler.Start)
	projects.Get("/status/:jobId", projectHandler.Status)
	projects.Get("/result/:jobId", projectHandler.Result)
	projects.Post("/cancel/:jobId", projectHandler.Cancel)

	video := api.Group("/video")
	video.Get("/models", videoHandler.Models)
	video.Post("/generate", rateLimiter.VideoLimit(), videoHandler.Generate)
	video.Post("/status", videoHandler.Status)
	video.Post("/download", videoHandler.Download)
	video.Post("/start", rateLimiter.VideoLimit(), videoHandler.Start)
	video.Get("/jobs/:jobId", videoHandler.JobStatus)
	video.Get("/jobs/:jobId/result", videoHandler.JobResult)

	api.Post("/images/generate", rateLimiter.ImageLimit(), mediaHandler.GenerateImage)
	api.Post("/music/generate", rateLimiter.MusicLimit(), mediaHandler.GenerateMusic)
	api.Get("/media/proxy", mediaHandler.Proxy)
	api.Post("/uploads/reference", rateLimiter.UploadLimit(), uploadHandler.Reference)

	library := api.Group("/library")
	library.Get("/", libraryHandler.List)
	library.Post("/cleanup", libraryHandler.Cleanup)
	library.Post("/migrate", libraryHandler.Migrate)
	library.Get("/:id", libraryHandler.Get)
	library.Delete("/:id", libraryHandler.Delete)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		a.hub.Serve(c, c.Params("jobId"))
	}))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
