package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/wildmind/studio-api/internal/auth"
	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/handler"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/middleware"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/storage"
	"github.com/wildmind/studio-api/internal/storage/storagetest"
	"github.com/wildmind/studio-api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	redis   *redis.Client
	blobs   *storage.MemoryStore
	sets    *store.MemorySetStore
	jobs    *service.JobService
	runner  *service.ShotRunner
	library *service.LibraryService
}

type appOptions struct {
	proxyHosts []string
	// failDeletes lists blob keys whose deletion fails
	failDeletes []string
}

// stubFetcher serves fixed PNG bytes for any URL so re-hosting needs no network.
type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ string) (*client.Download, error) {
	return &client.Download{Body: pngBytes(), ContentType: "image/png"}, nil
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

// setupApp creates a Fiber app wired like the serve command, with upstream
// providers unconfigured, in-memory blob and set stores, and Redis DB 14.
func setupApp(t *testing.T, opts ...appOptions) *testApp {
	t.Helper()

	var opt appOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   14, // service tests flush DB 15
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: "localhost:6379", DB: 14}
	asynqClient := asynq.NewClient(redisOpt)
	inspector := asynq.NewInspector(redisOpt)
	t.Cleanup(func() {
		asynqClient.Close()
		inspector.Close()
		redisClient.Close()
	})

	validate := validator.New()
	m := metrics.NewNop()

	blobs := storage.NewMemoryStore("")
	var owned storage.BlobStore = blobs
	if len(opt.failDeletes) > 0 {
		owned = storagetest.FailDeletes(blobs, opt.failDeletes...)
	}
	sets := store.NewMemorySetStore()
	rehoster := service.NewRehoster(stubFetcher{}, owned, m)

	// Upstream clients without keys
	breakers := client.NewBreakers(config.BreakerConfig{}, m)
	minimax := client.NewMiniMaxClient(&config.MiniMaxConfig{}, breakers, m)
	backend := client.NewBackendClient(&config.BackendConfig{}, breakers, m)

	jobs := service.NewJobService(redisClient, asynqClient, inspector)
	runner := service.NewShotRunner(client.NewMockGenerator(0), rehoster, sets, time.Millisecond, m)
	videos := service.NewVideoService(minimax, rehoster, 0, 0, m)
	images := service.NewImageService(backend, rehoster)
	music := service.NewMusicService(minimax, owned)
	media := service.NewMediaService(stubFetcher{}, owned, opt.proxyHosts)
	uploads := service.NewUploadService(owned)
	library := service.NewLibraryService(sets, owned, rehoster, m)

	authn := auth.NewAuthenticator(nil, testJWTSecret)
	authHandler := handler.NewAuthHandler(authn)
	projectHandler := handler.NewProjectHandler(jobs, validate)
	videoHandler := handler.NewVideoHandler(videos, jobs, minimax.IsConfigured(), validate)
	libraryHandler := handler.NewLibraryHandler(library)
	uploadHandler := handler.NewUploadHandler(uploads)
	mediaHandler := handler.NewMediaHandler(images, music, media, backend.IsConfigured(), minimax.IsConfigured(), validate)

	// zero limits disable rate limiting
	rateLimiter := middleware.NewRateLimiter(redisClient, config.RateLimitConfig{}, m)

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})
	app.Use(requestid.New())
	app.Use(middleware.Metrics(m))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	healthHandler := handler.NewHealthHandler(handler.HealthStatus{
		Redis:   func(ctx context.Context) bool { return redisClient.Ping(ctx).Err() == nil },
		MiniMax: minimax.IsConfigured(),
		Backend: backend.IsConfigured(),
		Auth:    authn.Configured(),
	})
	app.Get("/health", healthHandler.Health)
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", middleware.Authenticate(authn))

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

	lib := api.Group("/library")
	lib.Get("/", libraryHandler.List)
	lib.Post("/cleanup", libraryHandler.Cleanup)
	lib.Post("/migrate", libraryHandler.Migrate)
	lib.Get("/:id", libraryHandler.Get)
	lib.Delete("/:id", libraryHandler.Delete)

	return &testApp{
		app:     app,
		redis:   redisClient,
		blobs:   blobs,
		sets:    sets,
		jobs:    jobs,
		runner:  runner,
		library: library,
	}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.IssueSessionToken(testJWTSecret, auth.Identity{
		UserID: "test-user-123",
		Email:  "test@example.com",
	}, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := e["code"].(string)
	return code
}
