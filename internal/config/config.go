package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

// DefaultJWTSecret is only acceptable outside production
const DefaultJWTSecret = "change-me-in-production"

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
	Storage    StorageConfig
	Flux       FluxConfig
	MiniMax    MiniMaxConfig
	Backend    BackendConfig
	Generation GenerationConfig
	Breaker    BreakerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ProjectsPerHour int
	VideosPerHour   int
	ImagesPerHour   int
	MusicPerHour    int
	UploadsPerHour  int
}

type ZitadelConfig struct {
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

// StorageConfig selects the blob backend. Provider is "r2" or "gcs".
type StorageConfig struct {
	Provider string
	R2       R2Config
	GCS      GCSConfig
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicURL       string
}

type FluxConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

type MiniMaxConfig struct {
	APIKey  string
	BaseURL string
	GroupID string
}

type BackendConfig struct {
	BaseURL string
	Timeout int // seconds
}

// GenerationConfig holds the pacing of upstream calls.
type GenerationConfig struct {
	StepDelay         time.Duration
	PollInterval      time.Duration
	MaxPollAttempts   int
	FluxPollInterval  time.Duration
	FluxPollAttempts  int
	ProxyAllowedHosts []string
}

type BreakerConfig struct {
	FailureThreshold uint32
	Interval         time.Duration
	Timeout          time.Duration
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")
	readSecret("BFL_API_KEY")
	readSecret("MINIMAX_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = viper.BindEnv("ratelimit.projects_per_hour", "RATE_LIMIT_PROJECTS")
	_ = viper.BindEnv("ratelimit.videos_per_hour", "RATE_LIMIT_VIDEOS")
	_ = viper.BindEnv("ratelimit.images_per_hour", "RATE_LIMIT_IMAGES")
	_ = viper.BindEnv("ratelimit.music_per_hour", "RATE_LIMIT_MUSIC")
	_ = viper.BindEnv("ratelimit.uploads_per_hour", "RATE_LIMIT_UPLOADS")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("storage.provider", "STORAGE_PROVIDER")
	_ = viper.BindEnv("storage.r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("storage.r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("storage.r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("storage.gcs.bucket", "GCS_BUCKET")
	_ = viper.BindEnv("storage.gcs.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = viper.BindEnv("storage.gcs.public_url", "GCS_PUBLIC_URL")
	_ = viper.BindEnv("flux.api_key", "BFL_API_KEY")
	_ = viper.BindEnv("flux.base_url", "BFL_BASE_URL")
	_ = viper.BindEnv("flux.default_model", "BFL_DEFAULT_MODEL")
	_ = viper.BindEnv("minimax.api_key", "MINIMAX_API_KEY")
	_ = viper.BindEnv("minimax.base_url", "MINIMAX_BASE_URL")
	_ = viper.BindEnv("minimax.group_id", "MINIMAX_GROUP_ID")
	_ = viper.BindEnv("backend.base_url", "IMAGE_BACKEND_URL")
	_ = viper.BindEnv("backend.timeout", "IMAGE_BACKEND_TIMEOUT")
	_ = viper.BindEnv("generation.step_delay", "GENERATION_STEP_DELAY")
	_ = viper.BindEnv("generation.poll_interval", "VIDEO_POLL_INTERVAL")
	_ = viper.BindEnv("generation.max_poll_attempts", "VIDEO_MAX_POLL_ATTEMPTS")
	_ = viper.BindEnv("generation.flux_poll_interval", "FLUX_POLL_INTERVAL")
	_ = viper.BindEnv("generation.flux_poll_attempts", "FLUX_POLL_ATTEMPTS")
	_ = viper.BindEnv("generation.proxy_allowed_hosts", "PROXY_ALLOWED_HOSTS")
	_ = viper.BindEnv("breaker.failure_threshold", "BREAKER_FAILURE_THRESHOLD")
	_ = viper.BindEnv("breaker.interval", "BREAKER_INTERVAL")
	_ = viper.BindEnv("breaker.timeout", "BREAKER_TIMEOUT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", DefaultJWTSecret)
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.projects_per_hour", 10)
	viper.SetDefault("ratelimit.videos_per_hour", 10)
	viper.SetDefault("ratelimit.images_per_hour", 60)
	viper.SetDefault("ratelimit.music_per_hour", 20)
	viper.SetDefault("ratelimit.uploads_per_hour", 100)
	viper.SetDefault("gateway.enabled", false)

	// Storage defaults
	viper.SetDefault("storage.provider", "r2")

	// Upstream defaults
	viper.SetDefault("flux.base_url", "https://api.bfl.ai/v1")
	viper.SetDefault("flux.default_model", "flux-kontext-pro")
	viper.SetDefault("minimax.base_url", "https://api.minimax.io/v1")
	viper.SetDefault("backend.timeout", 180)

	// Pacing defaults
	viper.SetDefault("generation.step_delay", 3*time.Second)
	viper.SetDefault("generation.poll_interval", 5*time.Second)
	viper.SetDefault("generation.max_poll_attempts", 60)
	viper.SetDefault("generation.flux_poll_interval", 2*time.Second)
	viper.SetDefault("generation.flux_poll_attempts", 30)
	viper.SetDefault("generation.proxy_allowed_hosts", []string{
		"firebasestorage.googleapis.com",
		"storage.googleapis.com",
		"r2.dev",
		"bfl.ai",
		"ngrok-free.app",
	})

	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.interval", 60*time.Second)
	viper.SetDefault("breaker.timeout", 30*time.Second)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ProjectsPerHour: viper.GetInt("ratelimit.projects_per_hour"),
			VideosPerHour:   viper.GetInt("ratelimit.videos_per_hour"),
			ImagesPerHour:   viper.GetInt("ratelimit.images_per_hour"),
			MusicPerHour:    viper.GetInt("ratelimit.music_per_hour"),
			UploadsPerHour:  viper.GetInt("ratelimit.uploads_per_hour"),
		},
		Zitadel: ZitadelConfig{
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		Storage: StorageConfig{
			Provider: strings.ToLower(viper.GetString("storage.provider")),
			R2: R2Config{
				AccountID:       viper.GetString("storage.r2.account_id"),
				AccessKeyID:     viper.GetString("storage.r2.access_key_id"),
				SecretAccessKey: viper.GetString("storage.r2.secret_access_key"),
				BucketName:      viper.GetString("storage.r2.bucket_name"),
				PublicURL:       viper.GetString("storage.r2.public_url"),
			},
			GCS: GCSConfig{
				Bucket:          viper.GetString("storage.gcs.bucket"),
				CredentialsFile: viper.GetString("storage.gcs.credentials_file"),
				PublicURL:       viper.GetString("storage.gcs.public_url"),
			},
		},
		Flux: FluxConfig{
			APIKey:       viper.GetString("flux.api_key"),
			BaseURL:      viper.GetString("flux.base_url"),
			DefaultModel: viper.GetString("flux.default_model"),
		},
		MiniMax: MiniMaxConfig{
			APIKey:  viper.GetString("minimax.api_key"),
			BaseURL: viper.GetString("minimax.base_url"),
			GroupID: viper.GetString("minimax.group_id"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("backend.base_url"),
			Timeout: viper.GetInt("backend.timeout"),
		},
		Generation: GenerationConfig{
			StepDelay:         viper.GetDuration("generation.step_delay"),
			PollInterval:      viper.GetDuration("generation.poll_interval"),
			MaxPollAttempts:   viper.GetInt("generation.max_poll_attempts"),
			FluxPollInterval:  viper.GetDuration("generation.flux_poll_interval"),
			FluxPollAttempts:  viper.GetInt("generation.flux_poll_attempts"),
			ProxyAllowedHosts: viper.GetStringSlice("generation.proxy_allowed_hosts"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: uint32(viper.GetInt("breaker.failure_threshold")),
			Interval:         viper.GetDuration("breaker.interval"),
			Timeout:          viper.GetDuration("breaker.timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Env == "production" && c.JWT.Secret == DefaultJWTSecret && c.Zitadel.Issuer == "" && !c.Gateway.Enabled {
		return errors.New("JWT_SECRET must be set in production")
	}
	switch c.Storage.Provider {
	case "", "r2", "gcs":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	if c.Generation.MaxPollAttempts <= 0 {
		return errors.New("generation.max_poll_attempts must be positive")
	}
	if c.Generation.PollInterval <= 0 {
		return errors.New("generation.poll_interval must be positive")
	}
	if c.Generation.StepDelay < 0 {
		return errors.New("generation.step_delay must not be negative")
	}
	return nil
}
