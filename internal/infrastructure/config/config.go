package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	BaseAssetDir string `env:"BASE_ASSET_DIR, default=./assets/bases"`
	CacheDir     string `env:"CACHE_DIR,      default=./data/cache"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Space  SpaceConfig
	Render RenderConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=shipping_system"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// SpaceConfig carries the DigitalOcean Spaces (S3-compatible) credentials
// and the CDN host used to read part sprites (spec §6's environment
// configuration enumeration).
type SpaceConfig struct {
	CDNEndpoint string `env:"DO_SPACE_ENDPOINT"`
	Endpoint    string `env:"DO_ENDPOINT"`
	SpaceID     string `env:"DO_SPACE_ID"`
	SpaceKey    string `env:"DO_SPACE_KEY"`
	Bucket      string `env:"DO_SPACE_NAME"`
	UseSSL      bool   `env:"DO_SPACE_SSL, default=true"`
}

// RenderConfig carries the Render Coordinator / Part-Image Loader / Result
// Cache tunables spec §4.2/§4.4/§4.5 describe as constants with defaults.
// Only Workers and QueueCapacity are passed on (to the Coordinator);
// PartFetchConcurrency and ResultCacheTTL are read but not used, and the
// loader's fetch limit (10) and the result cache's TTL (1h) are constants
// in their packages.
type RenderConfig struct {
	Workers              int           `env:"RENDER_WORKERS,          default=3"`
	QueueCapacity        int           `env:"RENDER_QUEUE_CAPACITY,   default=1000"`
	PartFetchConcurrency int           `env:"PART_FETCH_CONCURRENCY,  default=10"`
	ResultCacheTTL       time.Duration `env:"RESULT_CACHE_TTL,        default=1h"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(logger *slog.Logger) *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		panic(err)
	}
	return &cfg
}
