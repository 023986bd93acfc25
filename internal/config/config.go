package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Archive  ArchiveConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Cleanup  CleanupConfig
	Kinds    domain.KindCatalog
}

// AppConfig controls the admin HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	HTTPEnabled           bool
}

// DiscordConfig holds the bot token and the guild objects the bot works with.
type DiscordConfig struct {
	Token                   string
	GuildID                 string
	TicketCategoryID        string
	TicketCreationChannelID string
	TranscriptsChannelID    string
	SupportRoleID           string
}

// StoreConfig selects the ticket store driver.
type StoreConfig struct {
	Driver  string
	DataDir string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ArchiveConfig selects and configures the transcript archival backend.
type ArchiveConfig struct {
	Driver         string
	GitHubToken    string
	GitHubRepo     string
	GitHubBranch   string
	GitHubDir      string
	GitHubAPIURL   string
	GitHubWebURL   string
	TimeoutSeconds int
	FileDir        string
	FileBaseURL    string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorPasswordHash  string
	BcryptCost            int
}

// CleanupConfig drives the leftover-channel sweep.
type CleanupConfig struct {
	Enabled  bool
	Schedule string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			HTTPEnabled:           getEnvAsBool("HTTP_ENABLED", true),
		},
		Discord: DiscordConfig{
			Token:                   os.Getenv("DISCORD_TOKEN"),
			GuildID:                 os.Getenv("DISCORD_GUILD_ID"),
			TicketCategoryID:        os.Getenv("TICKET_CATEGORY_ID"),
			TicketCreationChannelID: os.Getenv("TICKET_CREATION_CHANNEL_ID"),
			TranscriptsChannelID:    os.Getenv("TRANSCRIPTS_CHANNEL_ID"),
			SupportRoleID:           os.Getenv("SUPPORT_ROLE_ID"),
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(getEnv("STORE_DRIVER", "file")),
			DataDir: getEnv("STORE_DATA_DIR", "data"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ticketdesk"),
		},
		Archive: ArchiveConfig{
			Driver:         strings.ToLower(getEnv("ARCHIVE_DRIVER", "github")),
			GitHubToken:    os.Getenv("GITHUB_TOKEN"),
			GitHubRepo:     os.Getenv("GITHUB_REPO"),
			GitHubBranch:   getEnv("GITHUB_BRANCH", "main"),
			GitHubDir:      getEnv("GITHUB_TRANSCRIPTS_DIR", "transcripts"),
			GitHubAPIURL:   getEnv("GITHUB_API_URL", "https://api.github.com"),
			GitHubWebURL:   os.Getenv("GITHUB_WEB_URL"),
			TimeoutSeconds: getEnvAsInt("ARCHIVE_TIMEOUT_SECONDS", 30),
			FileDir:        getEnv("ARCHIVE_FILE_DIR", "transcripts"),
			FileBaseURL:    os.Getenv("ARCHIVE_FILE_BASE_URL"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Cleanup: CleanupConfig{
			Enabled:  getEnvAsBool("CLEANUP_ENABLED", true),
			Schedule: getEnv("CLEANUP_SCHEDULE", "@every 15m"),
		},
		Kinds: domain.DefaultKindCatalog(),
	}

	if path := os.Getenv("TICKET_KINDS_FILE"); path != "" {
		kinds, err := LoadKinds(path)
		if err != nil {
			return nil, err
		}
		cfg.Kinds = kinds
	}

	return cfg, nil
}

// LoadKinds reads the ticket kind catalog from a YAML file.
func LoadKinds(path string) (domain.KindCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.KindCatalog{}, fmt.Errorf("read kinds file: %w", err)
	}
	var catalog domain.KindCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return domain.KindCatalog{}, fmt.Errorf("parse kinds file: %w", err)
	}
	if len(catalog.Kinds) == 0 {
		return domain.KindCatalog{}, errors.New("kinds file defines no kinds")
	}
	seen := make(map[domain.TicketKind]struct{}, len(catalog.Kinds))
	for _, def := range catalog.Kinds {
		if def.Kind == "" || def.Label == "" {
			return domain.KindCatalog{}, fmt.Errorf("kind %q: kind and label are required", def.Kind)
		}
		if _, dup := seen[def.Kind]; dup {
			return domain.KindCatalog{}, fmt.Errorf("kind %q defined twice", def.Kind)
		}
		seen[def.Kind] = struct{}{}
	}
	return catalog, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the archival HTTP client timeout.
func (a ArchiveConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
