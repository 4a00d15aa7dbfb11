package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	Store     StoreConfig
	AI        AIConfig
	Voice     VoiceConfig
	Workspace WorkspaceConfig
	App       AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// DatabaseConfig points at the optional Postgres user directory.
// An empty DSN disables it.
type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

type StoreConfig struct {
	Backend string
}

type AIConfig struct {
	APIKey        string
	Model         string
	PromptsFile   string
	RatePerMinute int
	Burst         int
}

type VoiceConfig struct {
	Enabled bool
}

type WorkspaceConfig struct {
	IdleTTL       time.Duration
	EvictSchedule string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// Load reads envFile (if present) and the process environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, using environment variables", envFile)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreFirestore)),
		},
		AI: AIConfig{
			APIKey:        getEnv("API_KEY", ""),
			Model:         getEnv("AI_MODEL", "gemini-2.5-flash"),
			PromptsFile:   getEnv("AI_PROMPTS_FILE", ""),
			RatePerMinute: getEnvAsInt("AI_RATE_PER_MINUTE", 10),
			Burst:         getEnvAsInt("AI_BURST", 3),
		},
		Voice: VoiceConfig{
			Enabled: getEnvAsBool("VOICE_ENABLED", true),
		},
		Workspace: WorkspaceConfig{
			IdleTTL:       getEnvAsDuration("WORKSPACE_IDLE_TTL", 30*time.Minute),
			EvictSchedule: getEnv("WORKSPACE_EVICT_SCHEDULE", "@every 1m"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case StoreFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.AI.RatePerMinute <= 0 {
		return fmt.Errorf("AI_RATE_PER_MINUTE must be positive")
	}

	if c.Workspace.IdleTTL <= 0 {
		return fmt.Errorf("WORKSPACE_IDLE_TTL must be positive")
	}

	return nil
}

// AIEnabled reports whether the completion credential was present at startup.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.AI.APIKey) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
