package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Answering AnsweringConfig
	Projects  ProjectsConfig
	Client    ClientConfig
	Events    EventsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AnsweringConfig points at the external retrieval/answering service.
type AnsweringConfig struct {
	BaseURL string
	Timeout time.Duration
	// LockTTL bounds how long a conversation stays busy if a proxy request never finishes.
	LockTTL time.Duration
}

type ProjectsConfig struct {
	Catalog []string
}

// ClientConfig is read by the terminal client only.
type ClientConfig struct {
	BackendURL  string
	Token       string
	LogFilePath string
}

type EventsConfig struct {
	ChatTopic string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Answering: AnsweringConfig{
			BaseURL: getEnv("ANSWERING_BASE_URL", "http://localhost:8000/api/nlp/index"),
			Timeout: getEnvAsDuration("ANSWERING_TIMEOUT", 120*time.Second),
			LockTTL: getEnvAsDuration("CONVERSATION_LOCK_TTL", 3*time.Minute),
		},
		Projects: ProjectsConfig{
			Catalog: getEnvAsList("PROJECTS", []string{"Projet Alpha", "Rapport Annuel Q3", "Données Techniques"}),
		},
		Client: ClientConfig{
			BackendURL:  getEnv("ASKSOURCE_BACKEND_URL", "http://localhost:3000"),
			Token:       getEnv("ASKSOURCE_TOKEN", ""),
			LogFilePath: getEnv("ASKSOURCE_LOG_FILE_PATH", "logs/asksource.log"),
		},
		Events: EventsConfig{
			ChatTopic: getEnv("CHAT_EVENTS_TOPIC", "CHAT_EVENTS"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds := getEnvAsInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
