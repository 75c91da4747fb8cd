package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Firebase FirebaseConfig
	Booking  BookingConfig
	Poll     PollConfig
	CORS     CORSConfig
	Sentry   SentryConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

// BookingConfig points at the municipal booking site the prober watches and
// the public portal the notifications link back to.
type BookingConfig struct {
	BaseURL    string
	PortalLink string
	IconURL    string
}

type PollConfig struct {
	// TriggerSecret is the bearer credential the external scheduler must present.
	TriggerSecret string
	// ProbeTimeout bounds each upstream availability check.
	ProbeTimeout time.Duration
	// ProbeConcurrency caps how many probes run at once within a tick.
	ProbeConcurrency int
	// MaxSubscriptionAge is how long a watch may live before it is pruned.
	MaxSubscriptionAge time.Duration
}

type CORSConfig struct {
	Origins []string
}

type SentryConfig struct {
	DSN string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Booking: BookingConfig{
			BaseURL:    getEnv("BOOKING_BASE_URL", "http://www.valencia.es/qsige.localizador"),
			PortalLink: getEnv("BOOKING_PORTAL_LINK", "https://www.valencia.es/cas/tramites/cita-previa"),
			IconURL:    getEnv("BOOKING_ICON_URL", "https://www.valencia.es/qsige.localizador/img/logo.png"),
		},
		Poll: PollConfig{
			TriggerSecret:      getEnv("POLL_TRIGGER_SECRET", ""),
			ProbeTimeout:       getDuration("POLL_PROBE_TIMEOUT", 10*time.Second),
			ProbeConcurrency:   getInt("POLL_PROBE_CONCURRENCY", 8),
			MaxSubscriptionAge: getDuration("POLL_MAX_SUBSCRIPTION_AGE", 60*24*time.Hour),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s (%q), using %s", key, value, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("⚠️  Invalid integer for %s (%q), using %d", key, value, fallback)
		return fallback
	}
	return n
}
