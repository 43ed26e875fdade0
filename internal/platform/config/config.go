package config

import (
	"os"
	"strconv"
	"time"
)

// StoreBackend selects the relay store implementation.
type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

// Server captures relay server configuration.
type Server struct {
	Addr            string
	Store           StoreBackend
	RedisURL        string
	PostgresDSN     string
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	MaxPayloadBytes int64
	// PublicOrigin is the origin embedded into handoff URLs rendered by the QR
	// endpoint. Empty means derive it from the incoming request.
	PublicOrigin    string
	ShutdownTimeout time.Duration
}

// Client captures polling-side configuration.
type Client struct {
	BaseURL      string
	PollInterval time.Duration
	// MaxWait bounds how long a poll loop may run; zero keeps polling until the
	// caller cancels.
	MaxWait time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RELAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	backend := StoreBackend(os.Getenv("RELAY_STORE"))
	switch backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		backend = StoreMemory
	}

	return Server{
		Addr:            addr,
		Store:           backend,
		RedisURL:        os.Getenv("RELAY_REDIS_URL"),
		PostgresDSN:     os.Getenv("RELAY_POSTGRES_DSN"),
		SessionTTL:      durationEnv("RELAY_SESSION_TTL", 15*time.Minute),
		CleanupInterval: durationEnv("RELAY_CLEANUP_INTERVAL", time.Minute),
		MaxPayloadBytes: int64Env("RELAY_MAX_PAYLOAD_BYTES", 8<<20),
		PublicOrigin:    os.Getenv("RELAY_PUBLIC_ORIGIN"),
		ShutdownTimeout: durationEnv("RELAY_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// ClientFromEnv builds a Client config with the reference 2s poll interval.
func ClientFromEnv() Client {
	base := os.Getenv("RELAY_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return Client{
		BaseURL:      base,
		PollInterval: durationEnv("RELAY_POLL_INTERVAL", 2*time.Second),
		MaxWait:      durationEnv("RELAY_POLL_MAX_WAIT", 0),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func int64Env(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
