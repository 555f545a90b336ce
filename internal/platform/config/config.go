package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come
// from the environment so deployments stay twelve-factor; nothing in the
// core reads os.Getenv directly.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisAddr   string

	// Workflow tuning.
	CheckTimeout    time.Duration
	VerifyThreshold float64
	RejectThreshold float64

	// Aggregator tuning.
	AggregateCallTimeout time.Duration
	AggregateDeadline    time.Duration
	AggregateCacheTTL    time.Duration
	// Downstream services as "name=url" pairs, comma separated.
	DownstreamServices map[string]string
	PrimaryService     string

	// Admin auth.
	JWTSigningKey string

	// Optional audit mirroring.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        getenv("TRUSTGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		CheckTimeout:    getenvDuration("CHECK_TIMEOUT", 5*time.Second),
		VerifyThreshold: getenvFloat("VERIFY_THRESHOLD", 80),
		RejectThreshold: getenvFloat("REJECT_THRESHOLD", 50),

		AggregateCallTimeout: getenvDuration("AGGREGATE_CALL_TIMEOUT", 5*time.Second),
		AggregateDeadline:    getenvDuration("AGGREGATE_DEADLINE", 10*time.Second),
		AggregateCacheTTL:    getenvDuration("AGGREGATE_CACHE_TTL", 30*time.Second),
		DownstreamServices:   parseServices(os.Getenv("DOWNSTREAM_SERVICES")),
		PrimaryService:       getenv("PRIMARY_SERVICE", "identity"),

		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		KafkaBrokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_AUDIT_TOPIC", "trustgate.audit"),
	}
}

// parseServices reads "identity=http://pss:4001,business=http://emo:4003".
func parseServices(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitNonEmpty(raw) {
		name, url, ok := strings.Cut(pair, "=")
		if !ok || name == "" || url == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(url)
	}
	return out
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Validate catches configuration that cannot work before anything starts.
func (c Config) Validate() error {
	if c.RejectThreshold > c.VerifyThreshold {
		return fmt.Errorf("REJECT_THRESHOLD %.1f must not exceed VERIFY_THRESHOLD %.1f",
			c.RejectThreshold, c.VerifyThreshold)
	}
	return nil
}
