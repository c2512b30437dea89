package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean; zero values for Postgres, Redis
// and Kafka select the in-memory / disabled implementations, which keeps
// local development dependency-free.
type Config struct {
	Env  string
	Addr string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// Signing material for nonce-binding MACs. Versioned so multi-instance
	// deployments can rotate keys without invalidating existing bindings.
	SigningSecrets       map[string]string
	SigningSecretVersion string

	// JWT signing key for identity attestations.
	AttestationSigningKey string
	AttestationIssuer     string

	// AdminToken guards governance endpoints (flagging, slashing, manual
	// rounds). Empty disables them entirely.
	AdminToken string

	Calibration CalibrationConfig
}

// RedisConfig mirrors the connection knobs the platform redis client applies.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event publisher. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// CalibrationConfig holds tunables for the consensus pipeline. Defaults
// match the consortium governance parameters.
type CalibrationConfig struct {
	KAnonymityFloor    int
	RecommendedCohort  int
	MinReputation      float64
	OutlierZThreshold  float64
	PercentileCutoff   float64
	RequireActiveStake bool
	RunInterval        time.Duration
	MaxConcurrentRules int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Env:  getEnv("CALIBRA_ENV", "development"),
		Addr: getEnv("CALIBRA_ADDR", ":8080"),

		PostgresURL: os.Getenv("CALIBRA_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CALIBRA_REDIS_URL"),
			PoolSize:     getEnvInt("CALIBRA_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("CALIBRA_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("CALIBRA_KAFKA_BROKERS")),
			AuditTopic: getEnv("CALIBRA_KAFKA_AUDIT_TOPIC", "calibra.audit"),
		},

		SigningSecretVersion:  getEnv("CALIBRA_SIGNING_SECRET_VERSION", "v1"),
		AttestationSigningKey: getEnv("CALIBRA_ATTESTATION_KEY", "dev-attestation-key-change-in-production"),
		AttestationIssuer:     getEnv("CALIBRA_ATTESTATION_ISSUER", "calibra"),
		AdminToken:            os.Getenv("CALIBRA_ADMIN_TOKEN"),

		Calibration: CalibrationConfig{
			KAnonymityFloor:    getEnvInt("CALIBRA_K_FLOOR", 5),
			RecommendedCohort:  getEnvInt("CALIBRA_K_RECOMMENDED", 10),
			MinReputation:      getEnvFloat("CALIBRA_MIN_REPUTATION", 0.1),
			OutlierZThreshold:  getEnvFloat("CALIBRA_OUTLIER_Z", 3.0),
			PercentileCutoff:   getEnvFloat("CALIBRA_PERCENTILE_CUTOFF", 0.2),
			RequireActiveStake: os.Getenv("CALIBRA_REQUIRE_STAKE") == "true",
			RunInterval:        getEnvDuration("CALIBRA_RUN_INTERVAL", time.Hour),
			MaxConcurrentRules: getEnvInt("CALIBRA_MAX_CONCURRENT_RULES", 4),
		},
	}

	// Secret versions arrive as CALIBRA_SIGNING_SECRET_<VERSION>; the dev
	// default keeps local runs working and must be overridden in production.
	cfg.SigningSecrets = map[string]string{
		cfg.SigningSecretVersion: getEnv("CALIBRA_SIGNING_SECRET", "dev-signing-secret-change-in-production"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
