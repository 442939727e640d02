package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	MetricsAddr   string
	Environment   string
	JWTSigningKey string

	// RulesPath points at the access control rules file.
	RulesPath     string
	DefaultPolicy string

	// BackendURL is the base URL of the authentication backend that issues
	// challenges and confirms ceremonies.
	BackendURL string

	// MemoryElevation switches the step-up workflow to the local in-memory
	// code issuer, for development without a backend.
	MemoryElevation bool

	ElevationTTL time.Duration
	PasscodeLen  int

	Redis RedisConfig

	// KafkaBrokers enables streaming the audit trail to kafka when set.
	KafkaBrokers string
	KafkaTopic   string
}

// RedisConfig configures the optional redis-backed preference store. An
// empty URL means redis is not used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultElevationTTL bounds how long a generated step-up code stays
// redeemable.
var DefaultElevationTTL = 10 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUTHELIA_ADDR")
	if addr == "" {
		addr = ":9091"
	}

	metricsAddr := os.Getenv("AUTHELIA_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9959"
	}

	rulesPath := os.Getenv("ACCESS_CONTROL_RULES")
	if rulesPath == "" {
		rulesPath = "access_control.yml"
	}

	defaultPolicy := os.Getenv("ACCESS_CONTROL_DEFAULT_POLICY")
	if defaultPolicy == "" {
		defaultPolicy = "deny"
	}

	elevationTTL := DefaultElevationTTL
	if s := os.Getenv("ELEVATION_TTL"); s != "" {
		if duration, err := time.ParseDuration(s); err == nil {
			elevationTTL = duration
		}
	}

	passcodeLen := 6
	if s := os.Getenv("TOTP_DIGITS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			passcodeLen = n
		}
	}

	backendURL := os.Getenv("AUTHELIA_BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:9092"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	environment := os.Getenv("AUTHELIA_ENV")
	if environment == "" {
		environment = "development"
	}

	kafkaTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "authelia.second-factor.events"
	}

	return Server{
		Addr:            addr,
		MetricsAddr:     metricsAddr,
		Environment:     environment,
		JWTSigningKey:   jwtSigningKey,
		RulesPath:       rulesPath,
		DefaultPolicy:   defaultPolicy,
		BackendURL:      backendURL,
		MemoryElevation: os.Getenv("ELEVATION_BACKEND") == "memory",
		ElevationTTL:    elevationTTL,
		PasscodeLen:     passcodeLen,
		Redis:           redisFromEnv(),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:      kafkaTopic,
	}
}

func redisFromEnv() RedisConfig {
	cfg := RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	if s := os.Getenv("REDIS_POOL_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.PoolSize = n
		}
	}

	return cfg
}
