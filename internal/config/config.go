package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server         ServerConfig
	Upstream       UpstreamConfig
	JWT            JWTConfig
	Security       SecurityConfig
	CircuitBreaker CircuitBreakerConfig
	Fallback       FallbackConfig
	Analytics      AnalyticsConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	LogLevel         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
}

// UpstreamConfig points at the analytics REST service the dashboards read from.
type UpstreamConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type JWTConfig struct {
	AccessTokenDuration time.Duration
	PrivateKey          *rsa.PrivateKey
	PublicKey           *rsa.PublicKey
	Issuer              string
}

type SecurityConfig struct {
	RateLimitPerSecond int
	RateLimitBurst     int
}

type CircuitBreakerConfig struct {
	MaxFailures      int
	ResetTimeout     time.Duration
	HalfOpenRequests int
}

type FallbackConfig struct {
	// Seed fixes synthesized data. Zero picks a seed at startup.
	Seed uint64
}

type AnalyticsConfig struct {
	CoalesceRequests bool
	SessionTTL       time.Duration
}

// Load reads a .env file if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "localhost"),
			Environment:     getEnv("APP_ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("ANALYTICS_API_URL", "http://localhost:5000"),
			APIKey:  getEnv("ANALYTICS_API_KEY", ""),
			Timeout: getDurationEnv("ANALYTICS_API_TIMEOUT", 10*time.Second),
		},
		Security: SecurityConfig{
			RateLimitPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 40),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:      getIntEnv("CIRCUIT_BREAKER_MAX_FAILURES", 5),
			ResetTimeout:     getDurationEnv("CIRCUIT_BREAKER_RESET_TIMEOUT", 30*time.Second),
			HalfOpenRequests: getIntEnv("CIRCUIT_BREAKER_HALF_OPEN_REQUESTS", 2),
		},
		Fallback: FallbackConfig{
			Seed: getUint64Env("FALLBACK_SEED", 0),
		},
		Analytics: AnalyticsConfig{
			CoalesceRequests: getBoolEnv("ANALYTICS_COALESCE_REQUESTS", true),
			SessionTTL:       getDurationEnv("ANALYTICS_SESSION_TTL", 30*time.Minute),
		},
		JWT: JWTConfig{
			AccessTokenDuration: getDurationEnv("JWT_ACCESS_TOKEN_DURATION", 24*time.Hour),
			Issuer:              getEnv("JWT_ISSUER", "tourism-analytics"),
		},
	}

	config.Server.CORSAllowOrigins = config.loadCORSAllowOrigins()

	var err error
	config.JWT.PrivateKey, config.JWT.PublicKey, err = config.loadJWTKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT keys: %w", err)
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsTesting() bool {
	return c.Server.Environment == "testing"
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// loadJWTKeys loads the RSA keys used for viewer tokens.
// Priority order:
// 1. JWT_PUBLIC_KEY (and optionally JWT_PRIVATE_KEY) from the environment
// 2. In production a missing public key is an error
// 3. Elsewhere a keypair is generated so dev tokens can be issued locally
func (c *Config) loadJWTKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKeyB64 := os.Getenv("JWT_PRIVATE_KEY")
	publicKeyB64 := os.Getenv("JWT_PUBLIC_KEY")

	if publicKeyB64 != "" {
		slog.Info("loading RSA keys from environment variables")
		return c.loadKeysFromEnvVars(privateKeyB64, publicKeyB64)
	}

	if c.IsProduction() {
		return nil, nil, fmt.Errorf("JWT_PUBLIC_KEY environment variable must be set in production environments")
	}

	slog.Info("generating RSA keypair for viewer tokens", "environment", c.Server.Environment)
	return GenerateRSAKeyPair()
}

// loadKeysFromEnvVars decodes base64 PEM keys. The private key is optional;
// without it the service only verifies tokens.
func (c *Config) loadKeysFromEnvVars(privateKeyB64, publicKeyB64 string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode JWT_PUBLIC_KEY: %w", err)
	}

	publicKey, err := loadRSAPublicKey(publicKeyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	if privateKeyB64 == "" {
		return nil, publicKey, nil
	}

	privateKeyBytes, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode JWT_PRIVATE_KEY: %w", err)
	}

	privateKey, err := loadRSAPrivateKey(privateKeyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return privateKey, publicKey, nil
}

func (c *Config) loadCORSAllowOrigins() []string {
	corsOrigins := os.Getenv("CORS_ALLOW_ORIGINS")

	if corsOrigins == "" {
		if c.IsProduction() {
			slog.Warn("CORS_ALLOW_ORIGINS not set in production, defaulting to all origins")
		}
		return []string{"*"}
	}

	origins := strings.Split(corsOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}

func GenerateRSAKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return privateKey, &privateKey.PublicKey, nil
}

func loadRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return privateKey, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return rsaKey, nil
}

func loadRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}

	return rsaPublicKey, nil
}
