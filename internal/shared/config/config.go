package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	OAuth      OAuthConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Client     ClientConfig
	Janitor    JanitorConfig
	TLS        TLSConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type OAuthConfig struct {
	Google   ProviderConfig
	Facebook ProviderConfig
	Twitter  ProviderConfig
	LinkedIn ProviderConfig
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type JWTConfig struct {
	Secret string
}

type EncryptionConfig struct {
	Key string
}

// ClientConfig holds the front-end URLs provider callbacks redirect back to.
type ClientConfig struct {
	SuccessURL string
	ErrorURL   string
}

type JanitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	janitorEnabled := getBoolEnv("JANITOR_ENABLED", true)
	janitorInterval, err := time.ParseDuration(getEnv("JANITOR_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JANITOR_INTERVAL: %w", err)
	}

	// Parse TLS configuration
	tlsEnabled := getBoolEnv("TLS_ENABLED", false)
	tlsCertPath := getEnv("TLS_CERT_PATH", "")
	tlsKeyPath := getEnv("TLS_KEY_PATH", "")
	tlsRedirectHTTP := getBoolEnv("TLS_REDIRECT_HTTP", false)

	// Parse allowed hosts (comma-separated list)
	allowedHostsStr := getEnv("ALLOWED_HOSTS", "")
	var allowedHosts []string
	if allowedHostsStr != "" {
		for _, host := range strings.Split(allowedHostsStr, ",") {
			host = strings.TrimSpace(host)
			if host != "" {
				allowedHosts = append(allowedHosts, host)
			}
		}
	}

	// Construct OAuth callback URLs from HOST_URL
	hostURL := getEnv("HOST_URL", "")
	buildCallbackURL := func(path string, overrideEnv string) string {
		if override := getEnv(overrideEnv, ""); override != "" {
			return override
		}
		if hostURL != "" {
			return fmt.Sprintf("%s%s", hostURL, path)
		}
		return ""
	}

	googleURL := buildCallbackURL("/api/auth/google/callback", "GOOGLE_CALLBACK_URL")
	facebookURL := buildCallbackURL("/api/auth/facebook/callback", "FACEBOOK_CALLBACK_URL")
	twitterURL := buildCallbackURL("/api/auth/twitter/callback", "TWITTER_CALLBACK_URL")
	linkedinURL := buildCallbackURL("/api/auth/linkedin/callback", "LINKEDIN_CALLBACK_URL")

	clientURL := getEnv("CLIENT_URL", "http://localhost:3000")

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "authgate"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "authgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OAuth: OAuthConfig{
			Google: ProviderConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				CallbackURL:  googleURL,
			},
			Facebook: ProviderConfig{
				ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
				ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
				CallbackURL:  facebookURL,
			},
			Twitter: ProviderConfig{
				ClientID:     getEnv("TWITTER_CONSUMER_KEY", ""),
				ClientSecret: getEnv("TWITTER_CONSUMER_SECRET", ""),
				CallbackURL:  twitterURL,
			},
			LinkedIn: ProviderConfig{
				ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
				ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
				CallbackURL:  linkedinURL,
			},
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Client: ClientConfig{
			SuccessURL: getEnv("CLIENT_SUCCESS_URL", clientURL+"/auth/success"),
			ErrorURL:   getEnv("CLIENT_ERROR_URL", clientURL+"/auth/error"),
		},
		Janitor: JanitorConfig{
			Enabled:  janitorEnabled,
			Interval: janitorInterval,
		},
		TLS: TLSConfig{
			Enabled:      tlsEnabled,
			CertPath:     tlsCertPath,
			KeyPath:      tlsKeyPath,
			RedirectHTTP: tlsRedirectHTTP,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "authgate-api"),
			Environment:  getEnv("APP_ENV", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4318"),
			MetricsPort:  getEnv("METRICS_PORT", "9091"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}
	if cfg.Janitor.Enabled && cfg.Janitor.Interval <= 0 {
		return nil, fmt.Errorf("JANITOR_INTERVAL must be positive")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL renders the postgres:// form golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
