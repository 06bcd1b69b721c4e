package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBURL           string
	Auth0Domain     string
	Auth0Audience   string
	JWTSecret       string
	AllowedOrigins  []string
	AdminSubjects   []string
	VaultKey        []byte
	LogLevel        string
	IsDevelopment   bool
	MaxLiveQuantity int
	QuizPassPercent int
}

const (
	devIssuer   = "stratdesk-dev"
	devAudience = "stratdesk-api"
)

// LoadDotEnv loads a .env file unless running on the hosting platform.
func LoadDotEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") == "" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, environment variables might not be loaded: %v", err)
		}
	}
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		DBURL:           getenv("DB_URL", "sqlite:stratdesk.db"),
		Auth0Domain:     os.Getenv("AUTH0_DOMAIN"),
		Auth0Audience:   os.Getenv("AUTH0_AUDIENCE"),
		JWTSecret:       os.Getenv("JWT_SECRET_KEY"),
		AllowedOrigins:  splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		AdminSubjects:   splitList(os.Getenv("ADMIN_SUBJECTS")),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		IsDevelopment:   os.Getenv("AUTH0_DOMAIN") == "",
		MaxLiveQuantity: 50,
		QuizPassPercent: 70,
	}

	var err error
	if cfg.MaxLiveQuantity, err = intEnv("MAX_LIVE_QUANTITY", cfg.MaxLiveQuantity); err != nil {
		return cfg, err
	}
	if cfg.QuizPassPercent, err = intEnv("QUIZ_PASS_PERCENT", cfg.QuizPassPercent); err != nil {
		return cfg, err
	}
	if cfg.QuizPassPercent < 0 || cfg.QuizPassPercent > 100 {
		return cfg, fmt.Errorf("config: QUIZ_PASS_PERCENT must be between 0 and 100")
	}

	if cfg.IsDevelopment {
		if cfg.JWTSecret == "" {
			return cfg, fmt.Errorf("config: JWT_SECRET_KEY is required when AUTH0_DOMAIN is not set")
		}
		if cfg.Auth0Audience == "" {
			cfg.Auth0Audience = devAudience
		}
	} else if cfg.Auth0Audience == "" {
		return cfg, fmt.Errorf("config: AUTH0_AUDIENCE is required with AUTH0_DOMAIN")
	}

	if raw := os.Getenv("VAULT_KEY"); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return cfg, fmt.Errorf("config: VAULT_KEY must be base64: %w", err)
		}
		if len(key) < 32 {
			return cfg, fmt.Errorf("config: VAULT_KEY must decode to at least 32 bytes")
		}
		cfg.VaultKey = key
	} else if cfg.IsDevelopment {
		cfg.VaultKey = []byte("dev-vault|" + cfg.JWTSecret)
	} else {
		return cfg, fmt.Errorf("config: VAULT_KEY is required in production")
	}

	return cfg, nil
}

// Issuer is the expected token issuer.
func (c Config) Issuer() string {
	if c.IsDevelopment {
		return devIssuer
	}
	return "https://" + c.Auth0Domain + "/"
}

func (c Config) IsAdmin(subject string) bool {
	for _, s := range c.AdminSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
