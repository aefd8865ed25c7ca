// Package config reads the service settings from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DSN    string
	Port   string
	AppEnv string

	BaseURL            string
	AdminAPIKey        string
	AdminAllowedEmails []string
	AdminSecret        string
	GoogleClientID     string
	GoogleClientSecret string
}

func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	c := Config{
		DSN:                strings.TrimSpace(os.Getenv("DB_DSN")),
		Port:               env("PORT", "8080"),
		AppEnv:             strings.ToLower(env("APP_ENV", "development")),
		BaseURL:            strings.TrimRight(env("BASE_URL", "http://localhost:8080"), "/"),
		AdminAPIKey:        os.Getenv("ADMIN_API_KEY"),
		AdminAllowedEmails: splitList(os.Getenv("ADMIN_ALLOWED_EMAILS")),
		AdminSecret:        os.Getenv("JWT_ADMIN_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}
	if c.AdminSecret == "" {
		c.AdminSecret = os.Getenv("SECRET_KEY")
	}
	if c.DSN == "" {
		c.DSN = buildDSN()
	}
	return c
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// GoogleLoginEnabled reports whether both Google OAuth credentials are set.
func (c Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func buildDSN() string {
	host := env("DB_HOST", "localhost")
	port := env("DB_PORT", "5432")
	user := firstEnv("postgres", "DB_USER", "POSTGRES_USER")
	pass := firstEnv("postgres", "DB_PASSWORD", "POSTGRES_PASSWORD")
	name := firstEnv("joyeria", "DB_NAME", "POSTGRES_DB")
	ssl := env("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(def string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
