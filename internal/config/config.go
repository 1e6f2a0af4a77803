package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets for Stripe and Resend live here as well
// so that handlers and services receive them by injection instead of
// reading the environment on their own.
type Config struct {
	Env            string // application environment (e.g. "dev", "production")
	Port           string // HTTP port to listen on
	BaseURL        string // public URL of the web front end, used for checkout redirects
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxOpen      int    // connection pool size
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Stripe StripeConfig
	Email  EmailConfig

	Timezone            string        // IANA zone the wash operates in; "today" is computed here
	ExternalCallTimeout time.Duration // deadline applied to Stripe and email calls
}

// StripeConfig carries the payment provider credentials and the optional
// multi‑vehicle ("flock") discount settings.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	Currency         string
	FlockCoupon      string
	FlockMinVehicles int
}

// EmailConfig carries the Resend API key and the addresses used for
// transactional mail.  An empty APIKey switches the sender to log-only mode.
type EmailConfig struct {
	APIKey     string
	From       string
	AdminEmail string
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/production)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		BaseURL:        must("APP_BASE_URL"), // front end origin for success/cancel URLs
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxOpen:      envInt("DB_MAX_OPEN_CONNS", 25),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		Stripe: StripeConfig{
			SecretKey:        must("STRIPE_SECRET_KEY"),
			WebhookSecret:    must("STRIPE_WEBHOOK_SECRET"),
			Currency:         envStr("CURRENCY", "usd"),
			FlockCoupon:      os.Getenv("STRIPE_FLOCK_COUPON"),
			FlockMinVehicles: envInt("FLOCK_MIN_VEHICLES", 2),
		},
		Email:               loadEmail(),
		Timezone:            envStr("TIMEZONE", "UTC"),
		ExternalCallTimeout: envDur("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
	}
}

// LoadWorker reads the subset of configuration the notification worker
// needs.  Database, JWT and Stripe settings are not required.
func LoadWorker() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	return Config{
		Env:                 envStr("APP_ENV", "dev"),
		BaseURL:             must("APP_BASE_URL"),
		Email:               loadEmail(),
		Timezone:            envStr("TIMEZONE", "UTC"),
		ExternalCallTimeout: envDur("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
	}
}

func loadEmail() EmailConfig {
	return EmailConfig{
		APIKey:     os.Getenv("RESEND_API_KEY"),
		From:       envStr("EMAIL_FROM", "Shine Car Wash <noreply@shinecarwash.com>"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
	}
}

// Location resolves the configured timezone, falling back to UTC when the
// name is unknown to the tz database.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c Config) IsProduction() bool { return c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
