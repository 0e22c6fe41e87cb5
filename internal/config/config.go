package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time provides duration types for TTL settings

	"github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// TTLs and scheduler intervals.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify JWTs from the identity provider

	AdmissionCap    int           // max concurrent admitted seat-selection sessions per event
	AdmissionTTL    time.Duration // how long an admitted session stays valid
	HoldTTL         time.Duration // how long a seat hold stays valid
	SweepInterval   time.Duration // how often expired holds are swept
	PromoteInterval time.Duration // how often waiting holders are promoted
	LockLease       time.Duration // lease duration for scheduler job locks
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present so local development does not require exporting variables.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // best effort; absence of .env is fine

	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    must("DB_USER"),      // database user
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    must("DB_HOST"),      // database host
		DBPort:    must("DB_PORT"),      // database port
		DBName:    must("DB_NAME"),      // database name
		JWTSecret: must("JWT_SECRET"),   // secret used to verify JWTs

		AdmissionCap:    envInt("ADMISSION_CAP", 100),
		AdmissionTTL:    envDur("ADMISSION_TTL", 15*time.Minute),
		HoldTTL:         envDur("HOLD_TTL", 5*time.Minute),
		SweepInterval:   envDur("SWEEP_INTERVAL", 30*time.Second),
		PromoteInterval: envDur("PROMOTE_INTERVAL", 10*time.Second),
		LockLease:       envDur("LOCK_LEASE", time.Minute),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
// The tunables above go through envInt/envDur (see ratelimit.go) and fall
// back to their defaults instead.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
