package environment

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Production defines the prod environment
const Production = "prod"

// Staging defines the staging environment
const Staging = "staging"

// Dev defines the dev environment
const Dev = "dev"

// Environment holds the process configuration
type Environment struct {
	Environment   string `env:"APP_ENV" envDefault:"dev"`
	Cors          string `env:"CORS" envDefault:"*"`
	Port          string `env:"PORT" envDefault:"80"`
	Database      string `env:"DATABASE" envDefault:"opsboard"`
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"mongodb://localhost:27017"`
	Redis         string `env:"REDIS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	TimeZone      string `env:"TIMEZONE" envDefault:"UTC"`
	Logging       string `env:"LOGGING" envDefault:"stdout"`
	GCPProjectID  string `env:"GCP_PROJECT_ID"`
	Firebase      string `env:"FIREBASE"`
}

// Global is the configuration loaded by Initialize
var Global Environment

// Initialize reads an optional .env file into the process environment and parses it into Global
func Initialize() error {
	if _, err := os.Stat(".env"); err == nil {
		err = godotenv.Load(".env")
		if err != nil {
			return errors.Wrap(err, "could not load .env")
		}
	}

	parsed, err := Parse()
	if err != nil {
		return err
	}

	Global = parsed
	return nil
}

// Parse parses the process environment into an Environment
func Parse() (Environment, error) {
	parsed := Environment{}
	err := env.Parse(&parsed)
	if err != nil {
		return parsed, errors.Wrap(err, "could not parse environment")
	}

	return parsed, nil
}

// IsProduction reports whether the app runs in production
func (e Environment) IsProduction() bool {
	return e.Environment == Production
}
