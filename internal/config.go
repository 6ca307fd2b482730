package internal

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sratabix/gifselector/internal/api"
	"github.com/sratabix/gifselector/internal/database"
	"github.com/sratabix/gifselector/internal/importer"
	"github.com/sratabix/gifselector/internal/watch"
)

// GifselectorConfig is the struct used to contain the various user
// config supplied by file or environment.
type GifselectorConfig struct {
	Services    ServiceConfig           `yaml:"docker_services"`
	Database    database.DatabaseConfig `yaml:"database" env-required:"true"`
	Importer    importer.Config         `yaml:"importer" env-required:"true"`
	Watch       watch.Config            `yaml:"watch"`
	API         api.RestConfig          `yaml:"api" env-required:"true"`
	DefaultUser DefaultUserConfig       `yaml:"default_user"`
}

// ServiceConfig is used to enable/disable the internal initialisation
// of supporting services. By default the embedded PostgreSQL container
// is enabled so a fresh install works without an external database.
type ServiceConfig struct {
	EnablePostgres bool `yaml:"enable_postgres" env:"SERVICE_ENABLE_POSTGRES" env-default:"true"`
}

// DefaultUserConfig describes the seed account created on first run
// when the users table is empty.
type DefaultUserConfig struct {
	Username string `yaml:"username" env:"DEFAULT_USER" env-default:"admin"`
	Password string `yaml:"password" env:"DEFAULT_PASSWORD" env-default:"admin"`
}

// LoadFromFile loads a YAML configuration file in to a
// GifselectorConfig, with environment variables taking precedence.
func (config *GifselectorConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return nil
}

// DefaultConfigPath returns the conventional location of the config
// file inside the user's home directory.
func DefaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(fmt.Sprintf("FAILURE to derive user home dir: %s", err))
	}

	return filepath.Join(home, ".gifselector", "config.yaml")
}
