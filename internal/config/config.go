package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	StandingsFromMatches = "matches" // rebuild the table from league-phase results
	StandingsImported    = "import"  // keep the table loaded from the dataset
)

// Config is the process configuration, read from config/config.yaml (if
// present) and overridden by environment variables.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Competition CompetitionConfig `mapstructure:"competition"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	SeedFile    string            `mapstructure:"seed_file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite3
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"` // sqlite file when DSN is empty
}

// ConnString returns the DSN to open.
func (d DatabaseConfig) ConnString() string {
	if d.DSN == "" && d.Driver == "sqlite3" {
		return d.Path
	}
	return d.DSN
}

type CompetitionConfig struct {
	ID                   string `mapstructure:"id"`
	HistoricalYears      int    `mapstructure:"historical_years"`
	KnockoutRecentWindow int    `mapstructure:"knockout_recent_window"`
	StandingsSource      string `mapstructure:"standings_source"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// env binds config keys to their environment variables.
var env = map[string]string{
	"server.addr":                        "SERVER_ADDR",
	"database.driver":                    "DATABASE_DRIVER",
	"database.dsn":                       "DATABASE_DSN",
	"database.path":                      "DB_PATH",
	"competition.id":                     "COMPETITION_ID",
	"competition.historical_years":       "HISTORICAL_YEARS",
	"competition.knockout_recent_window": "KNOCKOUT_RECENT_WINDOW",
	"competition.standings_source":       "STANDINGS_SOURCE",
	"log.level":                          "LOG_LEVEL",
	"log.format":                         "LOG_FORMAT",
	"cors.allowed_origins":               "CORS_ALLOWED_ORIGINS",
	"seed_file":                          "SEED_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "ucl_solkoff.db")
	v.SetDefault("competition.id", "CL")
	v.SetDefault("competition.historical_years", 10)
	v.SetDefault("competition.knockout_recent_window", 100)
	v.SetDefault("competition.standings_source", StandingsImported)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("seed_file", "")
}

// Load reads the configuration. dirs are searched for config.yaml, "./config"
// when none are given. A missing file is not an error; .env is loaded into
// the environment first when present.
func Load(dirs ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(dirs) == 0 {
		dirs = []string{"./config"}
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)
	return &cfg, nil
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: DATABASE_DSN is required for postgres")
		}
	case "sqlite3":
		if c.Database.ConnString() == "" {
			return errors.New("config: DB_PATH or DATABASE_DSN is required for sqlite3")
		}
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Competition.HistoricalYears <= 0 {
		return fmt.Errorf("config: HISTORICAL_YEARS must be positive, got %d", c.Competition.HistoricalYears)
	}
	if c.Competition.KnockoutRecentWindow <= 0 {
		return fmt.Errorf("config: KNOCKOUT_RECENT_WINDOW must be positive, got %d", c.Competition.KnockoutRecentWindow)
	}
	switch c.Competition.StandingsSource {
	case StandingsFromMatches, StandingsImported:
	default:
		return fmt.Errorf("config: unknown STANDINGS_SOURCE %q", c.Competition.StandingsSource)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger from the log settings.
func (l LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(level)
	if l.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
