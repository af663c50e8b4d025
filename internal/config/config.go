package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"leaguebot/internal/reminder"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Discord struct {
		Token   string `yaml:"token"`
		GuildId string `yaml:"guild_id"`
	} `yaml:"discord"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Reminder struct {
		Window               string `yaml:"window"`
		Interval             string `yaml:"interval"`
		TickTimeout          string `yaml:"tick_timeout"`
		HousekeepingInterval string `yaml:"housekeeping_interval"`
		Retention            string `yaml:"retention"`
	} `yaml:"reminder"`
	RateLimit struct {
		Requests int    `yaml:"requests"`
		Period   string `yaml:"period"`
	} `yaml:"ratelimit"`
	League struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"league"`
	Web struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"web"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Filled by Validate
	window               time.Duration
	interval             time.Duration
	tickTimeout          time.Duration
	housekeepingInterval time.Duration
	retention            time.Duration
	ratePeriod           time.Duration
	location             *time.Location
	level                zerolog.Level
}

func Default() *Config {
	cfg := &Config{}
	cfg.Database.Path = "./football_bot.db"
	cfg.Reminder.Window = "5m"
	cfg.Reminder.Interval = "1m"
	cfg.Reminder.TickTimeout = "30s"
	cfg.Reminder.HousekeepingInterval = "24h"
	cfg.Reminder.Retention = "720h"
	cfg.RateLimit.Requests = 5
	cfg.RateLimit.Period = "5s"
	cfg.League.Timezone = "UTC"
	cfg.Web.Enabled = true
	cfg.Web.Port = 5000
	cfg.Log.Level = "info"
	return cfg
}

// Build the configuration from the defaults, the YAML file at path
// (or CONFIG_FILE when path is empty) and the environment, in that order.
// A .env file in the working directory is loaded into the environment first
func Load(path string) (*Config, error) {

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("Loaded configuration file")
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", reminder.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: failed to parse config file %s: %w", reminder.ErrInvalidConfig, path, err)
	}
	return nil
}

func (cfg *Config) loadEnv() error {
	var errs []error

	setString := func(key string, target *string) {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}
	setInt := func(key string, target *int) {
		if value := os.Getenv(key); value != "" {
			intValue, err := strconv.Atoi(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, value))
				return
			}
			*target = intValue
		}
	}
	setBool := func(key string, target *bool) {
		if value := os.Getenv(key); value != "" {
			boolValue, err := strconv.ParseBool(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, value))
				return
			}
			*target = boolValue
		}
	}

	setString("DISCORD_TOKEN", &cfg.Discord.Token)
	setString("DISCORD_GUILD_ID", &cfg.Discord.GuildId)
	setString("DB_PATH", &cfg.Database.Path)
	setString("REMINDER_WINDOW", &cfg.Reminder.Window)
	setString("REMINDER_INTERVAL", &cfg.Reminder.Interval)
	setString("REMINDER_TICK_TIMEOUT", &cfg.Reminder.TickTimeout)
	setString("HOUSEKEEPING_INTERVAL", &cfg.Reminder.HousekeepingInterval)
	setString("MATCH_RETENTION", &cfg.Reminder.Retention)
	setInt("DM_RATE_REQUESTS", &cfg.RateLimit.Requests)
	setString("DM_RATE_PERIOD", &cfg.RateLimit.Period)
	setString("TIMEZONE", &cfg.League.Timezone)
	setBool("WEB_ENABLED", &cfg.Web.Enabled)
	setInt("WEB_PORT", &cfg.Web.Port)
	setString("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(errs...)
}

// Check every setting and parse durations, timezone and log level.
// All problems are reported together, wrapping reminder.ErrInvalidConfig
func (cfg *Config) Validate() error {
	var errs []error

	positive := func(name string, value string) time.Duration {
		duration, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", name, value))
			return 0
		}
		if duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, duration))
		}
		return duration
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	cfg.window = positive("reminder window", cfg.Reminder.Window)
	cfg.interval = positive("reminder interval", cfg.Reminder.Interval)
	cfg.tickTimeout = positive("reminder tick timeout", cfg.Reminder.TickTimeout)
	cfg.housekeepingInterval = positive("housekeeping interval", cfg.Reminder.HousekeepingInterval)
	cfg.retention = positive("match retention", cfg.Reminder.Retention)
	cfg.ratePeriod = positive("direct message rate period", cfg.RateLimit.Period)
	if cfg.RateLimit.Requests <= 0 {
		errs = append(errs, fmt.Errorf("direct message rate requests must be positive, got %d", cfg.RateLimit.Requests))
	}

	location, err := time.LoadLocation(cfg.League.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q", cfg.League.Timezone))
	}
	cfg.location = location

	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web port %d is out of range", cfg.Web.Port))
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		errs = append(errs, fmt.Errorf("unknown log level %q", cfg.Log.Level))
	}
	cfg.level = level

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", reminder.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (cfg *Config) Window() time.Duration {
	return cfg.window
}

func (cfg *Config) Interval() time.Duration {
	return cfg.interval
}

func (cfg *Config) TickTimeout() time.Duration {
	return cfg.tickTimeout
}

func (cfg *Config) HousekeepingInterval() time.Duration {
	return cfg.housekeepingInterval
}

func (cfg *Config) Retention() time.Duration {
	return cfg.retention
}

func (cfg *Config) RatePeriod() time.Duration {
	return cfg.ratePeriod
}

// Where dates typed in commands are read
func (cfg *Config) Location() *time.Location {
	return cfg.location
}

func (cfg *Config) LogLevel() zerolog.Level {
	return cfg.level
}
