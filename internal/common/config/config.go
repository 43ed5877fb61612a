package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug   bool   `env:"DEBUG" envDefault:"false"`
	Version string `env:"VERSION" envDefault:"dev"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"*"`
	}

	Redis struct {
		// Empty address selects the file snapshot repository.
		Addr             string `env:"REDIS_ADDR" envDefault:""`
		Password         string `env:"REDIS_PASSWORD" envDefault:""`
		DB               int    `env:"REDIS_DB" envDefault:"0"`
		MasterName       string `env:"REDIS_MASTER_NAME" envDefault:""`
		StateKey         string `env:"REDIS_STATE_KEY" envDefault:"dicers:state"`
		AttendanceStream string `env:"REDIS_ATTENDANCE_STREAM" envDefault:"dicers:attendance"`
	}

	Storage struct {
		StateFile   string `env:"STATE_FILE" envDefault:"state.json"`
		InsultsFile string `env:"INSULTS_FILE" envDefault:"insults"`
	}

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN,required,notEmpty"`
		Debug       bool          `env:"TELEGRAM_DEBUG" envDefault:"false"`
		OwnerIDs    []int64       `env:"OWNER_IDS" envSeparator:","`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Schedule struct {
		Timezone    string `env:"TIMEZONE" envDefault:"Europe/Berlin"`
		OpenAttend  string `env:"SCHEDULE_OPEN_ATTEND" envDefault:"14:00"`
		OpenDice    string `env:"SCHEDULE_OPEN_DICE" envDefault:"20:30"`
		EarlyReset  string `env:"SCHEDULE_EARLY_RESET" envDefault:"13:00"`
		WeeklyReset string `env:"SCHEDULE_WEEKLY_RESET" envDefault:"00:00"`
	}

	Event struct {
		AbsenceCheckDelay time.Duration `env:"ABSENCE_CHECK_DELAY" envDefault:"15m"`
		CurfewHour        int           `env:"CURFEW_HOUR" envDefault:"21"`
		EasterEggPair     []string      `env:"EASTER_EGG_PAIR" envSeparator:"," envDefault:"nadine,tashina"`
		EasterEggSuffix   string        `env:"EASTER_EGG_SUFFIX" envDefault:"#dieKurzenSindDabei"`
		AdminCacheTTL     time.Duration `env:"ADMIN_CACHE_TTL" envDefault:"5m"`
	}

	Spam struct {
		CheckTimeframe            time.Duration `env:"SPAM_CHECK_TIMEFRAME" envDefault:"60s"`
		DifferentMessageLimit     int           `env:"SPAM_DIFFERENT_LIMIT" envDefault:"15"`
		DifferentMessageTimeframe time.Duration `env:"SPAM_DIFFERENT_TIMEFRAME" envDefault:"2h"`
		ConsecutiveMessageLimit   int           `env:"SPAM_CONSECUTIVE_LIMIT" envDefault:"8"`
		ConsecutiveTimeframe      time.Duration `env:"SPAM_CONSECUTIVE_TIMEFRAME" envDefault:"5m"`
		SameMessageLimit          int           `env:"SPAM_SAME_LIMIT" envDefault:"3"`
		SameMessageTimeframe      time.Duration `env:"SPAM_SAME_TIMEFRAME" envDefault:"2h"`
		HistoryLimit              int           `env:"MESSAGE_HISTORY_LIMIT" envDefault:"100"`
	}
}

// Load reads .env (if present) and the process environment into Config.
func Load() (*Config, error) {
	// A missing .env is fine, production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Event.CurfewHour < 0 || cfg.Event.CurfewHour > 23 {
		return nil, fmt.Errorf("invalid CURFEW_HOUR: %d", cfg.Event.CurfewHour)
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Location returns the configured schedule time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsOwner reports whether userID is one of the configured bot owners.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Telegram.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
