package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite | pgx
	DBDSN    string `envconfig:"DB_DSN" default:"seatwatch.db"`
	LogFile  string `envconfig:"LOG_FILE"`

	FeedURL     string        `envconfig:"FEED_URL" default:"https://usis-cdn.eniamza.com/connect.json"`
	FeedPath    string        `envconfig:"FEED_PATH"`
	FeedTimeout time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`

	// Live reads reuse one feed snapshot for this long; 0 fetches every time.
	RealtimeMaxAge time.Duration `envconfig:"REALTIME_MAX_AGE" default:"10s"`

	// Zero disables the periodic loop; passes can still be triggered over HTTP.
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0"`
	NotifyInterval time.Duration `envconfig:"NOTIFY_INTERVAL" default:"0"`

	DispatchGroupSize  int           `envconfig:"DISPATCH_GROUP_SIZE" default:"10"`
	DispatchGroupDelay time.Duration `envconfig:"DISPATCH_GROUP_DELAY" default:"1s"`

	SMTPHost      string        `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort      int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername  string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword  string        `envconfig:"SMTP_PASSWORD"`
	FromEmail     string        `envconfig:"FROM_EMAIL"`
	SMTPMaxPerSec float64       `envconfig:"SMTP_MAX_PER_SEC" default:"5"`
	SMTPTimeout   time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`

	AdminKeyHash string `envconfig:"ADMIN_KEY_HASH"`
	AppURL       string `envconfig:"APP_URL" default:"https://seatz.vercel.app"`
}

// SMTPEnabled reports whether real mail delivery is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUsername
	}
	if cfg.DispatchGroupSize <= 0 {
		cfg.DispatchGroupSize = 10
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s FEED_URL=%s%s SYNC_INTERVAL=%s NOTIFY_INTERVAL=%s SMTP=%s smtp_enabled=%t admin_api=%t",
		cfg.Port, cfg.DBDriver, mask(cfg.DBDSN, cfg.DBDriver == "pgx"), cfg.LogFile, cfg.FeedURL, cfg.FeedPath,
		cfg.SyncInterval, cfg.NotifyInterval, cfg.SMTPHost, cfg.SMTPEnabled(), cfg.AdminKeyHash != "")
	return cfg, nil
}

// Postgres DSNs carry credentials.
func mask(s string, secret bool) string {
	if !secret || s == "" {
		return s
	}
	return "***"
}
