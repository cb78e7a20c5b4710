package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	// TokenSecret signs the guest tokens that carry a visitor's
	// participant id between the token endpoint and the websocket dial.
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	// SettleDelay is the pause between an arrival notification and the
	// waiting pool read, letting the pool stabilize before a pairing
	// decision.
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"1500ms"`

	// RealtimeDriver selects the realtime substrate: "postgres" or
	// "memory".
	RealtimeDriver string `env:"REALTIME_DRIVER" envDefault:"postgres"`

	Postgres PostgresConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"randomchat"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &c, nil
}
