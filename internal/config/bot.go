package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	ServerURL   string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	BotID       string        `env:"BOT_ID" envDefault:"bot"`
	AdminAPIKey string        `env:"ADMIN_API_KEY" envDefault:""`
	CycleEvery  time.Duration `env:"CYCLE_EVERY" envDefault:"30s"`
	SpendSC     int64         `env:"SPEND_SC" envDefault:"5"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
