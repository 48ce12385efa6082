package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	TreasuryInitialSC  int64 `env:"TREASURY_INITIAL_SC" envDefault:"1000000"`
	TreasuryDailyCapSC int64 `env:"TREASURY_DAILY_CAP_SC" envDefault:"100000"`
	BotWalletCapSC     int64 `env:"BOT_WALLET_CAP_SC" envDefault:"5000"`

	ExpirationRetentionDays int `env:"EXPIRATION_RETENTION_DAYS" envDefault:"90"`

	RefundInterval     time.Duration `env:"REFUND_INTERVAL" envDefault:"24h"`
	ExpirationInterval time.Duration `env:"EXPIRATION_INTERVAL" envDefault:"24h"`
	CapResetInterval   time.Duration `env:"CAP_RESET_INTERVAL" envDefault:"1h"`
	JobItemTimeout     time.Duration `env:"JOB_ITEM_TIMEOUT" envDefault:"10s"`
	JobItemDelay       time.Duration `env:"JOB_ITEM_DELAY" envDefault:"50ms"`
	JobBatchLimit      int           `env:"JOB_BATCH_LIMIT" envDefault:"500"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
