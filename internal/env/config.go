package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Hostname    string `env:"REDSAIL_HOSTNAME,default=127.0.0.1"`
	Port        int    `env:"REDSAIL_PORT,default=6379"`
	HistoryFile string `env:"REDSAIL_HISTORY,default=.redsail_history"`
	Debug       bool   `env:"REDSAIL_DEBUG"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
