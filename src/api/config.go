package api

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL       string        `envconfig:"MARKET_API_URL" default:"http://localhost:5000"`
	Timeout       time.Duration `envconfig:"MARKET_API_TIMEOUT" default:"15s"`
	RetryAttempts int           `envconfig:"MARKET_API_RETRY_ATTEMPTS" default:"5"`
	RetryWait     time.Duration `envconfig:"MARKET_API_RETRY_WAIT" default:"500ms"`
	RetryMaxWait  time.Duration `envconfig:"MARKET_API_RETRY_MAX_WAIT" default:"8s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
