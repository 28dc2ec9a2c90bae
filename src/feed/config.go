package feed

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL               string        `envconfig:"MARKET_FEED_URL" default:"ws://localhost:5000/stream"`
	HandshakeTimeout  time.Duration `envconfig:"MARKET_FEED_HANDSHAKE_TIMEOUT" default:"15s"`
	ReconnectAttempts int           `envconfig:"MARKET_FEED_RECONNECT_ATTEMPTS" default:"5"`
	ReconnectDelay    time.Duration `envconfig:"MARKET_FEED_RECONNECT_DELAY" default:"1s"`
	ResyncInterval    time.Duration `envconfig:"MARKET_FEED_RESYNC_INTERVAL" default:"30s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
