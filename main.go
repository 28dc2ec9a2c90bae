package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradedesk/src/api"
	"tradedesk/src/dashboard"
	"tradedesk/src/database"
	"tradedesk/src/feed"
	"tradedesk/src/repository"
	"tradedesk/src/server"
	"tradedesk/src/wallet"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitCacheDB(); err != nil {
		logger.WithError(err).Fatal("Failed to open local cache")
	}

	client := api.NewClient(api.GetConfig())

	feedManager := feed.NewManager(feed.GetConfig(), client, logger.WithField("component", "feed"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feedManager.Start(ctx)
	defer feedManager.Stop()

	walletState := wallet.New(client, logger.WithField("component", "wallet"))

	var cache dashboard.TransactionCache
	if database.CacheDB != nil {
		cache = repository.NewTransactionRepository()
	}

	session := dashboard.NewSession(
		dashboard.GetConfig(),
		client,
		feedManager,
		feedManager,
		walletState,
		cache,
		logger.WithField("component", "dashboard"),
	)

	go func() {
		if err := session.Run(ctx); err != nil {
			logger.WithError(err).Error("dashboard session stopped")
		}
	}()

	server.StartServer(server.GetConfig().Port, session)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
