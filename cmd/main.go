package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradedesk/src/api"
	"tradedesk/src/botperf"
	"tradedesk/src/database"
	"tradedesk/src/model"
	"tradedesk/src/repository"
	"tradedesk/src/trade"
	"tradedesk/src/wallet"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Tradedesk CMD"
	app.Usage = "The tradedesk command line interface"

	app.Commands = []cli.Command{
		tradeCMD,
		depositCMD,
		withdrawCMD,
		addLotCMD,
		clearPortfolioCMD,
		reportCMD,
		botStatusCMD,
		botUpdateCMD,
		botResetCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	tradeCMD = cli.Command{
		Name:      "trade",
		Usage:     "submit a validated buy or sell",
		Action:    tradeAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "symbol", Usage: "stock symbol"},
			cli.StringFlag{Name: "action", Usage: "buy or sell"},
			cli.IntFlag{Name: "quantity", Usage: "number of shares"},
			cli.Float64Flag{Name: "price", Usage: "price seen at request time"},
		},
		Description: `Validate and submit a trade against the market server`,
	}
	depositCMD = cli.Command{
		Name:   "deposit",
		Usage:  "deposit funds into the trading wallet",
		Action: depositAction,
		Flags: []cli.Flag{
			cli.Float64Flag{Name: "amount", Usage: "amount to deposit"},
		},
	}
	withdrawCMD = cli.Command{
		Name:   "withdraw",
		Usage:  "withdraw funds from the trading wallet",
		Action: withdrawAction,
		Flags: []cli.Flag{
			cli.Float64Flag{Name: "amount", Usage: "amount to withdraw"},
		},
	}
	addLotCMD = cli.Command{
		Name:   "add-lot",
		Usage:  "record a purchase lot directly in the portfolio",
		Action: addLotAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "symbol", Usage: "stock symbol"},
			cli.IntFlag{Name: "quantity", Usage: "number of shares"},
			cli.Float64Flag{Name: "price", Usage: "buy price per share"},
		},
	}
	clearPortfolioCMD = cli.Command{
		Name:   "clear-portfolio",
		Usage:  "remove every lot from the portfolio",
		Action: clearPortfolioAction,
	}
	reportCMD = cli.Command{
		Name:        "report",
		Usage:       "print the trading bot's performance report",
		Action:      reportAction,
		Description: `Reconstruct bot round trips from the transaction log and print the statistics`,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "offline", Usage: "use the locally cached transaction log instead of the server"},
		},
	}
	botStatusCMD = cli.Command{
		Name:   "bot-status",
		Usage:  "show the trading bot's current settings",
		Action: botStatusAction,
	}
	botUpdateCMD = cli.Command{
		Name:   "bot-update",
		Usage:  "update the trading bot's settings",
		Action: botUpdateAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "active", Usage: "enable the bot"},
			cli.Float64Flag{Name: "max-investment", Usage: "max investment per trade"},
			cli.Float64Flag{Name: "profit-target", Usage: "profit target percentage"},
			cli.Float64Flag{Name: "stop-loss", Usage: "stop loss percentage"},
			cli.IntFlag{Name: "max-trades", Usage: "max trades per day"},
			cli.IntFlag{Name: "max-positions", Usage: "max open positions"},
		},
	}
	botResetCMD = cli.Command{
		Name:   "bot-reset",
		Usage:  "clear the trading bot's performance history",
		Action: botResetAction,
	}
)

func newWallet(client *api.Client) *wallet.Wallet {
	return wallet.New(client, logrus.WithField("cmd", "wallet"))
}

func tradeAction(c *cli.Context) error {
	logrus.Info("Starting trade CMD")

	client := api.NewClient(api.GetConfig())
	walletState := newWallet(client)

	ctx := context.Background()
	if err := walletState.Refresh(ctx); err != nil {
		logrus.WithError(err).Error("Failed to fetch wallet balance")
		return err
	}

	executor := trade.NewExecutor(client, walletState, logrus.WithField("cmd", "trade"))
	result, err := executor.Execute(ctx, trade.Request{
		Symbol:   c.String("symbol"),
		Action:   c.String("action"),
		Quantity: c.Int("quantity"),
		Price:    decimal.NewFromFloat(c.Float64("price")),
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	fmt.Printf("wallet balance: %s\n", result.NewWalletBalance)
	return nil
}

func depositAction(c *cli.Context) error {
	client := api.NewClient(api.GetConfig())
	walletState := newWallet(client)

	result, err := walletState.Deposit(context.Background(), decimal.NewFromFloat(c.Float64("amount")), "Manual deposit")
	if err != nil {
		return err
	}

	fmt.Printf("%s (balance: %s)\n", result.Message, result.NewBalance)
	return nil
}

func withdrawAction(c *cli.Context) error {
	client := api.NewClient(api.GetConfig())
	walletState := newWallet(client)

	ctx := context.Background()
	if err := walletState.Refresh(ctx); err != nil {
		logrus.WithError(err).Error("Failed to fetch wallet balance")
		return err
	}

	result, err := walletState.Withdraw(ctx, decimal.NewFromFloat(c.Float64("amount")), "Manual withdrawal")
	if err != nil {
		return err
	}

	fmt.Printf("%s (balance: %s)\n", result.Message, result.NewBalance)
	return nil
}

func addLotAction(c *cli.Context) error {
	client := api.NewClient(api.GetConfig())

	symbol := c.String("symbol")
	quantity := c.Int("quantity")
	price := decimal.NewFromFloat(c.Float64("price"))

	if symbol == "" {
		return model.NewValidationError("symbol", "must not be empty")
	}
	if quantity <= 0 {
		return model.NewValidationError("quantity", "must be greater than zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return model.NewValidationError("price", "must be greater than zero")
	}

	if err := client.AddLot(context.Background(), symbol, quantity, price); err != nil {
		logrus.WithError(err).Error("Failed to add lot")
		return err
	}

	fmt.Printf("added %d %s @ %s\n", quantity, symbol, price)
	return nil
}

func clearPortfolioAction(_ *cli.Context) error {
	client := api.NewClient(api.GetConfig())

	if err := client.ClearPortfolio(context.Background()); err != nil {
		logrus.WithError(err).Error("Failed to clear portfolio")
		return err
	}

	fmt.Println("portfolio cleared")
	return nil
}

func reportAction(c *cli.Context) error {
	ctx := context.Background()

	if c.Bool("offline") {
		cache, err := openTransactionCache()
		if err != nil {
			return err
		}
		transactions, err := cache.ListBot(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to read cached transactions")
			return err
		}
		printPerformance(botperf.Analyze(transactions))
		return nil
	}

	client := api.NewClient(api.GetConfig())

	transactions, err := client.GetTransactions(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch transactions")
		return err
	}

	printPerformance(botperf.Analyze(transactions))
	return nil
}

func botStatusAction(_ *cli.Context) error {
	client := api.NewClient(api.GetConfig())
	ctx := context.Background()

	settings, err := client.GetBotSettings(ctx)
	if err != nil {
		// fall back to the cached copy so status still renders offline
		logrus.WithError(err).Warn("Failed to fetch bot settings, trying the local cache")
		cache, cacheErr := openBotSettingsCache()
		if cacheErr != nil {
			return err
		}
		cached, cacheErr := cache.Load(ctx)
		if cacheErr != nil || cached == nil {
			return err
		}
		fmt.Println("(cached copy, server unreachable)")
		printBotSettings(*cached)
		return nil
	}

	if cache, cacheErr := openBotSettingsCache(); cacheErr == nil {
		if saveErr := cache.Save(ctx, *settings); saveErr != nil {
			logrus.WithError(saveErr).Warn("Failed to cache bot settings")
		}
	}

	printBotSettings(*settings)
	return nil
}

func botUpdateAction(c *cli.Context) error {
	settings := model.BotSettings{
		MaxInvestmentPerTrade: decimal.NewFromFloat(c.Float64("max-investment")),
		ProfitTargetPct:       decimal.NewFromFloat(c.Float64("profit-target")),
		StopLossPct:           decimal.NewFromFloat(c.Float64("stop-loss")),
		MaxTradesPerDay:       c.Int("max-trades"),
		MaxOpenPositions:      c.Int("max-positions"),
	}
	if c.Bool("active") {
		settings.IsActive = 1
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	client := api.NewClient(api.GetConfig())
	ctx := context.Background()

	updated, err := client.UpdateBotSettings(ctx, settings)
	if err != nil {
		logrus.WithError(err).Error("Failed to update bot settings")
		return err
	}

	if cache, cacheErr := openBotSettingsCache(); cacheErr == nil {
		if saveErr := cache.Save(ctx, *updated); saveErr != nil {
			logrus.WithError(saveErr).Warn("Failed to cache bot settings")
		}
	}

	fmt.Println("bot settings updated")
	printBotSettings(*updated)
	return nil
}

func botResetAction(_ *cli.Context) error {
	client := api.NewClient(api.GetConfig())

	if err := client.ResetBotPerformance(context.Background()); err != nil {
		logrus.WithError(err).Error("Failed to reset bot performance")
		return err
	}

	fmt.Println("bot performance history cleared")
	return nil
}

func openTransactionCache() (*repository.TransactionRepository, error) {
	if err := database.InitCacheDB(); err != nil {
		return nil, err
	}
	if database.CacheDB == nil {
		return nil, fmt.Errorf("local cache is disabled")
	}
	return repository.NewTransactionRepository(), nil
}

func openBotSettingsCache() (*repository.BotSettingsRepository, error) {
	if err := database.InitCacheDB(); err != nil {
		return nil, err
	}
	if database.CacheDB == nil {
		return nil, fmt.Errorf("local cache is disabled")
	}
	return repository.NewBotSettingsRepository(), nil
}

func printBotSettings(settings model.BotSettings) {
	state := "inactive"
	if settings.Active() {
		state = "active"
	}
	fmt.Printf("state:               %s\n", state)
	fmt.Printf("max investment:      %s\n", settings.MaxInvestmentPerTrade.StringFixed(2))
	fmt.Printf("profit target:       %s%%\n", settings.ProfitTargetPct.StringFixed(1))
	fmt.Printf("stop loss:           %s%%\n", settings.StopLossPct.StringFixed(1))
	fmt.Printf("max trades per day:  %d\n", settings.MaxTradesPerDay)
	fmt.Printf("max open positions:  %d\n", settings.MaxOpenPositions)
}

func printPerformance(perf botperf.Performance) {
	fmt.Printf("total trades:     %d\n", perf.TotalTrades)
	fmt.Printf("profitable:       %d\n", perf.ProfitableTrades)
	fmt.Printf("loss-making:      %d\n", perf.LossMakingTrades)
	fmt.Printf("win rate:         %s%%\n", perf.WinRate.StringFixed(1))
	fmt.Printf("total profit:     %s\n", perf.TotalProfit.StringFixed(2))
	fmt.Printf("total loss:       %s\n", perf.TotalLoss.StringFixed(2))
	fmt.Printf("net P&L:          %s\n", perf.NetProfitLoss.StringFixed(2))
	fmt.Printf("total investment: %s\n", perf.TotalInvestment.StringFixed(2))
	fmt.Printf("profit per share: %s\n", perf.ProfitPerShare.StringFixed(2))
}
