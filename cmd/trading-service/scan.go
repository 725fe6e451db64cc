package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/logger"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Runs one momentum scan against live market data and prints the movers",
	Run:   runScan,
}

func runScan(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	market := repository.NewBinanceMarketRepository(cfg.Market, appLogger)
	symbols := cfg.Trading.Symbols
	if len(symbols) == 0 {
		symbols, err = market.ListSymbols(ctx, cfg.Market.QuoteAsset, cfg.Trading.MaxSymbols)
		if err != nil {
			appLogger.Fatal("Failed to list symbols", logger.ErrorField(err))
		}
	}

	result, err := service.NewMomentumDetector(cfg.Trading, appLogger, market).Scan(ctx, symbols)
	if err != nil {
		appLogger.Fatal("Momentum scan failed", logger.ErrorField(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tDIRECTION\t1H %\t4H %\tPRICE")
	for _, movers := range [][]entity.Mover{result.Gainers, result.Losers} {
		for _, m := range movers {
			fmt.Fprintf(w, "%s\t%s\t%+.2f\t%+.2f\t%g\n", m.Symbol, m.Direction, m.Change1h, m.Change4h, m.CurrentPrice)
		}
	}
	_ = w.Flush()
	fmt.Printf("\nscanned %d, movers %d, failures %d\n", result.Scanned, len(result.Gainers)+len(result.Losers), len(result.Failures))
}
