// Command lendo runs a one-shot lending workflow against an Aave v2 pool:
// it wraps native funds, deposits them as collateral, borrows a safe amount
// of the debt asset sized from the oracle price, and repays half of the loan.
//
// Usage:
//
//	lendo --config config.yaml
//	lendo setup            (interactive configuration wizard)
//	lendo                  (uses CLI arguments)
//
// The signing key is read from the environment variable named by the
// 'key_env' config param (LENDO_PRIVATE_KEY by default).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/lendo/config"
	"github.com/vadiminshakov/lendo/dashboard"
	"github.com/vadiminshakov/lendo/internal"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"github.com/vadiminshakov/lendo/internal/setup"
	"github.com/vadiminshakov/lendo/internal/storage/runjournal"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	privateKey := os.Getenv(conf.KeyEnv)
	if privateKey == "" {
		logger.Fatal("signing key environment variable must be set", zap.String("env", conf.KeyEnv))
	}

	account, err := gateway.NewPrivateKeyAccount(privateKey)
	if err != nil {
		logger.Fatal("failed to load signing account", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gw, err := gateway.Dial(ctx, conf.RPCURL, account, logger)
	if err != nil {
		logger.Fatal("failed to connect to node", zap.Error(err))
	}

	journal, err := runjournal.NewWALStore(conf.JournalDir)
	if err != nil {
		logger.Fatal("failed to open run journal", zap.Error(err))
	}
	defer journal.Close()

	if conf.DashboardAddr != "" {
		srv := dashboard.NewServer(conf.DashboardAddr, journal)
		go func() {
			var err error
			if len(conf.DashboardTLSDomains) > 0 {
				err = srv.StartWithAutoTLS(ctx, conf.DashboardTLSDomains, conf.DashboardCertCache)
			} else {
				err = srv.Start(ctx)
			}
			if err != nil {
				logger.Error("dashboard server failed", zap.Error(err))
			}
		}()
		logger.Info("dashboard started",
			zap.String("addr", conf.DashboardAddr),
			zap.Strings("tls_domains", conf.DashboardTLSDomains))
	}

	workflow := internal.NewWorkflow(conf, gw, journal, logger)
	if err := workflow.Run(ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}
