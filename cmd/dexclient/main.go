// ====================================
// File: cmd/dexclient/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/amm"
	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/transaction"
	"github.com/rwadex/dexclient/internal/config"
	"github.com/rwadex/dexclient/internal/hook"
	"github.com/rwadex/dexclient/internal/logger"
	"github.com/rwadex/dexclient/internal/mint"
	"github.com/rwadex/dexclient/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback, _ := zap.NewDevelopment()
		fallback.Fatal("Failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fallback, _ := zap.NewDevelopment()
		fallback.Fatal("Failed to initialize logger", zap.Error(err))
		os.Exit(1)
	}
	defer log.Sync()

	zlog := log.WithComponent("dexclient")
	zlog.Info("Starting dex client")

	app, err := buildApp(cfg, log)
	if err != nil {
		zlog.Fatal("Failed to initialize", zap.Error(err))
	}

	if err := app.report(ctx); err != nil {
		zlog.Fatal("Startup check failed", zap.Error(err))
	}

	<-ctx.Done()
	zlog.Info("Shutting down")
}

// app holds the wired pipelines. Construction is explicit so tests can
// build the same graph against fakes.
type app struct {
	wallet *wallet.Wallet
	client *chain.Client
	amm    *amm.Service
	gate   *hook.Gate
	mints  *mint.Pipeline
	log    *zap.Logger
}

func buildApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	w, err := wallet.New(cfg.PayerKey)
	if err != nil {
		return nil, err
	}

	commitment := rpc.CommitmentType(cfg.Commitment)
	client := chain.NewClient(cfg.RPCURL, commitment, log.WithComponent("chain"))

	manager := transaction.NewManager(client, log.WithComponent("transaction"), transaction.Config{
		ConfirmationTime: cfg.ConfirmationTime,
		SkipPreflight:    cfg.SkipPreflight,
		Commitment:       commitment,
		MinConfirmations: 1,
		PriorityFee:      cfg.PriorityFeeMicroLp,
	})

	hookProgram := &hook.Program{ID: cfg.MustHookProgramID()}
	resolver := hook.NewResolver(client, hookProgram, log.WithComponent("hook"))
	gate := hook.NewGate(client, manager, hookProgram, resolver, hook.KycDefaults{
		Country: cfg.DefaultKycCountry,
		State:   cfg.DefaultKycState,
		City:    cfg.DefaultKycCity,
	}, log.WithComponent("compliance"))

	service := amm.NewService(client, manager, resolver, gate, w, cfg.MustAmmProgramID(), log.WithComponent("amm"))
	pipeline := mint.NewPipeline(client, manager, w, resolver, log.WithComponent("mint"))

	return &app{
		wallet: w,
		client: client,
		amm:    service,
		gate:   gate,
		mints:  pipeline,
		log:    log.WithComponent("dexclient"),
	}, nil
}

// report verifies connectivity and logs the wallet's compliance state.
func (a *app) report(ctx context.Context) error {
	if _, err := a.client.GetRecentBlockhash(ctx); err != nil {
		return err
	}

	status, err := a.gate.GetStatus(ctx, a.wallet.PublicKey)
	if err != nil {
		return err
	}
	a.log.Info("Ready",
		zap.String("wallet", a.wallet.PublicKey.String()),
		zap.String("pool_authority", a.amm.PoolAuthority().String()),
		zap.Bool("kyc_exists", status.Exists),
		zap.Uint8("kyc_level", status.Level),
		zap.Bool("can_trade_rwa", status.CanTradeRwa))
	return nil
}
