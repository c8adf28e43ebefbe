package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"moneymarket/config"
	"moneymarket/native/overseer"
	"moneymarket/observability/logging"
	telemetry "moneymarket/observability/otel"
	"moneymarket/rpc"
	"moneymarket/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./overseer.toml", "path to overseer configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.Setup("overseerd", "").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup("overseerd", cfg.Environment)

	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "overseerd",
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("initialise telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(shutdownCtx)
		}()
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "overseer"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	engine := overseer.NewEngine()
	engine.SetState(overseer.NewStore(db))
	engine.SetPauses(cfg.Pauses)
	if endpoint := cfg.Collaborators.OracleEndpoint; endpoint != "" {
		engine.SetPriceOracle(overseer.NewHTTPPriceOracle(nil, endpoint))
	}
	if endpoint := cfg.Collaborators.MarketEndpoint; endpoint != "" {
		engine.SetDebtLedger(overseer.NewHTTPDebtLedger(nil, endpoint))
	}
	if endpoint := cfg.Collaborators.LiquidationModelEndpoint; endpoint != "" {
		engine.SetLiquidationPricer(overseer.NewHTTPLiquidationPricer(nil, endpoint))
	}

	if cfg.GenesisFile != "" {
		if err := applyGenesis(engine, cfg.GenesisFile); err != nil {
			logger.Error("apply genesis", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(engine, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.ListenAddress)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}
}

// applyGenesis initialises the overseer from the genesis file. A node that
// was already initialised ignores the file so restarts are idempotent.
func applyGenesis(engine *overseer.Engine, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var msg overseer.InitMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	err = engine.InitGenesis(msg)
	if errors.Is(err, overseer.ErrAlreadyInitialized) {
		return nil
	}
	return err
}
