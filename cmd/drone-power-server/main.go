package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/drone-power/internal/analysis"
	"github.com/iwvelando/drone-power/internal/config"
	"github.com/iwvelando/drone-power/internal/logging"
	"github.com/iwvelando/drone-power/internal/server"
	"github.com/iwvelando/drone-power/internal/store"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	addrFlag := flag.String("addr", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	storeDSN := flag.String("store", "", "results store DSN override (SQLite path or postgres:// URL)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *addrFlag != "" {
		conf.Server.Address = *addrFlag
	}
	if *storeDSN != "" {
		conf.Store.DSN = *storeDSN
	}
	for _, warning := range conf.Normalize() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}

	maxUpload, err := server.UploadSizeBytes(conf.Server)
	if err != nil {
		logger.Fatal("invalid server.maxUploadSize",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resultStore *store.Store
	if conf.Store.DSN != "" {
		resultStore, err = store.Open(ctx, conf.Store.DSN)
		if err != nil {
			logger.Fatal("failed to open results store",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		defer func() {
			_ = resultStore.Close()
		}()
	}

	handler, err := server.NewHandler(logger, server.Options{
		Settings:      analysis.SettingsFromConfig(*conf),
		MaxUploadSize: maxUpload,
		Version:       version,
		Store:         resultStore,
	})
	if err != nil {
		logger.Fatal("failed to build handler",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := server.Serve(ctx, logger, conf.Server.Address, handler); err != nil {
		logger.Error("server stopped with error",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return
	}
	logger.Info("server stopped", zap.String("op", "main"))
}
