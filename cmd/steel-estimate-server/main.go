package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/logging"
	"github.com/iwvelando/steel-estimate/internal/server"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

var version = "dev"

func main() {
	envErr := godotenv.Load(".env")

	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	estimateConfigLocation := flag.String("config", "", "pricing configuration override")
	addressOverride := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		logging.Fatal(fmt.Sprintf("failed to load server configuration at %s", *serverConfigLocation), err)
		os.Exit(1)
	}
	if *estimateConfigLocation != "" {
		serverConf.EstimateConfig = *estimateConfigLocation
	}
	if *addressOverride != "" {
		serverConf.Address = *addressOverride
	} else if addr := os.Getenv("STEEL_ADDRESS"); addr != "" {
		serverConf.Address = addr
	}

	logger, err := logging.New(serverConf.Logging, *logLevel)
	if err != nil {
		logging.Fatal("failed to initialize logger", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to load .env file",
			zap.String("op", "main"),
			zap.Error(envErr),
		)
	}

	conf, err := serverConf.LoadEstimateConfig()
	if err != nil {
		logger.Fatal("failed to load pricing configuration",
			zap.String("op", "main"),
			zap.String("path", serverConf.EstimateConfig),
			zap.Error(err),
		)
	}
	logWarnings(logger, conf)

	handler := server.NewHandler(logger, conf, server.Options{
		MaxUploadSize: serverConf.UploadSizeBytes(),
		Timeout:       serverConf.Timeout(),
		Version:       version,
	})

	srv := &http.Server{
		Addr:         serverConf.Address,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: serverConf.Timeout() + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting server",
		zap.String("op", "main"),
		zap.String("address", serverConf.Address),
		zap.String("version", version),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func logWarnings(logger *zap.Logger, conf *config.Configuration) {
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
}
