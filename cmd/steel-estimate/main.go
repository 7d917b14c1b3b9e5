package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/estimate"
	"github.com/iwvelando/steel-estimate/internal/logging"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/output"
	"github.com/iwvelando/steel-estimate/pkg/validation"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	projectLocation := flag.String("project", "", "path to the project request (YAML or JSON)")
	rulesLocation := flag.String("rules", "", "supplier rule table override (.csv or .xlsx)")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	applyBoost := flag.Bool("boost", false, "apply the margin boost when a plan is available")
	appliedID := flag.String("applied", "", "scenario ID to pin first")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		logging.Fatal(fmt.Sprintf("failed to load configuration at %s", *configLocation), err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		logging.Fatal("failed to initialize logger", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	if *rulesLocation != "" {
		if err := conf.OverrideSupplierRulesFile(*rulesLocation); err != nil {
			logger.Fatal(err.Error(),
				zap.String("op", "main"),
			)
		}
	}

	if *projectLocation == "" {
		logger.Fatal("a project file is required",
			zap.String("op", "main"),
		)
	}
	p, err := config.LoadProject(*projectLocation)
	if err != nil {
		logger.Fatal(fmt.Sprintf("failed to load project at %s", *projectLocation),
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	engine, err := estimate.NewEngine(logger, conf, nil)
	if err != nil {
		logger.Fatal("failed to build estimate engine",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	est, err := engine.Estimate(*p, estimate.Options{Boost: *applyBoost, AppliedID: *appliedID})
	if err != nil {
		logger.Fatal("failed to compute estimate",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	for _, warning := range est.Warnings {
		logger.Warn("Estimate warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if err := output.Write(os.Stdout, outputFormat, est); err != nil {
		logger.Fatal("failed to write estimate",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
