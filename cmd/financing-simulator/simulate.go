package main

import (
	"fmt"
	"io"

	"github.com/iwvelando/financing-simulator/internal/config"
	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/output"
	"github.com/iwvelando/financing-simulator/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type simulateOptions struct {
	configLocation string
	outputFormat   string
	logLevel       string
}

func newSimulateCommand() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the active simulations of a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	return cmd
}

func runSimulate(out io.Writer, opts *simulateOptions) error {
	conf, err := config.LoadConfiguration(opts.configLocation)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", opts.configLocation, err)
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(),
			zap.String("op", "main.runSimulate"),
		)
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runSimulate"),
		)
	}

	results, err := simulation.Run(logger, *conf)
	if err != nil {
		logger.Error("failed to run simulations",
			zap.String("op", "main.runSimulate"),
			zap.Error(err),
		)
		return err
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		return output.WritePretty(out, results, conf.Output.Locale)
	case constants.OutputFormatCSV:
		return output.WriteCSV(out, results)
	}
	return nil
}
