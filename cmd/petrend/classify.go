package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/classify"
)

var (
	classifyFrom string
	classifyTo   string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify stored postings with the LLM backend",
	Long: "Sends every unclassified posting in the date range to the configured\n" +
		"LLM backend and stores the verdict and extracted keywords. Already\n" +
		"classified postings are skipped, so re-running is cheap.",
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFrom, "from", "", "earliest posted date (YYYY-MM-DD, default 2022-01-01)")
	classifyCmd.Flags().StringVar(&classifyTo, "to", "", "latest posted date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dates, err := parseDateRange(classifyFrom, classifyTo)
	if err != nil {
		return err
	}

	provider, err := setupProvider(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	classifier := classify.New(provider, st, cfg.LLM.Workers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("classification started", "backend", provider.Name(), "workers", cfg.LLM.Workers)

	summary, err := classifier.ClassifyUnclassified(ctx, dates)
	if err != nil {
		return err
	}

	logger.Info("classification finished",
		"processed", summary.Processed,
		"classified", summary.Classified,
		"errors", len(summary.Errors),
	)
	for _, classifyErr := range summary.Errors {
		logger.Warn("classification error", "error", classifyErr)
	}
	return nil
}
