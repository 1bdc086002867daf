package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/aggregate"
)

var (
	reportKind   string
	reportFrom   string
	reportTo     string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate classified postings into a keyword table",
	Long: "Builds a keyword frequency table over classified postings and writes\n" +
		"it as CSV. Kinds: time (keyword counts per month), bar (total keyword\n" +
		"counts), pie (PE vs non-PE posting counts).",
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportKind, "kind", "bar", "table kind: time, bar or pie")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "earliest posted date (YYYY-MM-DD, default 2022-01-01)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "latest posted date (YYYY-MM-DD, default today)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write CSV to this file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	kind, err := aggregate.ParseKind(reportKind)
	if err != nil {
		return err
	}
	dates, err := parseDateRange(reportFrom, reportTo)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	agg := aggregate.New(st, cfg.Keywords.LLMRelated)
	table, err := agg.Aggregate(dates, kind)
	if err != nil {
		return err
	}

	if reportOutput == "" {
		return table.WriteCSV(os.Stdout)
	}

	f, err := os.Create(reportOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", reportOutput, err)
	}
	defer f.Close()

	if err := table.WriteCSV(f); err != nil {
		return err
	}
	logger.Info("report written", "kind", string(kind), "rows", len(table.Rows), "path", reportOutput)
	return nil
}
