package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/browse"
	"github.com/petrend/petrend/internal/model"
)

var (
	browsePE   bool
	browseFrom string
	browseTo   string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored postings interactively (TUI)",
	Long: "Split-pane view of stored postings: all postings on the left, those\n" +
		"classified as prompt engineering on the right. Enter opens the detail\n" +
		"view with the full ad text.",
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().BoolVar(&browsePE, "pe", false, "only show postings classified as prompt engineering")
	browseCmd.Flags().StringVar(&browseFrom, "from", "", "earliest posted date (YYYY-MM-DD, default 2022-01-01)")
	browseCmd.Flags().StringVar(&browseTo, "to", "", "latest posted date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dates, err := parseDateRange(browseFrom, browseTo)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var filter model.Filter
	if browsePE {
		pe := true
		filter.IsPE = &pe
	}

	postings, err := st.List(dates, filter)
	if err != nil {
		return err
	}

	return browse.Run(postings)
}
