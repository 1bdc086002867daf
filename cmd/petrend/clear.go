package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored postings",
	Long:  "Removes every posting from the store, including classifications. Requires --yes.",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	count, err := st.Count()
	if err != nil {
		return err
	}

	if !clearYes {
		fmt.Printf("This would delete %d postings from %s. Re-run with --yes to confirm.\n", count, cfg.StorePath)
		return nil
	}

	if err := st.ClearAll(); err != nil {
		return err
	}
	logger.Info("store cleared", "deleted", count, "path", cfg.StorePath)
	return nil
}
