package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/config"
	"github.com/petrend/petrend/internal/llm"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the LLM backend is reachable",
	Long: "Probes the configured LLM backend and exits non-zero if it cannot be\n" +
		"reached. For kobold this queries the version endpoint; API-key backends\n" +
		"only validate credentials being present.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateLLM(cfg); err != nil {
		return err
	}

	if cfg.LLM.Backend != "kobold" {
		fmt.Printf("backend %s configured, credentials present\n", cfg.LLM.Backend)
		return nil
	}

	provider := llm.NewKoboldProvider(cfg.LLM.BaseURL, &http.Client{Timeout: cfg.LLM.Timeout})
	version, err := provider.CheckConnection(cmd.Context())
	if err != nil {
		return fmt.Errorf("kobold backend at %s is not reachable: %w", cfg.LLM.BaseURL, err)
	}
	fmt.Printf("kobold %s reachable at %s\n", version, cfg.LLM.BaseURL)
	return nil
}
