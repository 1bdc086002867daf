package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/adapter"
	"github.com/petrend/petrend/internal/config"
	"github.com/petrend/petrend/internal/fetch"
	"github.com/petrend/petrend/internal/llm"
	"github.com/petrend/petrend/internal/model"
	"github.com/petrend/petrend/internal/ratelimit"
	"github.com/petrend/petrend/internal/retry"
	"github.com/petrend/petrend/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "petrend",
	Short: "Track prompt engineering demand in Swedish job ads",
	Long: "Petrend fetches job postings from the Platsbanken APIs, classifies them\n" +
		"with an LLM backend and aggregates keyword trends over time.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: PETREND_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > PETREND_CONFIG env var > "./config.yaml".
// A missing default file is not an error; built-in defaults apply.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("PETREND_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}

	if !explicit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := config.Default()
			return cfg, config.Validate(cfg)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, config.Validate(cfg)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.StorePath)
}

// setupProvider validates the LLM credentials and builds the configured
// backend. Only commands that reach the backend call this; fetch and report
// work without any API key.
func setupProvider(cfg *config.Config) (llm.Provider, error) {
	if err := config.ValidateLLM(cfg); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
	switch cfg.LLM.Backend {
	case "kobold":
		return llm.NewKoboldProvider(cfg.LLM.BaseURL, httpClient), nil
	case "openai":
		return llm.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, httpClient), nil
	case "deepseek":
		return llm.NewDeepSeekProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

func buildOrchestrator(cfg *config.Config, st *store.SQLiteStore, logger *slog.Logger) *fetch.Orchestrator {
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	adapters := []model.SourceAdapter{
		adapter.NewLiveAdapter(cfg.Fetch.Query, httpClient),
		adapter.NewHistoricalAdapter(cfg.Fetch.Query, httpClient),
	}
	limiter := ratelimit.NewLimiter(cfg.Fetch.MinDelay)
	policy := retry.Policy{
		MaxRetries: cfg.Fetch.MaxRetries,
		BaseDelay:  cfg.Fetch.RetryBaseDelay,
		Logger:     logger,
	}
	return fetch.New(adapters, st, limiter, policy, logger)
}

const dateLayout = "2006-01-02"

// parseDateRange parses the --from/--to flags shared by most subcommands.
// Empty values fall back to the earliest data we care about and today.
func parseDateRange(fromFlag, toFlag string) (model.DateRange, error) {
	from := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Now().UTC().Truncate(24 * time.Hour)

	if fromFlag != "" {
		t, err := time.Parse(dateLayout, fromFlag)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("invalid --from date %q: %w", fromFlag, err)
		}
		from = t
	}
	if toFlag != "" {
		t, err := time.Parse(dateLayout, toFlag)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("invalid --to date %q: %w", toFlag, err)
		}
		to = t
	}
	if to.Before(from) {
		return model.DateRange{}, fmt.Errorf("--to %s is before --from %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	return model.DateRange{From: from, To: to}, nil
}
