package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrend/petrend/internal/fetch"
	"github.com/petrend/petrend/internal/model"
)

var (
	fetchLocation string
	fetchMax      int
	fetchBatch    int
	fetchFrom     string
	fetchTo       string
	fetchSources  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch job postings into the local store",
	Long: "Runs one fetch session against the configured sources, alternating\n" +
		"between them batch by batch. Ctrl-C cancels at the next batch boundary;\n" +
		"postings already stored are kept.",
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchLocation, "location", "", "location appended to the search query, e.g. \"Stockholm\"")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 500, "maximum postings to fetch this session")
	fetchCmd.Flags().IntVar(&fetchBatch, "batch", 100, "postings per source request")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "earliest publication date (YYYY-MM-DD, default 2022-01-01)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "latest publication date (YYYY-MM-DD, default today)")
	fetchCmd.Flags().StringVar(&fetchSources, "sources", "live,historical", "comma-separated sources to query")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sources, err := model.ParseSources(fetchSources)
	if err != nil {
		return err
	}
	dates, err := parseDateRange(fetchFrom, fetchTo)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	orch := buildOrchestrator(cfg, st, logger)

	req := model.FetchRequest{
		Location:    fetchLocation,
		MaxListings: fetchMax,
		BatchSize:   fetchBatch,
		From:        dates.From,
		To:          dates.To,
		Sources:     sources,
	}

	session, err := orch.Start(context.Background(), req)
	if err != nil {
		return err
	}

	logger.Info("fetch session started",
		"query", cfg.Fetch.Query,
		"location", fetchLocation,
		"max", fetchMax,
		"batch", fetchBatch,
		"sources", fetchSources,
	)

	// First Ctrl-C requests a graceful stop at the next batch boundary.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("cancel requested, finishing current batch")
		session.Cancel()
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-session.Done():
			done = true
		case <-ticker.C:
			status := session.Status()
			logger.Info("fetch progress", "fetched", status.FetchedCount, "errors", len(status.Errors))
		}
	}

	status := session.Status()
	for _, fetchErr := range status.Errors {
		logger.Warn("source error", "error", fetchErr)
	}

	total, err := st.Count()
	if err != nil {
		return err
	}

	switch status.State {
	case fetch.StateCompleted:
		if status.PartialFailure {
			logger.Warn("fetch completed with source failures", "fetched", status.FetchedCount, "stored_total", total)
		} else {
			logger.Info("fetch completed", "fetched", status.FetchedCount, "stored_total", total)
		}
	case fetch.StateCancelled:
		logger.Info("fetch cancelled", "fetched", status.FetchedCount, "stored_total", total)
	case fetch.StateFailed:
		return fmt.Errorf("fetch failed: all sources errored before any posting was stored")
	}
	return nil
}
