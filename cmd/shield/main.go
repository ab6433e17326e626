package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-shield/internal/config"
	"news-shield/internal/logging"
	"news-shield/internal/model"
	"news-shield/internal/search"
	"news-shield/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	cfg        config.Config
	configPath string
	logLevel   string

	numResults  int
	digestLevel int
	noCheck     bool
	topicLimit  int
)

var rootCmd = &cobra.Command{
	Use:   "shield",
	Short: "news-shield - news acquisition and credibility pipeline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url...]",
	Short: "Rate and analyze the given article URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a := newApp(cfg, logger)
		if err := a.openStore(ctx, false); err != nil {
			return err
		}
		defer a.Close()

		results := a.runner().Run(ctx, "Manual", args)
		return finishRun(ctx, a, "Manual", results)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the web for a topic and analyze every hit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		query := args[0]
		client, err := search.NewClient(cfg.Search, logger)
		if err != nil {
			return err
		}

		a := newApp(cfg, logger)
		if err := a.openStore(ctx, false); err != nil {
			return err
		}
		defer a.Close()

		candidates, err := client.Search(ctx, query, numResults)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		results := a.runner().RunCandidates(ctx, query, candidates)
		return finishRun(ctx, a, query, results)
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "List today's top news topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		topics, err := search.NewTrends(cfg.Trends, logger).Top(ctx, topicLimit)
		if err != nil {
			return err
		}
		for i, topic := range topics {
			fmt.Printf("%d. %s\n", i+1, topic)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Queue a URL for the running server's worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != config.StoreHybrid {
			return fmt.Errorf("the link queue needs the %s store", config.StoreHybrid)
		}

		a := newApp(cfg, logger)
		// Client mode: Redis only, the server owns the Badger directory.
		if err := a.openStore(cmd.Context(), true); err != nil {
			return err
		}
		defer a.Close()

		url := args[0]
		if err := a.hybrid.Enqueue(cmd.Context(), url); err != nil {
			return fmt.Errorf("queue %s: %w", url, err)
		}
		logger.Info("Link queued",
			zap.String("id", model.ResultID(url).String()),
			zap.String("url", url))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many stored results fall in each credibility bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger)
		if err := a.openStore(cmd.Context(), true); err != nil {
			return err
		}
		defer a.Close()
		if a.store == nil {
			return errors.New("no store configured")
		}

		stats, err := a.store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Total: %d\nTrusted: %d\nPropaganda: %d\n", stats.Total, stats.Trusted, stats.Propaganda)
		return nil
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the queue worker and the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		// Setup Manual 'q' input handling
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if scanner.Text() == "q" {
					fmt.Println(" 'q' pressed. Stopping...")
					cancel()
					return
				}
			}
		}()

		a := newApp(cfg, logger)
		if err := a.openStore(ctx, false); err != nil {
			return err
		}
		defer a.Close()
		if a.store == nil {
			return errors.New("the server needs a store")
		}

		var srv *server.Server
		if a.hybrid != nil {
			go a.worker.Start(ctx, a.hybrid, a.hybrid)
			srv = server.NewServer(a.store, a.hybrid, logger)
		} else {
			logger.Warn("Link queue disabled: it needs the hybrid store")
			srv = server.NewServer(a.store, nil, logger)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.Server.Addr) }()

		logger.Info("Server running.")
		fmt.Println("Press 'q' + Enter or Ctrl+C to stop.")

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Shutdown error", zap.Error(err))
		}
		logger.Info("Goodbye!")
		return nil
	},
}

// finishRun prints the run, then the cross-check, optional digest and the Markdown report.
func finishRun(ctx context.Context, a *app, query string, results []model.ArticleResult) error {
	for i, r := range results {
		fmt.Printf("%d. %s\n   %s\n   %s\n", i+1, r.URL, r.Rating, r.StatusText())
		if title := model.Deref(r.Title); title != "" {
			fmt.Printf("   %s\n", title)
		}
	}

	crossCheck := ""
	if cc := a.crossChecker(); cc != nil && !noCheck {
		crossCheck = cc.Synthesize(ctx, results)
		fmt.Printf("\n== Cross-check ==\n%s\n", crossCheck)
	}

	if d := a.digester(); d != nil && digestLevel >= 0 {
		fmt.Printf("\n== Digest ==\n%s\n", d.Generate(ctx, results, digestLevel))
	}

	path, err := a.reports.WriteMarkdown(query, results, crossCheck)
	if err != nil {
		return err
	}
	fmt.Printf("\nReport: %s\n", path)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $SHIELD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	for _, c := range []*cobra.Command{analyzeCmd, searchCmd} {
		c.Flags().IntVar(&digestLevel, "digest", -1, "Also build a digest at this noise-filter level (0-100)")
		c.Flags().BoolVar(&noCheck, "no-crosscheck", false, "Skip the cross-source comparison")
	}
	searchCmd.Flags().IntVarP(&numResults, "num", "n", search.DefaultResults, "Number of search results to analyze")
	trendsCmd.Flags().IntVarP(&topicLimit, "limit", "n", search.DefaultTopicCap, "Number of topics to list")

	rootCmd.AddCommand(analyzeCmd, searchCmd, trendsCmd, addCmd, statsCmd, serverCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
