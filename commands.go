package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kova98/redditlookup/config"
	"github.com/kova98/redditlookup/crawler"
	"github.com/kova98/redditlookup/data"
	"github.com/kova98/redditlookup/data/repos"
	"github.com/kova98/redditlookup/extract"
	"github.com/kova98/redditlookup/metrics"
	"github.com/kova98/redditlookup/sources"
)

var rootCmd = &cobra.Command{
	Use:           "redditlookup",
	Short:         "Collect reddit submissions, authors and comments matching keywords",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		slog.SetDefault(newLogger(config.Config))
	},
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw := newGateway()
		defer gw.Close()

		return migrate(gw)
	},
}

// --- register ---

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the subreddits listed in the subreddits file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gw := newGateway()
		defer gw.Close()
		if err := migrate(gw); err != nil {
			return err
		}

		c, err := newCrawler(ctx, gw, nil)
		if err != nil {
			return err
		}
		return register(c)
	},
}

// --- crawl ---

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Search every registered subreddit for every keyword",
	Long: `Search every registered subreddit for every keyword and store the
authors, submissions and comments found.

Examples:
  redditlookup crawl
  redditlookup crawl --skip-register
  redditlookup crawl --keywords ./keywords.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipRegister, _ := cmd.Flags().GetBool("skip-register")
		keywordsFile, _ := cmd.Flags().GetString("keywords")
		if keywordsFile == "" {
			keywordsFile = config.Config.KeywordsFile
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if config.Config.MetricsAddr != "" {
			metrics.Serve(ctx, slog.Default(), config.Config.MetricsAddr)
		}

		keywords, err := config.LoadKeywords(keywordsFile)
		if err != nil {
			return err
		}
		slog.Info("loaded search keywords", "keywords", keywords)

		gw := newGateway()
		defer gw.Close()
		if err := migrate(gw); err != nil {
			return err
		}

		c, err := newCrawler(ctx, gw, keywords)
		if err != nil {
			return err
		}
		if !skipRegister {
			if err := register(c); err != nil {
				return err
			}
		}

		return c.Run(ctx)
	},
}

func init() {
	crawlCmd.Flags().Bool("skip-register", false, "do not register subreddits before crawling")
	crawlCmd.Flags().String("keywords", "", "keywords file (defaults to KEYWORDS_FILE)")

	rootCmd.AddCommand(migrateCmd, registerCmd, crawlCmd)
}

func newGateway() *data.Gateway {
	return data.NewGateway(slog.Default(), config.Config.DBDriver, config.Config.PostgresURL)
}

func migrate(gw *data.Gateway) error {
	db, err := gw.DB()
	if err != nil {
		return err
	}
	if err := data.RunMigrations(db.DB, gw.Driver()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func register(c *crawler.Crawler) error {
	subreddits, err := config.LoadSubreddits(config.Config.SubredditsFile)
	if err != nil {
		return err
	}
	return c.RegisterSubreddits(subreddits)
}

func newCrawler(ctx context.Context, gw *data.Gateway, keywords []string) (*crawler.Crawler, error) {
	cfg := config.Config
	logger := slog.Default()

	creds := sources.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		UserAgent:    cfg.RedditUserAgent,
	}
	httpClient, err := sources.NewHTTPClient(ctx, creds, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	client := sources.NewClient(logger, httpClient, sources.ClientConfig{
		BaseURL:      baseURL(cfg, creds),
		UserAgent:    cfg.RedditUserAgent,
		RequestDelay: cfg.RequestDelay,
	})
	builder := extract.NewBuilder(extract.NewExtractor(logger), extract.NewResolver(logger))

	return crawler.New(logger,
		crawler.NewRedditSource(client),
		repos.NewSubredditRepo(gw),
		repos.NewWriter(logger, gw, cfg.InsertMode),
		builder,
		crawler.Options{
			Keywords:   keywords,
			MatchMode:  cfg.MatchMode,
			TimeFilter: cfg.SearchTimeFilter,
		},
	), nil
}

func baseURL(cfg config.AppConfig, creds sources.Credentials) string {
	switch {
	case cfg.RedditBaseURL != "":
		return cfg.RedditBaseURL
	case creds.Authenticated():
		return sources.OAuthBaseURL
	default:
		return sources.PublicBaseURL
	}
}

