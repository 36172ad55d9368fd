package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsbot/config"
	agentcore "github.com/mohammad-safakhou/newsbot/internal/agent/core"
	agenttele "github.com/mohammad-safakhou/newsbot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsbot/internal/scrape"
	srv "github.com/mohammad-safakhou/newsbot/internal/server"
	"github.com/mohammad-safakhou/newsbot/internal/store"
	"github.com/mohammad-safakhou/newsbot/tools/web_search"
	"github.com/mohammad-safakhou/newsbot/tools/web_search/serper"
)

func main() {
	var root = &cobra.Command{Use: "newsbot"}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(config.LoadConfig(cfgPath))
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if !cfg.Storage.Postgres.Enabled() {
				return fmt.Errorf("postgres not configured (storage.postgres)")
			}
			return store.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var analyze = &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a single article and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.DefaultTimeout)
			defer cancel()

			llm, err := agentcore.NewLLMProvider(cfg.LLM)
			if err != nil {
				return err
			}
			var searcher web_search.Searcher
			if cfg.Sources.WebSearch.SerperAPIKey != "" {
				searcher = serper.New(cfg.Sources.WebSearch.SerperAPIKey, cfg.Sources.WebSearch.Timeout)
			}
			tele := agenttele.NewTelemetry(cfg.Telemetry)
			pipeline := agentcore.NewPipeline(cfg, llm, searcher, tele)

			article, err := scrape.New(cfg.Scrape).Scrape(ctx, args[0])
			if err != nil {
				return err
			}
			analysis, err := pipeline.Analyze(ctx, article)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		},
	}

	var tokenTTL time.Duration
	var token = &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a JWT for API access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
			}
			signed, err := srv.SignJWT(args[0], []byte(cfg.Server.JWTSecret), tokenTTL)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	token.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	root.AddCommand(serve, migrate, analyze, token)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
