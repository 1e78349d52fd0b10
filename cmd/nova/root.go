package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/config"
	"github.com/benhoenig/NOVA-II/internal/assistant"
	"github.com/benhoenig/NOVA-II/internal/dialogue"
	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
	"github.com/benhoenig/NOVA-II/internal/plan"
	"github.com/benhoenig/NOVA-II/internal/remind"
	"github.com/benhoenig/NOVA-II/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "nova",
	Short: "NOVA II, a bilingual goal and reminder assistant",
	Long: `NOVA II tracks goals with action plans, schedules reminders, and keeps
a small knowledge base. It talks Thai and English over LINE or this CLI.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(kbCmd)
}

// app bundles everything a command needs once the config is loaded.
type app struct {
	cfg       *config.Config
	db        *store.Store
	pg        *store.PostgresGoals // nil unless DATABASE_URL is set
	repo      goal.Repository
	client    llm.Client
	machine   *goal.Machine
	engine    *dialogue.Engine
	planner   *plan.Generator
	evaluator *remind.Evaluator
	assistant *assistant.Assistant
	loc       *time.Location
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	loc := cfg.Location()

	database, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var repo goal.Repository = database
	var pg *store.PostgresGoals
	if cfg.DatabaseURL != "" {
		pg, err = store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("connecting to Postgres: %w", err)
		}
		repo = pg
		log.Printf("goals stored in Postgres")
	}

	apiKey := cfg.AnthropicKey
	if cfg.LLMProvider == "openai" {
		apiKey = cfg.OpenAIKey
	}
	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:  cfg.LLMProvider,
		APIKey:    apiKey,
		AuthToken: cfg.AnthropicToken,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.OllamaBaseURL,
	})
	if err != nil {
		if pg != nil {
			pg.Close()
		}
		database.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	machine := goal.NewMachine(repo)
	planner := plan.NewGenerator(client, repo)
	engine := dialogue.NewEngine(dialogue.NewLLMExtractor(client), repo, planner)

	return &app{
		cfg:       cfg,
		db:        database,
		pg:        pg,
		repo:      repo,
		client:    client,
		machine:   machine,
		engine:    engine,
		planner:   planner,
		evaluator: remind.NewEvaluator(repo),
		assistant: assistant.New(client, repo, machine, engine, database, loc, cfg.MaxContextTokens),
		loc:       loc,
	}, nil
}

func (a *app) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
	a.db.Close()
}
