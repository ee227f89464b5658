package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/collect"
	"github.com/jthornhill/newsintel/internal/config"
	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/features"
	"github.com/jthornhill/newsintel/internal/ingest"
	"github.com/jthornhill/newsintel/internal/oracle"
	"github.com/jthornhill/newsintel/internal/pipeline"
	"github.com/jthornhill/newsintel/internal/process"
	"github.com/jthornhill/newsintel/internal/report"
	"github.com/jthornhill/newsintel/internal/tagger"
	"github.com/jthornhill/newsintel/internal/weekly"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsintel",
	Short:   "Fantasy football news intelligence",
	Long:    "newsintel collects football news, triages player mentions, and distills weekly snapshots, verdicts, and ML features.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(roundsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsintel", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsintel/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and the oracle provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		round, err := db.GetCurrentRound()
		if err != nil {
			return err
		}
		if round != nil {
			fmt.Printf("Current round: %d (%s to %s)\n\n", round.Number, round.StartDate, round.EndDate)
		} else {
			fmt.Println("Current round: none registered")
			fmt.Println()
		}

		fmt.Println("Catalog:")
		fmt.Printf("  Entities: %d\n", stats.Entities)
		fmt.Printf("  Aliases: %d\n", stats.Aliases)
		fmt.Println("\nArticles:")
		fmt.Printf("  Total cached: %d\n", stats.TotalArticles)
		fmt.Printf("  Live: %d\n", stats.LiveArticles)
		fmt.Printf("  Pending triage: %d\n", stats.PendingTriage)
		fmt.Printf("  Pending analysis: %d\n", stats.PendingAnalysis)
		fmt.Println("\nIntelligence:")
		fmt.Printf("  Extraction events: %d\n", stats.ExtractionEvents)
		fmt.Printf("  Snapshots: %d\n", stats.Snapshots)
		fmt.Printf("  Verdicts: %d\n", stats.Verdicts)
		fmt.Printf("  Feature rows: %d\n", stats.FeatureRows)
		return nil
	},
}

// --- collect command ---

var collectDaysBack int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect articles from configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		daysBack := collectDaysBack
		if daysBack == 0 {
			daysBack = cfg.Pipeline.CollectDaysBack
		}

		fmt.Println("Collecting articles from sources...")
		collector := collect.NewCollector(cfg, db, newGate(db), daysBack)
		result := collector.Collect()

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New articles: %d\n", result.NewArticles)
		fmt.Printf("  Updated: %d\n", result.Updated)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by source:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectDaysBack, "days-back", 0, "Override lookback window (days)")
}

// --- ingest command ---

var (
	ingestSource    string
	ingestPublished string
	ingestBodyFile  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url] [title]",
	Short: "Ingest a single article (body from --body-file or stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var body []byte
		if ingestBodyFile != "" {
			body, err = os.ReadFile(ingestBodyFile)
			if err != nil {
				return fmt.Errorf("reading body file: %w", err)
			}
		} else {
			body, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading body from stdin: %w", err)
			}
		}

		var source, published *string
		if ingestSource != "" {
			source = &ingestSource
		}
		if ingestPublished != "" {
			published = &ingestPublished
		}

		article, err := newGate(db).Ingest(args[0], args[1], string(body), source, published)
		if err != nil {
			return err
		}
		if article == nil {
			fmt.Println("Duplicate article, skipped.")
			return nil
		}
		fmt.Printf("Ingested article %d: %s\n", article.ID, article.Title)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Article source name")
	ingestCmd.Flags().StringVar(&ingestPublished, "published", "", "Published date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestBodyFile, "body-file", "", "Read article body from file instead of stdin")
}

// --- run command ---

var runRound int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> triage -> analyze -> weekly -> features -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		round, err := resolveRound(db, runRound)
		if err != nil {
			return err
		}

		pipe := pipeline.New(cfg, db)
		result := pipe.Run(context.Background(), round)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/6: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		fmt.Printf("\nPipeline complete for round %d.\n", result.RoundNumber)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runRound, "round", 0, "Round number (default: current round)")
}

// --- triage command ---

var triageBatchSize int

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Run entity triage over pending articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		batch := triageBatchSize
		if batch == 0 {
			batch = cfg.Pipeline.TriageBatchSize
		}

		proc := process.New(db, sharedCache(), nil, cfg.Domain)
		result, err := proc.RunTriageBatch(batch)
		if err != nil {
			return err
		}

		fmt.Printf("Triaged %d articles: %d mentions, %d flagged for analysis, %d errors\n",
			result.Articles, result.Mentions, result.NeedsAnalysis, result.Errors)
		return nil
	},
}

func init() {
	triageCmd.Flags().IntVar(&triageBatchSize, "batch-size", 0, "Articles per batch")
}

// --- analyze command ---

var analysisBatchSize int

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run deep oracle analysis over flagged mentions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		client := newOracle()
		if client == nil {
			return fmt.Errorf("no oracle available")
		}

		batch := analysisBatchSize
		if batch == 0 {
			batch = cfg.Pipeline.AnalysisBatchSize
		}

		proc := process.New(db, sharedCache(), client, cfg.Domain)
		result, err := proc.RunAnalysisBatch(context.Background(), batch)
		if err != nil {
			return err
		}

		fmt.Printf("Analyzed %d mentions: %d events, %d below gate, %d errors\n",
			result.Processed, result.Events, result.Skipped, result.Errors)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analysisBatchSize, "batch-size", 0, "Mentions per batch")
}

// --- weekly command ---

var (
	weeklyRound  int
	weeklyEntity int64
)

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate snapshots, profiles, and verdicts for a round",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		client := newOracle()
		if client == nil {
			return fmt.Errorf("no oracle available")
		}

		round, err := resolveRound(db, weeklyRound)
		if err != nil {
			return err
		}

		var entityIDs []int64
		if weeklyEntity > 0 {
			entityIDs = []int64{weeklyEntity}
		}

		proc := weekly.New(db, client, cfg.Domain)
		result, err := proc.ProcessRound(context.Background(), round.ID, entityIDs)
		if err != nil {
			return err
		}

		fmt.Printf("Round %d: %d snapshots, %d profiles, %d verdicts\n",
			round.Number, result.Snapshots, result.Profiles, result.Verdicts)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

func init() {
	weeklyCmd.Flags().IntVar(&weeklyRound, "round", 0, "Round number (default: current round)")
	weeklyCmd.Flags().Int64Var(&weeklyEntity, "entity", 0, "Process a single entity ID")
}

// --- features command ---

var featuresRound int

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Generate ML feature rows for a round",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		round, err := resolveRound(db, featuresRound)
		if err != nil {
			return err
		}

		gen := features.New(db)
		result, err := gen.GenerateForRound(round.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Round %d: generated %d feature rows\n", round.Number, result.Generated)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

func init() {
	featuresCmd.Flags().IntVar(&featuresRound, "round", 0, "Round number (default: current round)")
}

// --- report command ---

var reportRound int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the markdown and HTML report for a round",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		round, err := resolveRound(db, reportRound)
		if err != nil {
			return err
		}

		gen := report.New(db, cfg.GetDataDir())
		result, err := gen.Generate(round.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Report for round %d (%d entities):\n  %s\n  %s\n",
			round.Number, result.Entities, result.MarkdownPath, result.HTMLPath)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportRound, "round", 0, "Round number (default: current round)")
}

// --- reindex command ---

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-tag all un-indexed articles against the current catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tg := tagger.New(db, sharedCache())
		stats, err := tg.ReindexAll(cfg.Pipeline.ReindexBatchSize)
		if err != nil {
			return err
		}

		fmt.Printf("Reindexed %d articles: %d entity tags, %d keyword tags\n",
			stats.Articles, stats.Entities, stats.Keywords)
		return nil
	},
}

// --- cleanup command ---

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired articles from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := newGate(db).CleanupExpired()
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d expired articles\n", deleted)
		return nil
	},
}

// --- helpers ---

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "newsintel.db")
	return database.Open(dbPath)
}

// patternCache is shared by every command in one invocation so that
// catalog mutations can invalidate it before any later tagging.
var patternCache *catalog.Cache

func sharedCache() *catalog.Cache {
	if patternCache == nil {
		patternCache = catalog.NewCache(cfg.Domain)
	}
	return patternCache
}

func newGate(db *database.DB) *ingest.Gate {
	tg := tagger.New(db, sharedCache())
	return ingest.NewGate(db, tg, cfg.Pipeline.RetentionDays)
}

func newOracle() oracle.Client {
	o := cfg.Oracle
	return oracle.CreateClient(
		o.Provider, o.Model, o.OllamaURL, o.OpenAIModel, o.APIKeyEnv,
		time.Duration(o.TimeoutSeconds)*time.Second,
	)
}

// resolveRound picks the round to operate on: an explicit number, else
// the round containing today, else the most recent past round.
func resolveRound(db *database.DB, number int) (*database.Round, error) {
	if number > 0 {
		round, err := db.GetRoundByNumber(number)
		if err != nil {
			return nil, err
		}
		if round == nil {
			return nil, fmt.Errorf("round %d not registered; add it with 'newsintel rounds add'", number)
		}
		return round, nil
	}

	round, err := db.GetCurrentRound()
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("no rounds registered; add one with 'newsintel rounds add'")
	}
	return round, nil
}
