package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/collect"
	"github.com/jthornhill/newsintel/internal/config"
	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/features"
	"github.com/jthornhill/newsintel/internal/ingest"
	"github.com/jthornhill/newsintel/internal/oracle"
	"github.com/jthornhill/newsintel/internal/process"
	"github.com/jthornhill/newsintel/internal/report"
	"github.com/jthornhill/newsintel/internal/tagger"
	"github.com/jthornhill/newsintel/internal/weekly"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RoundNumber int
	Steps       []StepResult
}

// Pipeline orchestrates the 6-step weekly intelligence run:
// collect, triage, analyze, weekly aggregation, features, report.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	cache  *catalog.Cache
	gate   *ingest.Gate
	client oracle.Client
}

// New creates a pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	o := cfg.Oracle
	client := oracle.CreateClient(
		o.Provider, o.Model, o.OllamaURL, o.OpenAIModel, o.APIKeyEnv,
		time.Duration(o.TimeoutSeconds)*time.Second,
	)

	cache := catalog.NewCache(cfg.Domain)
	tg := tagger.New(db, cache)
	gate := ingest.NewGate(db, tg, cfg.Pipeline.RetentionDays)

	return &Pipeline{cfg: cfg, db: db, cache: cache, gate: gate, client: client}
}

// Run executes the full pipeline against one round. Steps after a failed
// collect still run: triage and analysis can make progress on previously
// cached articles.
func (p *Pipeline) Run(ctx context.Context, round *database.Round) *Result {
	r := &Result{RoundNumber: round.Number}

	r.Steps = append(r.Steps, p.runCollect())
	r.Steps = append(r.Steps, p.runTriage())

	step := p.runAnalyze(ctx)
	r.Steps = append(r.Steps, step)

	step = p.runWeekly(ctx, round.ID)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runFeatures(round.ID))
	r.Steps = append(r.Steps, p.runReport(round.ID))

	return r
}

func (p *Pipeline) runCollect() StepResult {
	log.Println("Step 1/6: Collecting articles...")
	collector := collect.NewCollector(p.cfg, p.db, p.gate, p.cfg.Pipeline.CollectDaysBack)
	result := collector.Collect()
	return StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d articles: %d new, %d updated, %d duplicates",
			result.TotalFound, result.NewArticles, result.Updated, result.Duplicates),
	}
}

func (p *Pipeline) runTriage() StepResult {
	log.Println("Step 2/6: Triaging articles...")
	proc := process.New(p.db, p.cache, p.client, p.cfg.Domain)
	result, err := proc.RunTriageBatch(p.cfg.Pipeline.TriageBatchSize)
	if err != nil {
		return StepResult{Name: "Triage", Err: err}
	}
	return StepResult{
		Name: "Triage",
		Summary: fmt.Sprintf("Triaged %d articles: %d mentions, %d flagged",
			result.Articles, result.Mentions, result.NeedsAnalysis),
	}
}

func (p *Pipeline) runAnalyze(ctx context.Context) StepResult {
	log.Println("Step 3/6: Deep analysis...")
	if p.client == nil {
		return StepResult{Name: "Analyze", Err: fmt.Errorf("no oracle available")}
	}
	proc := process.New(p.db, p.cache, p.client, p.cfg.Domain)
	result, err := proc.RunAnalysisBatch(ctx, p.cfg.Pipeline.AnalysisBatchSize)
	if err != nil {
		return StepResult{Name: "Analyze", Err: err}
	}
	return StepResult{
		Name: "Analyze",
		Summary: fmt.Sprintf("Analyzed %d mentions: %d events, %d below gate",
			result.Processed, result.Events, result.Skipped),
	}
}

func (p *Pipeline) runWeekly(ctx context.Context, roundID int64) StepResult {
	log.Println("Step 4/6: Weekly aggregation...")
	if p.client == nil {
		return StepResult{Name: "Weekly", Err: fmt.Errorf("no oracle available")}
	}
	proc := weekly.New(p.db, p.client, p.cfg.Domain)
	result, err := proc.ProcessRound(ctx, roundID, nil)
	if err != nil {
		return StepResult{Name: "Weekly", Err: err}
	}
	return StepResult{
		Name: "Weekly",
		Summary: fmt.Sprintf("%d snapshots, %d profiles, %d verdicts, %d errors",
			result.Snapshots, result.Profiles, result.Verdicts, len(result.Errors)),
	}
}

func (p *Pipeline) runFeatures(roundID int64) StepResult {
	log.Println("Step 5/6: Generating ML features...")
	gen := features.New(p.db)
	result, err := gen.GenerateForRound(roundID)
	if err != nil {
		return StepResult{Name: "Features", Err: err}
	}
	return StepResult{
		Name:    "Features",
		Summary: fmt.Sprintf("Generated %d feature rows, %d errors", result.Generated, len(result.Errors)),
	}
}

func (p *Pipeline) runReport(roundID int64) StepResult {
	log.Println("Step 6/6: Writing round report...")
	gen := report.New(p.db, p.cfg.GetDataDir())
	result, err := gen.Generate(roundID)
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report for %d entities written to %s", result.Entities, result.MarkdownPath),
	}
}
