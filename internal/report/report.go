package report

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/jthornhill/newsintel/internal/database"
)

var md = goldmark.New()

// Generator composes a deterministic round report from stored verdicts
// and snapshots. No oracle involved: the same database state always
// produces the same report.
type Generator struct {
	db      *database.DB
	dataDir string
}

// Result describes one generated report.
type Result struct {
	MarkdownPath string
	HTMLPath     string
	Entities     int
}

// New creates a report generator writing under dataDir/reports.
func New(db *database.DB, dataDir string) *Generator {
	return &Generator{db: db, dataDir: dataDir}
}

type entityReport struct {
	entity    *database.Entity
	verdict   *database.Verdict
	snapshots []database.SnapshotWithDimension
}

// Generate writes the markdown and HTML report for one round and returns
// the output paths.
func (g *Generator) Generate(roundID int64) (*Result, error) {
	round, err := g.db.GetRoundByID(roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("round %d not found", roundID)
	}

	entityIDs, err := g.db.GetVerdictEntityIDs(roundID)
	if err != nil {
		return nil, err
	}

	var reports []entityReport
	for _, id := range entityIDs {
		er, err := g.loadEntityReport(id, roundID)
		if err != nil {
			return nil, err
		}
		if er != nil {
			reports = append(reports, *er)
		}
	}

	// Best captain picks first; ties by name keep the output stable.
	sort.Slice(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if a.verdict.CaptainRating != b.verdict.CaptainRating {
			return a.verdict.CaptainRating > b.verdict.CaptainRating
		}
		return a.entity.CanonicalName < b.entity.CanonicalName
	})

	markdown := composeMarkdown(round, reports)

	dir := filepath.Join(g.dataDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}

	mdPath := filepath.Join(dir, fmt.Sprintf("round-%02d.md", round.Number))
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("writing markdown report: %w", err)
	}

	htmlPath := filepath.Join(dir, fmt.Sprintf("round-%02d.html", round.Number))
	html, err := renderHTML(round.Number, markdown)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, fmt.Errorf("writing HTML report: %w", err)
	}

	log.Printf("Report for round %d written: %d entities", round.Number, len(reports))
	return &Result{MarkdownPath: mdPath, HTMLPath: htmlPath, Entities: len(reports)}, nil
}

func (g *Generator) loadEntityReport(entityID, roundID int64) (*entityReport, error) {
	entity, err := g.db.GetEntityByID(entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	verdict, err := g.db.GetVerdict(entityID, roundID)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, nil
	}
	snapshots, err := g.db.GetSnapshotsForRound(entityID, roundID)
	if err != nil {
		return nil, err
	}
	return &entityReport{entity: entity, verdict: verdict, snapshots: snapshots}, nil
}

func composeMarkdown(round *database.Round, reports []entityReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Round %d Intelligence Report\n\n", round.Number)
	fmt.Fprintf(&b, "%s to %s\n\n", round.StartDate, round.EndDate)

	if len(reports) == 0 {
		b.WriteString("No verdicts available for this round.\n")
		return b.String()
	}

	b.WriteString("## Captain Rankings\n\n")
	b.WriteString("| Rank | Player | Rating | Risk | Trade |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for i, r := range reports {
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s |\n",
			i+1, r.entity.CanonicalName, r.verdict.CaptainRating,
			r.verdict.RiskLevel, r.verdict.TradeSignal)
	}
	b.WriteString("\n")

	for _, r := range reports {
		fmt.Fprintf(&b, "## %s\n\n", r.entity.CanonicalName)
		fmt.Fprintf(&b, "**Captain rating: %d/100** (risk %s, trade signal %s)\n\n",
			r.verdict.CaptainRating, r.verdict.RiskLevel, r.verdict.TradeSignal)

		if r.verdict.CaptainReasoning != nil && *r.verdict.CaptainReasoning != "" {
			fmt.Fprintf(&b, "%s\n\n", *r.verdict.CaptainReasoning)
		}
		if r.verdict.TradeReasoning != nil && *r.verdict.TradeReasoning != "" {
			fmt.Fprintf(&b, "%s\n\n", *r.verdict.TradeReasoning)
		}
		if len(r.verdict.RiskFactors) > 0 {
			b.WriteString("Risk factors:\n\n")
			for _, factor := range r.verdict.RiskFactors {
				fmt.Fprintf(&b, "- %s\n", factor)
			}
			b.WriteString("\n")
		}

		for _, s := range r.snapshots {
			label := strings.ReplaceAll(s.DimensionCode, "_", " ")
			fmt.Fprintf(&b, "### %s\n\n", label)
			fmt.Fprintf(&b, "%s *(%s, %s signal, %d articles)*\n\n",
				s.Summary, s.Sentiment, s.SignalStrength, s.ArticleCount)
			if s.FantasyImpact != nil && *s.FantasyImpact != "" {
				fmt.Fprintf(&b, "> %s\n\n", *s.FantasyImpact)
			}
		}
	}

	return b.String()
}

func renderHTML(roundNumber int, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Round %d Intelligence Report</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
blockquote { color: #555; border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
%s</body>
</html>
`, roundNumber, body.String())
	return page.Bytes(), nil
}
