package weekly

import (
	"fmt"
	"strings"

	"github.com/jthornhill/newsintel/internal/database"
)

func buildSnapshotPrompt(name string, dim database.Dimension, articles []database.Article) string {
	var parts []string
	for i, a := range articles {
		if i == snapshotArticleLimit {
			break
		}
		body := a.Body
		if len(body) > snapshotBodyLimit {
			body = body[:snapshotBodyLimit]
		}
		source := ""
		if a.Source != nil {
			source = *a.Source
		}
		parts = append(parts, fmt.Sprintf("**%s** (%s)\n%s", a.Title, source, body))
	}
	articleText := strings.Join(parts, "\n\n---\n\n")

	guidance := ""
	if dim.PromptGuidance != nil {
		guidance = *dim.PromptGuidance
	}

	return fmt.Sprintf(`Analyze these news articles about %s regarding %s.

%s

ARTICLES:
%s

Respond with ONLY valid JSON:
{
    "summary": "2-3 sentence summary of what the news says about this dimension",
    "sentiment": "positive|negative|neutral|mixed",
    "signal_strength": "strong|moderate|weak|none",
    "fantasy_impact": "One sentence on fantasy relevance",
    "ml_features": {
        "mentioned": true,
        "sentiment_score": 0.0 to 1.0,
        "signal_score": 0.0 to 1.0,
        "recency_days": average days since articles,
        "source_quality": 0.0 to 1.0
    },
    "confidence": 0.0 to 1.0
}`, name, dimensionLabel(dim), guidance, articleText)
}

func buildProfilePrompt(name string, dim database.Dimension, snapshots []database.SnapshotWithRound) string {
	var lines []string
	for _, s := range snapshots {
		lines = append(lines, fmt.Sprintf("Round %d: %s (sentiment: %s)",
			s.RoundNumber, s.Summary, s.Sentiment))
	}

	return fmt.Sprintf(`Based on the last %d weeks of news about %s regarding %s:

%s

Respond with ONLY valid JSON:
{
    "narrative": "2-3 sentence narrative describing the trend over these weeks",
    "trend": "improving|stable|declining|volatile",
    "trend_confidence": 0.0 to 1.0,
    "aggregated_features": {
        "avg_sentiment": 0.0 to 1.0,
        "trend_direction": -1.0 to 1.0,
        "consistency": 0.0 to 1.0,
        "weeks_positive": count,
        "weeks_negative": count
    }
}`, len(snapshots), name, dimensionLabel(dim), strings.Join(lines, "\n"))
}

func buildVerdictPrompt(name string, snapshots []database.SnapshotWithDimension, profiles []database.ProfileWithDimension) string {
	var snapshotLines []string
	for _, s := range snapshots {
		snapshotLines = append(snapshotLines, fmt.Sprintf("- %s: %s (%s, %s)",
			s.DimensionCode, s.Summary, s.Sentiment, s.SignalStrength))
	}

	profileContext := "No historical profiles yet."
	if len(profiles) > 0 {
		var lines []string
		for _, p := range profiles {
			lines = append(lines, fmt.Sprintf("- %s: %s (trend: %s)",
				p.DimensionCode, p.Narrative, p.Trend))
		}
		profileContext = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`Generate a fantasy verdict for %s this round.

THIS WEEK'S NEWS:
%s

RECENT TRENDS:
%s

Respond with ONLY valid JSON:
{
    "captain_rating": 0-100 (100 = must captain),
    "captain_reasoning": "One sentence why they are/aren't a good captain",
    "risk_level": "low|medium|high|extreme",
    "risk_factors": ["list", "of", "risk", "factors"],
    "trade_signal": "strong_buy|buy|hold|sell|strong_sell",
    "trade_reasoning": "One sentence trade recommendation",
    "verdict_features": {
        "injury_risk": 0.0 to 1.0,
        "form_score": 0.0 to 1.0,
        "selection_certainty": 0.0 to 1.0,
        "upside_potential": 0.0 to 1.0,
        "floor_safety": 0.0 to 1.0
    },
    "confidence": 0.0 to 1.0
}`, name, strings.Join(snapshotLines, "\n"), profileContext)
}

func dimensionLabel(dim database.Dimension) string {
	return strings.ReplaceAll(dim.Code, "_", " ")
}
