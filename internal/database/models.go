package database

// Entity is a tracked real-world subject (player, team).
type Entity struct {
	ID            int64
	Domain        string
	EntityType    string
	CanonicalName string
	ExternalID    *string
	Attributes    map[string]any
	CreatedAt     *string
}

// EntityMatch is an entity returned from a name search, annotated with
// how it matched (canonical name or alias).
type EntityMatch struct {
	Entity
	MatchType string // "canonical" or "alias"
}

// Alias is an alternate name for an entity.
type Alias struct {
	ID         int64
	EntityID   int64
	Alias      string
	Source     string
	Confidence float64
}

// Dimension is a topical axis of analysis (injury status, form, ...).
type Dimension struct {
	ID             int64
	Code           string
	Name           string
	Tier           int
	Description    *string
	PromptGuidance *string
	IsActive       bool
}

// Round is one aggregation period of the competition season.
type Round struct {
	ID        int64
	Number    int
	StartDate string
	EndDate   string
}

// Article is an ingested document in the bounded-lifetime cache.
type Article struct {
	ID             int64
	URLHash        string
	ContentHash    string
	URL            string
	Title          string
	Body           string
	Source         *string
	PublishedAt    *string
	TriageStatus   string
	AnalysisStatus string
	IndexedAt      *string
	ScrapedAt      string
	ExpiresAt      string
}

// Tag records that an article's text matched a known entity or keyword.
type Tag struct {
	ArticleID   int64
	TagType     string // entity type ("player", "team") or "keyword"
	TagValue    string
	EntityID    *int64
	DimensionID *int64
	MatchText   *string
	MatchCount  int
	IsHeadline  bool
}

// EntityMention is a per-article triage record for one entity.
type EntityMention struct {
	ID                int64
	ArticleID         int64
	EntityID          *int64
	EntityName        string
	EntityType        string
	MentionCount      int
	IsPrimarySubject  bool
	MentionContext    string
	NeedsDeepAnalysis bool
	AnalysisCompleted bool
}

// PendingAnalysis is an entity mention joined to its article for Phase 2.
type PendingAnalysis struct {
	EntityMention
	Title       string
	Body        string
	URL         string
	Source      *string
	PublishedAt *string
	// CanonicalName is the resolved entity's canonical name, empty when
	// the mention never resolved to a catalog entity.
	CanonicalName string
}

// ExtractionEvent is the durable, write-once output of deep analysis.
type ExtractionEvent struct {
	ID                int64
	Domain            string
	SchemaType        string
	ArticleHash       string
	Headline          *string
	Source            *string
	SourceURL         *string
	ExtractedData     map[string]any
	EntitiesMentioned []int64
	Confidence        *float64
	CreatedAt         *string
}

// Snapshot is one dimension's summarized evidence for one entity in one round.
type Snapshot struct {
	ID               int64
	EntityID         int64
	DimensionID      int64
	RoundID          int64
	Summary          string
	Sentiment        string
	SignalStrength   string
	FantasyImpact    *string
	MLFeatures       map[string]any
	Confidence       float64
	ArticleCount     int
	SourceArticleIDs []int64
	GeneratedAt      *string
}

// RollingProfile is the trend view over recent snapshots for one
// (entity, dimension). One row per pair, continuously overwritten.
type RollingProfile struct {
	EntityID           int64
	DimensionID        int64
	Narrative          string
	Trend              string
	TrendConfidence    float64
	WeeksCovered       int
	LastRoundID        *int64
	AggregatedFeatures map[string]any
	UpdatedAt          *string
}

// Verdict is a round's composite cross-dimension synthesis for one entity.
type Verdict struct {
	ID               int64
	EntityID         int64
	RoundID          int64
	CaptainRating    int
	CaptainReasoning *string
	RiskLevel        string
	RiskFactors      []string
	TradeSignal      string
	TradeReasoning   *string
	VerdictFeatures  map[string]any
	Confidence       float64
	GeneratedAt      *string
}

// DimensionFeature is the numeric projection of one dimension's snapshot.
type DimensionFeature struct {
	Mentioned bool    `json:"mentioned"`
	Sentiment float64 `json:"sentiment"`
	Signal    float64 `json:"signal"`
}

// FeatureRow is the flattened, ML-ready row for one (entity, round).
type FeatureRow struct {
	EntityID              int64
	RoundID               int64
	DimensionFeatures     map[string]DimensionFeature
	CaptainRating         int
	RiskLevel             string
	TradeSignal           string
	InjuryRiskScore       float64
	FormScore             float64
	SelectionCertainty    float64
	UpsidePotential       float64
	FloorSafety           float64
	TotalArticleCount     int
	OverallSentiment      float64
	OverallSignalStrength float64
	Confidence            float64
	GeneratedAt           *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Entities         int
	Aliases          int
	TotalArticles    int
	LiveArticles     int
	PendingTriage    int
	PendingAnalysis  int
	ExtractionEvents int
	Snapshots        int
	Verdicts         int
	FeatureRows      int
}
