package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    domain TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    external_id TEXT,
    attributes TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE(domain, entity_type, canonical_name)
);

CREATE TABLE IF NOT EXISTS entity_aliases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    alias TEXT NOT NULL,
    source TEXT DEFAULT 'manual',
    confidence REAL DEFAULT 1.0,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE(entity_id, alias)
);

CREATE TABLE IF NOT EXISTS dimensions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    tier INTEGER DEFAULT 1,
    description TEXT,
    prompt_guidance TEXT,
    is_active INTEGER DEFAULT 1
);

CREATE TABLE IF NOT EXISTS rounds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    number INTEGER UNIQUE NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_hash TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    source TEXT,
    published_at TEXT,
    triage_status TEXT NOT NULL DEFAULT 'pending',
    analysis_status TEXT NOT NULL DEFAULT 'pending',
    indexed_at TEXT,
    scraped_at TEXT NOT NULL DEFAULT (datetime('now')),
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS article_tags (
    article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    tag_type TEXT NOT NULL,
    tag_value TEXT NOT NULL,
    entity_id INTEGER REFERENCES entities(id),
    dimension_id INTEGER REFERENCES dimensions(id),
    match_text TEXT,
    match_count INTEGER DEFAULT 1,
    is_headline INTEGER DEFAULT 0,
    PRIMARY KEY (article_id, tag_type, tag_value)
);

CREATE TABLE IF NOT EXISTS article_entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    entity_id INTEGER REFERENCES entities(id),
    entity_name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    mention_count INTEGER DEFAULT 0,
    is_primary_subject INTEGER DEFAULT 0,
    mention_context TEXT DEFAULT 'general',
    needs_deep_analysis INTEGER DEFAULT 0,
    analysis_completed INTEGER DEFAULT 0,
    UNIQUE(article_id, entity_name)
);

CREATE TABLE IF NOT EXISTS extraction_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    domain TEXT NOT NULL,
    schema_type TEXT NOT NULL,
    article_hash TEXT UNIQUE NOT NULL,
    headline TEXT,
    source TEXT,
    source_url TEXT,
    extracted_data TEXT NOT NULL,
    entities_mentioned TEXT,
    confidence REAL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS weekly_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL REFERENCES entities(id),
    dimension_id INTEGER NOT NULL REFERENCES dimensions(id),
    round_id INTEGER NOT NULL REFERENCES rounds(id),
    summary TEXT NOT NULL,
    sentiment TEXT NOT NULL,
    signal_strength TEXT NOT NULL,
    fantasy_impact TEXT,
    ml_features TEXT,
    confidence REAL DEFAULT 0.5,
    article_count INTEGER DEFAULT 0,
    source_article_ids TEXT,
    generated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(entity_id, dimension_id, round_id)
);

CREATE TABLE IF NOT EXISTS rolling_profiles (
    entity_id INTEGER NOT NULL REFERENCES entities(id),
    dimension_id INTEGER NOT NULL REFERENCES dimensions(id),
    narrative TEXT NOT NULL,
    trend TEXT NOT NULL,
    trend_confidence REAL DEFAULT 0.5,
    weeks_covered INTEGER DEFAULT 0,
    last_round_id INTEGER REFERENCES rounds(id),
    aggregated_features TEXT,
    updated_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (entity_id, dimension_id)
);

CREATE TABLE IF NOT EXISTS weekly_verdicts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL REFERENCES entities(id),
    round_id INTEGER NOT NULL REFERENCES rounds(id),
    captain_rating INTEGER DEFAULT 50,
    captain_reasoning TEXT,
    risk_level TEXT DEFAULT 'medium',
    risk_factors TEXT,
    trade_signal TEXT DEFAULT 'hold',
    trade_reasoning TEXT,
    verdict_features TEXT,
    confidence REAL DEFAULT 0.5,
    generated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(entity_id, round_id)
);

CREATE TABLE IF NOT EXISTS ml_weekly_features (
    entity_id INTEGER NOT NULL REFERENCES entities(id),
    round_id INTEGER NOT NULL REFERENCES rounds(id),
    dimension_features TEXT NOT NULL,
    captain_rating INTEGER,
    risk_level TEXT,
    trade_signal TEXT,
    injury_risk_score REAL,
    form_score REAL,
    selection_certainty REAL,
    upside_potential REAL,
    floor_safety REAL,
    total_article_count INTEGER DEFAULT 0,
    overall_sentiment REAL,
    overall_signal_strength REAL,
    confidence REAL,
    generated_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (entity_id, round_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_url_hash ON articles(url_hash);
CREATE INDEX IF NOT EXISTS idx_articles_triage ON articles(triage_status);
CREATE INDEX IF NOT EXISTS idx_articles_indexed ON articles(indexed_at);
CREATE INDEX IF NOT EXISTS idx_aliases_entity ON entity_aliases(entity_id);
CREATE INDEX IF NOT EXISTS idx_tags_entity ON article_tags(entity_id);
CREATE INDEX IF NOT EXISTS idx_tags_dimension ON article_tags(dimension_id);
CREATE INDEX IF NOT EXISTS idx_mentions_pending ON article_entities(needs_deep_analysis, analysis_completed);
CREATE INDEX IF NOT EXISTS idx_snapshots_round ON weekly_snapshots(round_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_round ON weekly_verdicts(round_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "seed analysis dimensions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
INSERT OR IGNORE INTO dimensions (code, name, tier, description, prompt_guidance) VALUES
('injury_status', 'Injury Status', 1, 'Current injuries and availability', 'Focus on injury type, severity, and expected return timeline. Distinguish confirmed injuries from speculation.'),
('fitness_health', 'Fitness & Health', 1, 'Recovery progress and general fitness', 'Focus on recovery milestones, training loads, and fitness test outcomes.'),
('selection_security', 'Selection Security', 1, 'Likelihood of being named in the side', 'Focus on team selection news, omissions, recalls, and coach comments on selection.'),
('role_change', 'Role Change', 2, 'Positional or role shifts within the side', 'Focus on positional moves, midfield time, and role-related coach commentary.'),
('form_trajectory', 'Form Trajectory', 1, 'Recent on-field output and scoring form', 'Focus on statistical output, disposal counts, and descriptions of recent performances.'),
('captaincy_potential', 'Captaincy Potential', 2, 'Suitability as a fantasy captain pick', 'Focus on ceiling games, favourable matchups, and consistency signals.'),
('load_management', 'Load Management', 3, 'Rest, rotation, and managed minutes', 'Focus on planned rests, substitutions, and managed game time.'),
('coaching_sentiment', 'Coaching Sentiment', 3, 'Coach and club commentary about the player', 'Focus on direct quotes from coaches and club officials about the player.');
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
