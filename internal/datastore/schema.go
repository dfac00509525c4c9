package datastore

import "fmt"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
	dialectDuckDB
)

func (d dialect) String() string {
	switch d {
	case dialectPostgres:
		return "postgres"
	case dialectDuckDB:
		return "duckdb"
	default:
		return "sqlite"
	}
}

func (d dialect) floatType() string {
	switch d {
	case dialectPostgres:
		return "DOUBLE PRECISION"
	case dialectDuckDB:
		return "DOUBLE"
	default:
		return "REAL"
	}
}

// schema returns the DDL statements for d, executed one at a time.
// created_at is unix milliseconds.
func schema(d dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS walkthroughs (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			author          TEXT NOT NULL DEFAULT '',
			course_id       TEXT NOT NULL DEFAULT '',
			chapter_id      TEXT NOT NULL DEFAULT '',
			lesson_id       TEXT NOT NULL DEFAULT '',
			audio_key       TEXT NOT NULL,
			audio_mime_type TEXT NOT NULL,
			audio_file_name TEXT NOT NULL DEFAULT '',
			duration_ms     BIGINT NOT NULL DEFAULT 0,
			created_at      BIGINT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS walkthrough_steps (
			walkthrough_id TEXT NOT NULL,
			seq            INTEGER NOT NULL,
			code           TEXT NOT NULL,
			ts_seconds     %s NOT NULL,
			PRIMARY KEY (walkthrough_id, seq)
		)`, d.floatType()),
		`CREATE INDEX IF NOT EXISTS idx_walkthroughs_created ON walkthroughs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_walkthroughs_course ON walkthroughs (course_id, chapter_id, lesson_id)`,
	}
}
