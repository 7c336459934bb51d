// Package storage persists per-game team records and serves them back by
// aggregation window.
//
// Two implementations share the same read surface: Store, backed by SQLite,
// and MemoryStore, an in-memory map with optional JSON snapshot persistence.
// Both validate every record before writing and bump a snapshot version on
// each successful write so callers can cache derived values per version.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/goi/internal/models"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// columns lists the team_game_stats columns in scan and insert order.
var columns = []string{
	"game_id", "game_date", "team", "opponent", "side",
	"corsi_for", "corsi_against",
	"scoring_chances_for", "scoring_chances_against",
	"high_danger_for", "high_danger_against",
	"high_danger_on_net_for", "high_danger_on_net_against",
	"xg_for", "xg_against",
	"pp_goals", "pp_opportunities", "pp_goals_against", "pp_opportunities_against",
	"faceoff_wins", "faceoff_losses",
	"penalties_taken", "penalties_drawn",
	"toi_seconds",
}

// Store is the SQLite raw stat store. One row per (game_id, team).
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		dsn += "&_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers and keeps an in-memory
	// database alive for the lifetime of the Store.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS team_game_stats (
			game_id                    TEXT    NOT NULL,
			game_date                  TEXT    NOT NULL,
			team                       TEXT    NOT NULL,
			opponent                   TEXT    NOT NULL,
			side                       TEXT    NOT NULL,

			corsi_for                  INTEGER NOT NULL DEFAULT 0,
			corsi_against              INTEGER NOT NULL DEFAULT 0,
			scoring_chances_for        INTEGER NOT NULL DEFAULT 0,
			scoring_chances_against    INTEGER NOT NULL DEFAULT 0,
			high_danger_for            INTEGER NOT NULL DEFAULT 0,
			high_danger_against        INTEGER NOT NULL DEFAULT 0,
			high_danger_on_net_for     INTEGER NOT NULL DEFAULT 0,
			high_danger_on_net_against INTEGER NOT NULL DEFAULT 0,
			xg_for                     REAL    NOT NULL DEFAULT 0,
			xg_against                 REAL    NOT NULL DEFAULT 0,
			pp_goals                   INTEGER NOT NULL DEFAULT 0,
			pp_opportunities           INTEGER NOT NULL DEFAULT 0,
			pp_goals_against           INTEGER NOT NULL DEFAULT 0,
			pp_opportunities_against   INTEGER NOT NULL DEFAULT 0,
			faceoff_wins               INTEGER NOT NULL DEFAULT 0,
			faceoff_losses             INTEGER NOT NULL DEFAULT 0,
			penalties_taken            INTEGER NOT NULL DEFAULT 0,
			penalties_drawn            INTEGER NOT NULL DEFAULT 0,
			toi_seconds                INTEGER NOT NULL DEFAULT 0,

			updated_at                 TEXT    NOT NULL,
			UNIQUE (game_id, team)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tgs_team_date ON team_game_stats(team, game_date)`,
		`CREATE INDEX IF NOT EXISTS idx_tgs_date ON team_game_stats(game_date)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('snapshot_version', 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertRecords validates and writes records in one transaction, replacing
// any existing row with the same (game_id, team). Nothing is written when
// any record is invalid. It returns the number of rows written.
func (s *Store) UpsertRecords(ctx context.Context, records []models.GameRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d (%s/%s): %w", i, records[i].GameID, records[i].Team, err)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		args := append(recordArgs(r), now)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("upsert %s/%s: %w", r.GameID, r.Team, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE meta SET value = value + 1 WHERE key = 'snapshot_version'`); err != nil {
		return 0, fmt.Errorf("bump snapshot version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(records), nil
}

// SnapshotVersion returns a counter that changes after every write.
func (s *Store) SnapshotVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'snapshot_version'`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read snapshot version: %w", err)
	}
	return v, nil
}

// Teams returns every team with at least one stored game, sorted.
func (s *Store) Teams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT team FROM team_game_stats ORDER BY team`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// FetchRecords returns one team's records inside the window, most recent first.
func (s *Store) FetchRecords(ctx context.Context, team string, w models.Window) ([]models.GameRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	where, args := dateBounds(w)
	where = append(where, "team = ?")
	args = append(args, team)

	records, err := s.query(ctx, where, args)
	if err != nil {
		return nil, err
	}
	return w.Select(team, records), nil
}

// FetchLeagueRecords returns every team's records inside the window. For
// LastN windows each team contributes its own N most recent games.
func (s *Store) FetchLeagueRecords(ctx context.Context, w models.Window) ([]models.GameRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	where, args := dateBounds(w)
	records, err := s.query(ctx, where, args)
	if err != nil {
		return nil, err
	}
	return selectLeague(w, records), nil
}

func (s *Store) query(ctx context.Context, where []string, args []any) ([]models.GameRecord, error) {
	q := "SELECT " + strings.Join(columns, ", ") + " FROM team_game_stats"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY game_date DESC, game_id DESC, team ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func upsertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)+1), ",")
	updates := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "game_id" || c == "team" {
			continue
		}
		updates = append(updates, c+" = excluded."+c)
	}
	updates = append(updates, "updated_at = excluded.updated_at")

	return "INSERT INTO team_game_stats (" + strings.Join(columns, ", ") + ", updated_at) VALUES (" +
		placeholders + ") ON CONFLICT (game_id, team) DO UPDATE SET " + strings.Join(updates, ", ")
}

func recordArgs(r models.GameRecord) []any {
	return []any{
		r.GameID, models.Day(r.Date).Format(models.DateLayout), r.Team, r.Opponent, string(r.Side),
		r.CorsiFor, r.CorsiAgainst,
		r.ScoringChancesFor, r.ScoringChancesAgainst,
		r.HighDangerFor, r.HighDangerAgainst,
		r.HighDangerOnNetFor, r.HighDangerOnNetAgainst,
		r.XGFor, r.XGAgainst,
		r.PPGoals, r.PPOpportunities, r.PPGoalsAgainst, r.PPOpportunitiesAgainst,
		r.FaceoffWins, r.FaceoffLosses,
		r.PenaltiesTaken, r.PenaltiesDrawn,
		r.TOISeconds,
	}
}

func scanRecord(rows *sql.Rows) (models.GameRecord, error) {
	var (
		r    models.GameRecord
		date string
		side string
	)
	err := rows.Scan(
		&r.GameID, &date, &r.Team, &r.Opponent, &side,
		&r.CorsiFor, &r.CorsiAgainst,
		&r.ScoringChancesFor, &r.ScoringChancesAgainst,
		&r.HighDangerFor, &r.HighDangerAgainst,
		&r.HighDangerOnNetFor, &r.HighDangerOnNetAgainst,
		&r.XGFor, &r.XGAgainst,
		&r.PPGoals, &r.PPOpportunities, &r.PPGoalsAgainst, &r.PPOpportunitiesAgainst,
		&r.FaceoffWins, &r.FaceoffLosses,
		&r.PenaltiesTaken, &r.PenaltiesDrawn,
		&r.TOISeconds,
	)
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("scan record: %w", err)
	}
	r.Date, err = models.ParseDay(date)
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("record %s/%s: %w", r.GameID, r.Team, err)
	}
	r.Side = models.Side(side)
	return r, nil
}

// dateBounds translates a window's date limits into WHERE clauses. Dates are
// stored as YYYY-MM-DD so string comparison orders them correctly.
func dateBounds(w models.Window) ([]string, []any) {
	day := func(t time.Time) string { return models.Day(t).Format(models.DateLayout) }
	switch w.Kind {
	case models.Season:
		if w.Through.IsZero() {
			return nil, nil
		}
		return []string{"game_date <= ?"}, []any{day(w.Through)}
	case models.LastN:
		return []string{"game_date <= ?"}, []any{day(w.AsOf)}
	case models.DateRange:
		return []string{"game_date >= ?", "game_date <= ?"}, []any{day(w.Start), day(w.End)}
	}
	return nil, nil
}

// selectLeague applies the window to every team separately and returns the
// union, most recent first.
func selectLeague(w models.Window, records []models.GameRecord) []models.GameRecord {
	byTeam := make(map[string][]models.GameRecord)
	for _, r := range records {
		byTeam[r.Team] = append(byTeam[r.Team], r)
	}
	teams := make([]string, 0, len(byTeam))
	for team := range byTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	out := make([]models.GameRecord, 0, len(records))
	for _, team := range teams {
		out = append(out, w.Select(team, byTeam[team])...)
	}
	models.SortRecentFirst(out)
	return out
}
