// Package models defines the domain entities of the GOI service.
// These models represent per-game team stat records, aggregation windows and
// slate games. All models include built-in validation so bad rows are rejected
// at the store boundary instead of corrupting downstream scores.
//
// Terminology:
//   - GameRecord: one team's raw counters for one completed game.
//   - Window: the set of games a rate statistic is computed over.
//   - Slate: the games scheduled for one date that are ranked together.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Side is the venue side of a team in a game.
type Side string

const (
	Home Side = "home"
	Away Side = "away"
)

// DateLayout is the calendar-date format used in files and the store.
const DateLayout = "2006-01-02"

// GameRecord holds one team's raw counters for one completed game.
// There is exactly one record per (GameID, Team); re-ingesting a game
// replaces its records.
type GameRecord struct {
	GameID   string    `json:"game_id" yaml:"game_id"`
	Date     time.Time `json:"date" yaml:"-"`
	Team     string    `json:"team" yaml:"team"`
	Opponent string    `json:"opponent" yaml:"opponent"`
	Side     Side      `json:"side" yaml:"side"`

	CorsiFor               int     `json:"corsi_for" yaml:"corsi_for"`
	CorsiAgainst           int     `json:"corsi_against" yaml:"corsi_against"`
	ScoringChancesFor      int     `json:"scoring_chances_for" yaml:"scoring_chances_for"`
	ScoringChancesAgainst  int     `json:"scoring_chances_against" yaml:"scoring_chances_against"`
	HighDangerFor          int     `json:"high_danger_for" yaml:"high_danger_for"`
	HighDangerAgainst      int     `json:"high_danger_against" yaml:"high_danger_against"`
	HighDangerOnNetFor     int     `json:"high_danger_on_net_for" yaml:"high_danger_on_net_for"`
	HighDangerOnNetAgainst int     `json:"high_danger_on_net_against" yaml:"high_danger_on_net_against"`
	XGFor                  float64 `json:"xg_for" yaml:"xg_for"`
	XGAgainst              float64 `json:"xg_against" yaml:"xg_against"`
	PPGoals                int     `json:"pp_goals" yaml:"pp_goals"`
	PPOpportunities        int     `json:"pp_opportunities" yaml:"pp_opportunities"`
	PPGoalsAgainst         int     `json:"pp_goals_against" yaml:"pp_goals_against"`
	PPOpportunitiesAgainst int     `json:"pp_opportunities_against" yaml:"pp_opportunities_against"`
	FaceoffWins            int     `json:"faceoff_wins" yaml:"faceoff_wins"`
	FaceoffLosses          int     `json:"faceoff_losses" yaml:"faceoff_losses"`
	PenaltiesTaken         int     `json:"penalties_taken" yaml:"penalties_taken"`
	PenaltiesDrawn         int     `json:"penalties_drawn" yaml:"penalties_drawn"`
	TOISeconds             int     `json:"toi_seconds" yaml:"toi_seconds"`
}

// Validate checks that all record fields are valid.
func (r *GameRecord) Validate() error {
	if r.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if r.Team == "" {
		return errors.New("team must not be empty")
	}
	if r.Opponent == "" {
		return errors.New("opponent must not be empty")
	}
	if r.Team == r.Opponent {
		return errors.New("team and opponent must differ")
	}
	if r.Date.IsZero() {
		return errors.New("date must be set")
	}
	if r.Side != Home && r.Side != Away {
		return fmt.Errorf("side must be %q or %q, got %q", Home, Away, r.Side)
	}

	counters := []struct {
		name  string
		value int
	}{
		{"corsi_for", r.CorsiFor},
		{"corsi_against", r.CorsiAgainst},
		{"scoring_chances_for", r.ScoringChancesFor},
		{"scoring_chances_against", r.ScoringChancesAgainst},
		{"high_danger_for", r.HighDangerFor},
		{"high_danger_against", r.HighDangerAgainst},
		{"high_danger_on_net_for", r.HighDangerOnNetFor},
		{"high_danger_on_net_against", r.HighDangerOnNetAgainst},
		{"pp_goals", r.PPGoals},
		{"pp_opportunities", r.PPOpportunities},
		{"pp_goals_against", r.PPGoalsAgainst},
		{"pp_opportunities_against", r.PPOpportunitiesAgainst},
		{"faceoff_wins", r.FaceoffWins},
		{"faceoff_losses", r.FaceoffLosses},
		{"penalties_taken", r.PenaltiesTaken},
		{"penalties_drawn", r.PenaltiesDrawn},
		{"toi_seconds", r.TOISeconds},
	}
	for _, c := range counters {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative", c.name)
		}
	}
	if r.XGFor < 0 || r.XGAgainst < 0 {
		return errors.New("expected goals must not be negative")
	}
	if r.PPGoals > r.PPOpportunities {
		return errors.New("pp goals must be <= pp opportunities")
	}
	if r.PPGoalsAgainst > r.PPOpportunitiesAgainst {
		return errors.New("pp goals against must be <= pp opportunities against")
	}
	if r.HighDangerOnNetFor > r.HighDangerFor || r.HighDangerOnNetAgainst > r.HighDangerAgainst {
		return errors.New("high-danger on-net counts must not exceed high-danger counts")
	}
	return nil
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date as a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
