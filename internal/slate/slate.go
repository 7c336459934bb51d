// Package slate turns the power indexes of both sides of each scheduled game
// into a matchup priority and orders a day's games by how lopsided they are.
package slate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/goi/internal/scoring"
	"github.com/rewired-gh/goi/internal/stat"
)

// SideInput is everything known about one team ahead of a game.
// SeasonRates only feeds the stack recommendation and may be nil.
type SideInput struct {
	Team              string
	Season            scoring.AdjustedIndex
	Recent            scoring.AdjustedIndex
	PlayedPreviousDay bool
	SeasonRates       map[stat.Name]stat.Value
}

// GameInput is one scheduled game.
type GameInput struct {
	GameID string
	Date   time.Time
	Home   SideInput
	Away   SideInput
}

// SideScore breaks down one side's priority.
type SideScore struct {
	Team     string     `json:"team"`
	Season   stat.Value `json:"season"`
	Recent   stat.Value `json:"recent"`
	Venue    float64    `json:"venue"`
	Rest     float64    `json:"rest"`
	Mismatch float64    `json:"mismatch"`
	Priority float64    `json:"priority"`
}

// Context is the sum of the situational adjustments.
func (s SideScore) Context() float64 {
	return s.Venue + s.Rest + s.Mismatch
}

// MatchupPriority is one ranked game. Deltas are home minus away.
type MatchupPriority struct {
	Rank           int        `json:"rank"`
	GameID         string     `json:"game_id"`
	Date           time.Time  `json:"date"`
	Home           SideScore  `json:"home"`
	Away           SideScore  `json:"away"`
	SeasonDelta    stat.Value `json:"season_delta"`
	RecentDelta    stat.Value `json:"recent_delta"`
	PriorityDiff   float64    `json:"priority_diff"`
	Combined       float64    `json:"combined"`
	Recommendation string     `json:"recommendation"`
}

// Favoured returns the side with the higher priority, home on a tie.
func (m MatchupPriority) Favoured() SideScore {
	if m.Away.Priority > m.Home.Priority {
		return m.Away
	}
	return m.Home
}

// ExclusionSide names which part of a game caused its exclusion.
type ExclusionSide string

const (
	ExcludedHome  ExclusionSide = "home"
	ExcludedAway  ExclusionSide = "away"
	ExcludedInput ExclusionSide = "input"
)

// Exclusion records a game left out of the ranking and why.
type Exclusion struct {
	GameID    string        `json:"game_id"`
	Home      string        `json:"home"`
	Away      string        `json:"away"`
	HomeGames int           `json:"home_games"`
	AwayGames int           `json:"away_games"`
	Side      ExclusionSide `json:"side"`
	Reason    string        `json:"reason"`
}

func (e Exclusion) Error() string {
	return fmt.Sprintf("game %s (%s vs %s) excluded: %s", e.GameID, e.Away, e.Home, e.Reason)
}

// Result is one ranking run.
type Result struct {
	RunID    string            `json:"run_id"`
	Date     time.Time         `json:"date"`
	Ranked   []MatchupPriority `json:"ranked"`
	Excluded []Exclusion       `json:"excluded"`
}

type options struct {
	runID string
	date  time.Time
}

// Option configures a ranking run.
type Option func(*options)

// WithRunID sets the run id instead of generating one, so replays of the same
// input produce identical output.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithSlateDate fixes the slate date. Games dated on another day are
// excluded, since their sides were measured against this date.
func WithSlateDate(date time.Time) Option {
	return func(o *options) { o.date = date }
}

// Rank scores every game and orders the rankable ones by absolute priority
// difference, then combined priority, then game id. Games with a side lacking
// season data are returned in Excluded instead.
func Rank(games []GameInput, cfg scoring.Config, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	res := Result{
		RunID:    o.runID,
		Date:     o.date,
		Ranked:   make([]MatchupPriority, 0, len(games)),
		Excluded: make([]Exclusion, 0),
	}
	if res.Date.IsZero() && len(games) > 0 {
		res.Date = games[0].Date
	}

	seen := make(map[string]bool, len(games))
	for _, g := range games {
		side, reason := excludeReason(g, o.date, seen)
		if g.GameID != "" {
			seen[g.GameID] = true
		}
		if reason != "" {
			res.Excluded = append(res.Excluded, Exclusion{
				GameID:    g.GameID,
				Home:      g.Home.Team,
				Away:      g.Away.Team,
				HomeGames: g.Home.Season.Games,
				AwayGames: g.Away.Season.Games,
				Side:      side,
				Reason:    reason,
			})
			continue
		}
		res.Ranked = append(res.Ranked, score(g, cfg))
	}

	sort.SliceStable(res.Ranked, func(i, j int) bool {
		a, b := res.Ranked[i], res.Ranked[j]
		if a.PriorityDiff != b.PriorityDiff {
			return a.PriorityDiff > b.PriorityDiff
		}
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		return a.GameID < b.GameID
	})
	for i := range res.Ranked {
		res.Ranked[i].Rank = i + 1
	}

	sort.SliceStable(res.Excluded, func(i, j int) bool {
		return res.Excluded[i].GameID < res.Excluded[j].GameID
	})
	return res
}

func excludeReason(g GameInput, date time.Time, seen map[string]bool) (ExclusionSide, string) {
	switch {
	case g.GameID == "":
		return ExcludedInput, "missing game id"
	case g.Home.Team == "" || g.Away.Team == "":
		return ExcludedInput, "missing team"
	case g.Home.Team == g.Away.Team:
		return ExcludedInput, "home and away are the same team"
	case seen[g.GameID]:
		return ExcludedInput, "duplicate game id"
	case !date.IsZero() && !g.Date.IsZero() && !sameDay(g.Date, date):
		return ExcludedInput, fmt.Sprintf("game date %s differs from slate date %s",
			g.Date.Format(time.DateOnly), date.Format(time.DateOnly))
	}
	for _, side := range []struct {
		label ExclusionSide
		in    SideInput
	}{{ExcludedHome, g.Home}, {ExcludedAway, g.Away}} {
		if side.in.Season.Games == 0 {
			return side.label, fmt.Sprintf("%s team %s has no games in the season window", side.label, side.in.Team)
		}
		if !side.in.Season.Adjusted.Defined() {
			return side.label, fmt.Sprintf("%s team %s has no defined season index", side.label, side.in.Team)
		}
	}
	return "", ""
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func score(g GameInput, cfg scoring.Config) MatchupPriority {
	home := sideScore(g.Home, g.Away, true, cfg)
	away := sideScore(g.Away, g.Home, false, cfg)

	m := MatchupPriority{
		GameID:       g.GameID,
		Date:         g.Date,
		Home:         home,
		Away:         away,
		SeasonDelta:  delta(home.Season, away.Season),
		RecentDelta:  delta(home.Recent, away.Recent),
		PriorityDiff: math.Abs(home.Priority - away.Priority),
		Combined:     home.Priority + away.Priority,
	}
	m.Recommendation = recommend(g, m, cfg)
	return m
}

func sideScore(self, opp SideInput, isHome bool, cfg scoring.Config) SideScore {
	s := SideScore{
		Team:   self.Team,
		Season: self.Season.Adjusted,
		Recent: self.Recent.Adjusted,
	}
	if isHome {
		s.Venue = cfg.VenueBonus
	}
	if self.PlayedPreviousDay {
		s.Rest = -cfg.RestPenalty
	}
	s.Mismatch = mismatch(opp.Season.Bucket(scoring.DefenseResistance), cfg)

	w := cfg.Priority
	season, _ := s.Season.Get()
	if recent, ok := s.Recent.Get(); ok {
		s.Priority = w.Season*season + w.Recent*recent
	} else {
		s.Priority = (w.Season + w.Recent) * season
	}
	s.Priority += w.Context * s.Context()
	return s
}

func mismatch(oppDefense stat.Value, cfg scoring.Config) float64 {
	z, ok := oppDefense.Get()
	switch {
	case !ok:
		return 0
	case z < cfg.VeryWeakThreshold:
		return cfg.MismatchBonusVeryWeak
	case z < cfg.WeakThreshold:
		return cfg.MismatchBonusWeak
	}
	return 0
}

func delta(a, b stat.Value) stat.Value {
	x, ok1 := a.Get()
	y, ok2 := b.Get()
	if !ok1 || !ok2 {
		return stat.Undefined
	}
	return stat.Of(x - y)
}

// highEventShare is the high-danger share both sides must exceed for a game
// to be flagged as high-event.
const highEventShare = 55.0

func recommend(g GameInput, m MatchupPriority, cfg scoring.Config) string {
	var recs []string

	diff := m.Home.Priority - m.Away.Priority
	switch {
	case diff > cfg.StackThreshold:
		recs = append(recs, fmt.Sprintf("Stack %s (+%.2f)", g.Home.Team, diff))
	case -diff > cfg.StackThreshold:
		recs = append(recs, fmt.Sprintf("Stack %s (+%.2f)", g.Away.Team, -diff))
	}

	if edge, ok := specialTeamsEdge(g.Home.SeasonRates, g.Away.SeasonRates); ok {
		switch {
		case edge > cfg.PPMismatch:
			recs = append(recs, fmt.Sprintf("%s special teams edge (+%.1f)", g.Home.Team, edge))
		case -edge > cfg.PPMismatch:
			recs = append(recs, fmt.Sprintf("%s special teams edge (+%.1f)", g.Away.Team, -edge))
		}
	}

	homeHD, ok1 := g.Home.SeasonRates[stat.HighDangerPct].Get()
	awayHD, ok2 := g.Away.SeasonRates[stat.HighDangerPct].Get()
	if ok1 && ok2 && homeHD > highEventShare && awayHD > highEventShare {
		recs = append(recs, "High-event game")
	}

	if len(recs) == 0 {
		return "Monitor"
	}
	return strings.Join(recs, " | ")
}

// specialTeamsEdge is (home pp% - away pp%) + (home pk% - away pk%).
func specialTeamsEdge(home, away map[stat.Name]stat.Value) (float64, bool) {
	var edge float64
	for _, name := range []stat.Name{stat.PowerPlayPct, stat.PenaltyKillPct} {
		h, ok1 := home[name].Get()
		a, ok2 := away[name].Get()
		if !ok1 || !ok2 {
			return 0, false
		}
		edge += h - a
	}
	return edge, true
}
