// Package aggregate turns per-game team records into windowed rate statistics.
//
// Counters are always summed across the selected games first and rates are
// derived from the sums. Averaging per-game rates would weight a 10-attempt
// game the same as a 90-attempt game.
//
// A window with no games yields Games == 0 and every rate undefined, which is
// distinct from a team that genuinely posted a 0% rate.
package aggregate

import (
	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/stat"
)

// Totals holds raw counters summed over a window.
type Totals struct {
	CorsiFor               int
	CorsiAgainst           int
	ScoringChancesFor      int
	ScoringChancesAgainst  int
	HighDangerFor          int
	HighDangerAgainst      int
	HighDangerOnNetFor     int
	HighDangerOnNetAgainst int
	XGFor                  float64
	XGAgainst              float64
	PPGoals                int
	PPOpportunities        int
	PPGoalsAgainst         int
	PPOpportunitiesAgainst int
	FaceoffWins            int
	FaceoffLosses          int
	PenaltiesTaken         int
	PenaltiesDrawn         int
	TOISeconds             int
}

// Add accumulates one game's counters.
func (t *Totals) Add(r models.GameRecord) {
	t.CorsiFor += r.CorsiFor
	t.CorsiAgainst += r.CorsiAgainst
	t.ScoringChancesFor += r.ScoringChancesFor
	t.ScoringChancesAgainst += r.ScoringChancesAgainst
	t.HighDangerFor += r.HighDangerFor
	t.HighDangerAgainst += r.HighDangerAgainst
	t.HighDangerOnNetFor += r.HighDangerOnNetFor
	t.HighDangerOnNetAgainst += r.HighDangerOnNetAgainst
	t.XGFor += r.XGFor
	t.XGAgainst += r.XGAgainst
	t.PPGoals += r.PPGoals
	t.PPOpportunities += r.PPOpportunities
	t.PPGoalsAgainst += r.PPGoalsAgainst
	t.PPOpportunitiesAgainst += r.PPOpportunitiesAgainst
	t.FaceoffWins += r.FaceoffWins
	t.FaceoffLosses += r.FaceoffLosses
	t.PenaltiesTaken += r.PenaltiesTaken
	t.PenaltiesDrawn += r.PenaltiesDrawn
	t.TOISeconds += r.TOISeconds
}

// WindowedStats is one team's aggregate over a window.
type WindowedStats struct {
	Team   string
	Window models.Window
	Games  int
	Totals Totals
	Rates  map[stat.Name]stat.Value
}

// Rate returns a rate statistic, undefined when absent.
func (ws WindowedStats) Rate(name stat.Name) stat.Value {
	return ws.Rates[name]
}

// XGPerGame returns a copy of ws with xgf and xga divided by games played,
// so teams with different schedule counts compare on the same scale.
func (ws WindowedStats) XGPerGame() WindowedStats {
	out := ws
	out.Rates = make(map[stat.Name]stat.Value, len(ws.Rates))
	for name, v := range ws.Rates {
		out.Rates[name] = v
	}
	if ws.Games > 0 {
		out.Rates[stat.XGFor] = ws.Rates[stat.XGFor].Scale(1 / float64(ws.Games))
		out.Rates[stat.XGAgainst] = ws.Rates[stat.XGAgainst].Scale(1 / float64(ws.Games))
	}
	return out
}

// Aggregate computes a team's WindowedStats from records. Records belonging
// to other teams or outside the window are ignored, so callers may pass a
// league-wide batch.
func Aggregate(team string, window models.Window, records []models.GameRecord) WindowedStats {
	selected := window.Select(team, records)

	ws := WindowedStats{
		Team:   team,
		Window: window,
		Games:  len(selected),
	}
	for _, r := range selected {
		ws.Totals.Add(r)
	}
	ws.Rates = Rates(ws.Totals, ws.Games)
	return ws
}

// Rates derives every rate statistic from summed counters. With games == 0
// every rate is undefined.
func Rates(t Totals, games int) map[stat.Name]stat.Value {
	rates := make(map[stat.Name]stat.Value, len(stat.All))
	if games == 0 {
		for _, name := range stat.All {
			rates[name] = stat.Undefined
		}
		return rates
	}

	rates[stat.CorsiPct] = stat.Share(float64(t.CorsiFor), float64(t.CorsiAgainst))
	rates[stat.ScoringChancePct] = stat.Share(float64(t.ScoringChancesFor), float64(t.ScoringChancesAgainst))
	rates[stat.HighDangerPct] = stat.Share(float64(t.HighDangerFor), float64(t.HighDangerAgainst))
	rates[stat.HighDangerOnNetPct] = stat.Share(float64(t.HighDangerOnNetFor), float64(t.HighDangerOnNetAgainst))
	rates[stat.XGPct] = stat.Share(t.XGFor, t.XGAgainst)
	rates[stat.FaceoffPct] = stat.Share(float64(t.FaceoffWins), float64(t.FaceoffLosses))

	rates[stat.XGFor] = stat.Of(t.XGFor)
	rates[stat.XGAgainst] = stat.Of(t.XGAgainst)

	rates[stat.PowerPlayPct] = stat.Ratio(float64(t.PPGoals), float64(t.PPOpportunities)).Scale(100)
	rates[stat.PenaltyKillPct] = stat.Ratio(
		float64(t.PPOpportunitiesAgainst-t.PPGoalsAgainst),
		float64(t.PPOpportunitiesAgainst),
	).Scale(100)

	rates[stat.PenTakenPer60] = per60(float64(t.PenaltiesTaken), t.TOISeconds)
	rates[stat.PenDrawnPer60] = per60(float64(t.PenaltiesDrawn), t.TOISeconds)
	rates[stat.NetPenPer60] = per60(float64(t.PenaltiesDrawn-t.PenaltiesTaken), t.TOISeconds)

	return rates
}

// per60 returns count / (toiSeconds/60) × 60.
func per60(count float64, toiSeconds int) stat.Value {
	minutes := float64(toiSeconds) / 60
	return stat.Ratio(count, minutes).Scale(60)
}
