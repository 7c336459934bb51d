package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/stat"
)

func day(s string) time.Time {
	t, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(team, gameID, date string, cf, ca int) models.GameRecord {
	return models.GameRecord{
		GameID:       gameID,
		Date:         day(date),
		Team:         team,
		Opponent:     "OPP",
		Side:         models.Home,
		CorsiFor:     cf,
		CorsiAgainst: ca,
		TOISeconds:   3600,
	}
}

func approx(t *testing.T, name string, v stat.Value, want float64) {
	t.Helper()
	got, ok := v.Get()
	if !ok {
		t.Fatalf("%s is undefined, want %f", name, want)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, want %f", name, got, want)
	}
}

func TestAggregate_SumsBeforeDividing(t *testing.T) {
	// 1 for / 0 against (100%) and 9 for / 90 against (~9.1%).
	// Averaging rates would give ~54.5%; the volume-weighted share is 10/100.
	records := []models.GameRecord{
		record("FLA", "g1", "2025-10-07", 1, 0),
		record("FLA", "g2", "2025-10-09", 9, 90),
	}

	ws := Aggregate("FLA", models.SeasonWindow(time.Time{}), records)
	if ws.Games != 2 {
		t.Fatalf("Games = %d, want 2", ws.Games)
	}
	approx(t, "cf_pct", ws.Rate(stat.CorsiPct), 10.0)

	// Combining the raw sums of two disjoint sub-windows gives the same rate.
	a := Aggregate("FLA", models.RangeWindow(day("2025-10-07"), day("2025-10-07")), records)
	b := Aggregate("FLA", models.RangeWindow(day("2025-10-08"), day("2025-10-09")), records)
	var combined Totals
	combined.CorsiFor = a.Totals.CorsiFor + b.Totals.CorsiFor
	combined.CorsiAgainst = a.Totals.CorsiAgainst + b.Totals.CorsiAgainst
	approx(t, "combined cf_pct", Rates(combined, 2)[stat.CorsiPct], 10.0)
}

func TestWindowedStats_XGPerGame(t *testing.T) {
	records := []models.GameRecord{
		record("FLA", "g1", "2025-10-07", 50, 50),
		record("FLA", "g2", "2025-10-09", 50, 50),
	}
	records[0].XGFor, records[0].XGAgainst = 2.5, 1.0
	records[1].XGFor, records[1].XGAgainst = 3.5, 2.0

	ws := Aggregate("FLA", models.SeasonWindow(time.Time{}), records)
	approx(t, "summed xgf", ws.Rate(stat.XGFor), 6.0)

	avg := ws.XGPerGame()
	approx(t, "xgf per game", avg.Rate(stat.XGFor), 3.0)
	approx(t, "xga per game", avg.Rate(stat.XGAgainst), 1.5)
	approx(t, "cf_pct untouched", avg.Rate(stat.CorsiPct), 50.0)
	approx(t, "original xgf untouched", ws.Rate(stat.XGFor), 6.0)

	empty := Aggregate("FLA", models.SeasonWindow(time.Time{}), nil).XGPerGame()
	if empty.Rate(stat.XGFor).Defined() {
		t.Error("xgf per game should stay undefined with no games")
	}
}

func TestAggregate_EmptyWindowIsUndefined(t *testing.T) {
	records := []models.GameRecord{record("FLA", "g1", "2025-10-07", 10, 10)}

	ws := Aggregate("CHI", models.SeasonWindow(time.Time{}), records)
	if ws.Games != 0 {
		t.Fatalf("Games = %d, want 0", ws.Games)
	}
	for _, name := range stat.All {
		if ws.Rate(name).Defined() {
			t.Errorf("%s should be undefined for an empty window, got %v", name, ws.Rate(name))
		}
	}
}

func TestAggregate_ZeroIsNotUndefined(t *testing.T) {
	r := record("FLA", "g1", "2025-10-07", 0, 25)
	ws := Aggregate("FLA", models.SeasonWindow(time.Time{}), []models.GameRecord{r})

	approx(t, "cf_pct", ws.Rate(stat.CorsiPct), 0)
	approx(t, "xgf", ws.Rate(stat.XGFor), 0)

	// No scoring chances either way: the share has no denominator.
	if ws.Rate(stat.ScoringChancePct).Defined() {
		t.Error("scf_pct with 0 for and 0 against should be undefined")
	}
	// No power plays: pp% is undefined, not 0%.
	if ws.Rate(stat.PowerPlayPct).Defined() {
		t.Error("pp_pct with no opportunities should be undefined")
	}
}

func TestAggregate_Per60AndSpecialTeams(t *testing.T) {
	r := models.GameRecord{
		GameID:                 "g1",
		Date:                   day("2025-10-07"),
		Team:                   "FLA",
		Opponent:               "CHI",
		Side:                   models.Away,
		PPGoals:                1,
		PPOpportunities:        4,
		PPGoalsAgainst:         1,
		PPOpportunitiesAgainst: 5,
		FaceoffWins:            30,
		FaceoffLosses:          20,
		PenaltiesTaken:         3,
		PenaltiesDrawn:         5,
		XGFor:                  2.5,
		XGAgainst:              1.5,
		TOISeconds:             1800,
	}
	ws := Aggregate("FLA", models.SeasonWindow(time.Time{}), []models.GameRecord{r})

	approx(t, "pp_pct", ws.Rate(stat.PowerPlayPct), 25)
	approx(t, "pk_pct", ws.Rate(stat.PenaltyKillPct), 80)
	approx(t, "fow_pct", ws.Rate(stat.FaceoffPct), 60)
	approx(t, "xgf_pct", ws.Rate(stat.XGPct), 62.5)
	approx(t, "xgf", ws.Rate(stat.XGFor), 2.5)
	approx(t, "xga", ws.Rate(stat.XGAgainst), 1.5)
	// 30 minutes of ice time: 3 taken → 6/60, 5 drawn → 10/60.
	approx(t, "pen_taken_60", ws.Rate(stat.PenTakenPer60), 6)
	approx(t, "pen_drawn_60", ws.Rate(stat.PenDrawnPer60), 10)
	approx(t, "net_pen_60", ws.Rate(stat.NetPenPer60), 4)
}

func TestAggregate_ZeroIceTime(t *testing.T) {
	r := record("FLA", "g1", "2025-10-07", 10, 10)
	r.TOISeconds = 0
	r.PenaltiesTaken = 2

	ws := Aggregate("FLA", models.SeasonWindow(time.Time{}), []models.GameRecord{r})
	for _, name := range []stat.Name{stat.PenTakenPer60, stat.PenDrawnPer60, stat.NetPenPer60} {
		if ws.Rate(name).Defined() {
			t.Errorf("%s should be undefined with zero ice time", name)
		}
	}
	approx(t, "cf_pct", ws.Rate(stat.CorsiPct), 50)
}

func TestAggregate_LastNIgnoresOtherTeamsAndFutureGames(t *testing.T) {
	records := []models.GameRecord{
		record("FLA", "g1", "2025-10-01", 10, 10),
		record("FLA", "g2", "2025-10-03", 20, 10),
		record("FLA", "g3", "2025-10-05", 30, 10),
		record("CHI", "g3", "2025-10-05", 10, 30),
		record("FLA", "g4", "2025-10-09", 99, 1),
	}

	ws := Aggregate("FLA", models.LastNWindow(2, day("2025-10-06")), records)
	if ws.Games != 2 {
		t.Fatalf("Games = %d, want 2", ws.Games)
	}
	if ws.Totals.CorsiFor != 50 || ws.Totals.CorsiAgainst != 20 {
		t.Errorf("totals = %d/%d, want 50/20", ws.Totals.CorsiFor, ws.Totals.CorsiAgainst)
	}
}
