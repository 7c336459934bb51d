package slate

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/goi/internal/scoring"
	"github.com/rewired-gh/goi/internal/stat"
)

var (
	day1 = time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
)

func index(team string, games int, adjusted stat.Value, defense stat.Value) scoring.AdjustedIndex {
	return scoring.AdjustedIndex{
		PowerIndex: scoring.PowerIndex{
			Team:    team,
			Games:   games,
			Buckets: map[scoring.Bucket]stat.Value{scoring.DefenseResistance: defense},
		},
		Adjusted: adjusted,
	}
}

func side(team string, season, recent float64) SideInput {
	return SideInput{
		Team:   team,
		Season: index(team, 20, stat.Of(season), stat.Undefined),
		Recent: index(team, 5, stat.Of(recent), stat.Undefined),
	}
}

// flatConfig removes every situational adjustment so priorities depend on
// the indexes alone.
func flatConfig() scoring.Config {
	cfg := scoring.DefaultConfig()
	cfg.VenueBonus = 0
	cfg.RestPenalty = 0
	cfg.MismatchBonusWeak = 0
	cfg.MismatchBonusVeryWeak = 0
	return cfg
}

func TestRank_PriorityComponents(t *testing.T) {
	cfg := scoring.DefaultConfig()

	home := SideInput{
		Team:   "FLA",
		Season: index("FLA", 20, stat.Of(1.0), stat.Of(-0.7)),
		Recent: index("FLA", 5, stat.Of(0.5), stat.Undefined),
	}
	away := SideInput{
		Team:   "CHI",
		Season: index("CHI", 20, stat.Of(0.2), stat.Of(-1.2)),
		Recent: index("CHI", 5, stat.Undefined, stat.Undefined),
	}

	res := Rank([]GameInput{{GameID: "g1", Date: day1, Home: home, Away: away}}, cfg)
	if len(res.Ranked) != 1 {
		t.Fatalf("ranked %d games, want 1", len(res.Ranked))
	}
	m := res.Ranked[0]

	if m.Home.Venue != cfg.VenueBonus || m.Away.Venue != 0 {
		t.Errorf("venue = %f/%f, want %f/0", m.Home.Venue, m.Away.Venue, cfg.VenueBonus)
	}
	// CHI defends below the very-weak line; FLA only below the weak line.
	if m.Home.Mismatch != cfg.MismatchBonusVeryWeak {
		t.Errorf("home mismatch = %f, want %f", m.Home.Mismatch, cfg.MismatchBonusVeryWeak)
	}
	if m.Away.Mismatch != cfg.MismatchBonusWeak {
		t.Errorf("away mismatch = %f, want %f", m.Away.Mismatch, cfg.MismatchBonusWeak)
	}

	wantHome := 0.5*1.0 + 0.3*0.5 + 0.2*(0.1+0.3)
	// CHI has no recent index, so the season term takes both weights.
	wantAway := 0.8*0.2 + 0.2*0.15
	if math.Abs(m.Home.Priority-wantHome) > 1e-12 {
		t.Errorf("home priority = %f, want %f", m.Home.Priority, wantHome)
	}
	if math.Abs(m.Away.Priority-wantAway) > 1e-12 {
		t.Errorf("away priority = %f, want %f", m.Away.Priority, wantAway)
	}
	if math.Abs(m.PriorityDiff-(wantHome-wantAway)) > 1e-12 {
		t.Errorf("priority diff = %f, want %f", m.PriorityDiff, wantHome-wantAway)
	}
	if d, _ := m.SeasonDelta.Get(); math.Abs(d-0.8) > 1e-12 {
		t.Errorf("season delta = %f, want 0.8", d)
	}
	if m.RecentDelta.Defined() {
		t.Errorf("recent delta = %v, want undefined", m.RecentDelta)
	}
	if m.Favoured().Team != "FLA" {
		t.Errorf("favoured = %s, want FLA", m.Favoured().Team)
	}
	if m.Rank != 1 {
		t.Errorf("rank = %d, want 1", m.Rank)
	}
}

func TestRank_BackToBack(t *testing.T) {
	cfg := scoring.DefaultConfig()

	// Day 1: X at home, rested.
	x1 := side("X", 0.4, 0.4)
	res := Rank([]GameInput{{GameID: "d1", Date: day1, Home: x1, Away: side("Y", 0.1, 0.1)}}, cfg)
	if got := res.Ranked[0].Home; got.Rest != 0 || got.Venue != cfg.VenueBonus {
		t.Errorf("day 1 home: rest=%f venue=%f, want 0 and %f", got.Rest, got.Venue, cfg.VenueBonus)
	}

	// Day 2: X on the road after playing yesterday.
	x2 := side("X", 0.4, 0.4)
	x2.PlayedPreviousDay = true
	res = Rank([]GameInput{{GameID: "d2", Date: day2, Home: side("Z", 0.1, 0.1), Away: x2}}, cfg)
	got := res.Ranked[0].Away
	if got.Rest != -cfg.RestPenalty {
		t.Errorf("day 2 rest = %f, want exactly %f", got.Rest, -cfg.RestPenalty)
	}
	if got.Venue != 0 {
		t.Errorf("day 2 venue = %f, want 0", got.Venue)
	}
}

func TestRank_Ordering(t *testing.T) {
	cfg := flatConfig()
	games := []GameInput{
		{GameID: "g2", Date: day1, Home: side("A", 1.0, 1.0), Away: side("B", 0.0, 0.0)},
		{GameID: "g1", Date: day1, Home: side("C", 1.0, 1.0), Away: side("D", 0.0, 0.0)},
		{GameID: "g3", Date: day1, Home: side("E", 0.0, 0.0), Away: side("F", 3.0, 3.0)},
		{GameID: "g4", Date: day1, Home: side("G", 2.0, 2.0), Away: side("H", 1.0, 1.0)},
		{GameID: "g5", Date: day1, Home: side("I", 0.5, 0.5), Away: side("J", 0.5, 0.5)},
	}

	res := Rank(games, cfg)
	want := []string{"g3", "g4", "g1", "g2", "g5"}
	if len(res.Ranked) != len(want) {
		t.Fatalf("ranked %d games, want %d", len(res.Ranked), len(want))
	}
	for i, id := range want {
		if res.Ranked[i].GameID != id {
			t.Errorf("position %d = %s, want %s", i, res.Ranked[i].GameID, id)
		}
		if res.Ranked[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", id, res.Ranked[i].Rank, i+1)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	cfg := scoring.DefaultConfig()
	games := []GameInput{
		{GameID: "a", Date: day1, Home: side("A", 0.3, 0.1), Away: side("B", -0.2, 0.4)},
		{GameID: "b", Date: day1, Home: side("C", 0.3, 0.1), Away: side("D", -0.2, 0.4)},
		{GameID: "c", Date: day1, Home: side("E", 1.1, 0.9), Away: side("F", 0.0, -0.5)},
		{GameID: "d", Date: day1, Home: side("G", -0.8, -0.1), Away: side("H", 0.7, 0.2)},
	}
	reversed := make([]GameInput, len(games))
	for i, g := range games {
		reversed[len(games)-1-i] = g
	}

	first := Rank(games, cfg)
	second := Rank(reversed, cfg)
	for i := range first.Ranked {
		if first.Ranked[i].GameID != second.Ranked[i].GameID {
			t.Fatalf("position %d differs: %s vs %s", i, first.Ranked[i].GameID, second.Ranked[i].GameID)
		}
	}
	if first.RunID == "" || first.RunID == second.RunID {
		t.Errorf("run ids %q and %q should be distinct and non-empty", first.RunID, second.RunID)
	}

	replayA, err := json.Marshal(Rank(games, cfg, WithRunID("run-1"), WithSlateDate(day1)))
	if err != nil {
		t.Fatal(err)
	}
	replayB, err := json.Marshal(Rank(reversed, cfg, WithRunID("run-1"), WithSlateDate(day1)))
	if err != nil {
		t.Fatal(err)
	}
	if string(replayA) != string(replayB) {
		t.Errorf("same input with a fixed run id gave different output:\n%s\n%s", replayA, replayB)
	}
}

func TestRank_SlateDate(t *testing.T) {
	cfg := scoring.DefaultConfig()
	games := []GameInput{
		{GameID: "g1", Date: day1, Home: side("FLA", 0.5, 0.5), Away: side("CHI", 0.1, 0.1)},
		{GameID: "g2", Date: day2, Home: side("TOR", 0.5, 0.5), Away: side("BOS", 0.1, 0.1)},
		{GameID: "g3", Home: side("EDM", 0.5, 0.5), Away: side("CGY", 0.1, 0.1)},
	}
	res := Rank(games, cfg, WithSlateDate(day1))

	if !res.Date.Equal(day1) {
		t.Errorf("result date = %v, want %v", res.Date, day1)
	}
	if len(res.Ranked) != 2 {
		t.Fatalf("ranked = %+v, want g1 and g3", res.Ranked)
	}
	if len(res.Excluded) != 1 {
		t.Fatalf("excluded = %+v", res.Excluded)
	}
	ex := res.Excluded[0]
	if ex.GameID != "g2" || ex.Side != ExcludedInput || !strings.Contains(ex.Reason, "2025-11-04") {
		t.Errorf("exclusion = %+v", ex)
	}

	// Without a slate date the game dates are not compared.
	if res := Rank(games, cfg); len(res.Ranked) != 3 {
		t.Errorf("ranked %d games without a slate date, want 3", len(res.Ranked))
	}
}

func TestRank_ExcludesInsufficientData(t *testing.T) {
	cfg := scoring.DefaultConfig()

	empty := SideInput{Team: "NEW", Season: index("NEW", 0, stat.Of(0), stat.Undefined)}
	blank := SideInput{Team: "BLK", Season: index("BLK", 3, stat.Undefined, stat.Undefined)}

	games := []GameInput{
		{GameID: "g1", Date: day1, Home: side("FLA", 0.5, 0.5), Away: empty},
		{GameID: "g2", Date: day1, Home: blank, Away: side("CHI", 0.2, 0.2)},
		{GameID: "g3", Date: day1, Home: side("TOR", 0.1, 0.1), Away: side("MTL", 0.0, 0.0)},
		{GameID: "g3", Date: day1, Home: side("BOS", 0.1, 0.1), Away: side("NYR", 0.0, 0.0)},
		{GameID: "g4", Date: day1, Home: side("EDM", 0.1, 0.1), Away: side("EDM", 0.0, 0.0)},
	}
	res := Rank(games, cfg)

	if len(res.Ranked) != 1 || res.Ranked[0].GameID != "g3" {
		t.Fatalf("ranked = %+v, want only g3", res.Ranked)
	}
	if len(res.Excluded) != 4 {
		t.Fatalf("excluded %d games, want 4", len(res.Excluded))
	}

	byReason := map[string]Exclusion{}
	for _, e := range res.Excluded {
		byReason[e.GameID+"/"+e.Home] = e
	}
	g1 := byReason["g1/FLA"]
	if !strings.Contains(g1.Reason, "NEW") || g1.HomeGames != 20 || g1.AwayGames != 0 {
		t.Errorf("g1 exclusion = %+v", g1)
	}
	if g2 := byReason["g2/BLK"]; !strings.Contains(g2.Reason, "no defined season index") || g2.HomeGames != 3 {
		t.Errorf("g2 exclusion = %+v", g2)
	}
	if dup := byReason["g3/BOS"]; dup.Reason != "duplicate game id" || dup.Side != ExcludedInput {
		t.Errorf("duplicate exclusion = %+v", dup)
	}
	if g1.Side != ExcludedAway {
		t.Errorf("g1 side = %s, want away", g1.Side)
	}
	if g2 := byReason["g2/BLK"]; g2.Side != ExcludedHome {
		t.Errorf("g2 side = %s, want home", g2.Side)
	}
	if same := byReason["g4/EDM"]; same.Reason == "" {
		t.Error("same-team game should be excluded")
	}
	if !strings.Contains(g1.Error(), "excluded") {
		t.Errorf("Error() = %q", g1.Error())
	}
}

func TestRank_Recommendation(t *testing.T) {
	cfg := flatConfig()

	strong := side("FLA", 2.0, 2.0)
	strong.SeasonRates = map[stat.Name]stat.Value{
		stat.PowerPlayPct:   stat.Of(30),
		stat.PenaltyKillPct: stat.Of(85),
		stat.HighDangerPct:  stat.Of(58),
	}
	weak := side("CHI", -0.5, -0.5)
	weak.SeasonRates = map[stat.Name]stat.Value{
		stat.PowerPlayPct:   stat.Of(15),
		stat.PenaltyKillPct: stat.Of(75),
		stat.HighDangerPct:  stat.Of(56),
	}

	tests := []struct {
		name string
		game GameInput
		want []string
	}{
		{
			name: "home stack and special teams",
			game: GameInput{GameID: "g1", Home: strong, Away: weak},
			want: []string{"Stack FLA", "FLA special teams edge (+25.0)", "High-event game"},
		},
		{
			name: "away stack",
			game: GameInput{GameID: "g2", Home: weak, Away: strong},
			want: []string{"Stack FLA", "FLA special teams edge (+25.0)"},
		},
		{
			name: "even game",
			game: GameInput{GameID: "g3", Home: side("TOR", 0.2, 0.2), Away: side("MTL", 0.1, 0.1)},
			want: []string{"Monitor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank([]GameInput{tt.game}, cfg).Ranked[0].Recommendation
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("recommendation %q missing %q", got, w)
				}
			}
		})
	}
}
