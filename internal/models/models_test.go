package models

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func validRecord() GameRecord {
	return GameRecord{
		GameID:                 "2025020001",
		Date:                   day("2025-10-07"),
		Team:                   "FLA",
		Opponent:               "CHI",
		Side:                   Home,
		CorsiFor:               60,
		CorsiAgainst:           48,
		ScoringChancesFor:      30,
		ScoringChancesAgainst:  22,
		HighDangerFor:          12,
		HighDangerAgainst:      9,
		HighDangerOnNetFor:     8,
		HighDangerOnNetAgainst: 5,
		XGFor:                  3.1,
		XGAgainst:              2.4,
		PPGoals:                1,
		PPOpportunities:        3,
		PPGoalsAgainst:         0,
		PPOpportunitiesAgainst: 2,
		FaceoffWins:            31,
		FaceoffLosses:          27,
		PenaltiesTaken:         2,
		PenaltiesDrawn:         3,
		TOISeconds:             3600,
	}
}

func TestGameRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *GameRecord)
		wantErr bool
	}{
		{name: "valid record", mutate: func(r *GameRecord) {}},
		{name: "empty game ID", mutate: func(r *GameRecord) { r.GameID = "" }, wantErr: true},
		{name: "empty team", mutate: func(r *GameRecord) { r.Team = "" }, wantErr: true},
		{name: "team plays itself", mutate: func(r *GameRecord) { r.Opponent = r.Team }, wantErr: true},
		{name: "missing date", mutate: func(r *GameRecord) { r.Date = time.Time{} }, wantErr: true},
		{name: "bad side", mutate: func(r *GameRecord) { r.Side = "neutral" }, wantErr: true},
		{name: "negative counter", mutate: func(r *GameRecord) { r.CorsiAgainst = -1 }, wantErr: true},
		{name: "negative xg", mutate: func(r *GameRecord) { r.XGFor = -0.1 }, wantErr: true},
		{name: "more pp goals than chances", mutate: func(r *GameRecord) { r.PPGoals = 4 }, wantErr: true},
		{name: "on-net exceeds high danger", mutate: func(r *GameRecord) { r.HighDangerOnNetFor = 13 }, wantErr: true},
		{name: "zero ice time is allowed", mutate: func(r *GameRecord) { r.TOISeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("GameRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{name: "season", window: SeasonWindow(time.Time{})},
		{name: "last 5", window: LastNWindow(5, day("2025-11-01"))},
		{name: "last 0", window: LastNWindow(0, day("2025-11-01")), wantErr: true},
		{name: "last n without as-of", window: LastNWindow(5, time.Time{}), wantErr: true},
		{name: "range", window: RangeWindow(day("2025-10-01"), day("2025-10-31"))},
		{name: "single day range", window: RangeWindow(day("2025-10-01"), day("2025-10-01"))},
		{name: "inverted range", window: RangeWindow(day("2025-10-31"), day("2025-10-01")), wantErr: true},
		{name: "unknown kind", window: Window{Kind: WindowKind(9)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Window.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestWindowSelect_LastNTieBreak(t *testing.T) {
	mk := func(id, date string) GameRecord {
		r := validRecord()
		r.GameID = id
		r.Date = day(date)
		return r
	}
	// Two games on the same date: the higher game ID counts as more recent.
	records := []GameRecord{
		mk("2025020010", "2025-10-10"),
		mk("2025020030", "2025-10-12"),
		mk("2025020021", "2025-10-11"),
		mk("2025020020", "2025-10-11"),
		mk("2025020040", "2025-10-14"),
	}

	got := LastNWindow(3, day("2025-10-12")).Select("FLA", records)
	want := []string{"2025020030", "2025020021", "2025020020"}
	if len(got) != len(want) {
		t.Fatalf("selected %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].GameID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].GameID, want[i])
		}
	}

	// Reversing input order must not change the selection.
	reversed := make([]GameRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}
	again := LastNWindow(3, day("2025-10-12")).Select("FLA", reversed)
	for i := range want {
		if again[i].GameID != want[i] {
			t.Errorf("reversed input position %d: got %s, want %s", i, again[i].GameID, want[i])
		}
	}
}

func TestWindowContains(t *testing.T) {
	w := RangeWindow(day("2025-10-05"), day("2025-10-10"))
	if !w.Contains(day("2025-10-05")) || !w.Contains(day("2025-10-10")) {
		t.Error("range bounds must be inclusive")
	}
	if w.Contains(day("2025-10-11")) || w.Contains(day("2025-10-04")) {
		t.Error("dates outside the range must not match")
	}

	s := SeasonWindow(day("2025-10-10"))
	if s.Contains(day("2025-10-11")) {
		t.Error("season window must stop at its through date")
	}
	if !SeasonWindow(time.Time{}).Contains(day("2030-01-01")) {
		t.Error("open season window must match every date")
	}
}

func TestSlateGameValidate(t *testing.T) {
	g := SlateGame{GameID: "g1", Date: day("2025-11-02"), Home: "FLA", Away: "CHI"}
	if err := g.Validate(); err != nil {
		t.Fatalf("valid game rejected: %v", err)
	}
	g.Away = "FLA"
	if err := g.Validate(); err == nil {
		t.Error("expected error when a team plays itself")
	}
}
