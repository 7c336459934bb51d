// Package engine wires the raw stat source to the scoring pipeline: it
// fetches a window of league records, aggregates every team, builds the
// league contexts and produces power indexes, team rankings and slate
// rankings.
//
// The engine holds no mutable scoring state. Each request works on the
// records it fetched; the only shared state is an optional memo of league
// views keyed by the source's snapshot version.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rewired-gh/goi/internal/aggregate"
	"github.com/rewired-gh/goi/internal/logger"
	"github.com/rewired-gh/goi/internal/metrics"
	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/normalize"
	"github.com/rewired-gh/goi/internal/scoring"
	"github.com/rewired-gh/goi/internal/slate"
	"github.com/rewired-gh/goi/internal/stat"
)

// ErrNoLeagueData is returned when a window holds no games for any team.
var ErrNoLeagueData = errors.New("no league data in window")

// ErrUnknownStat is returned for a stat name outside the fixed stat set.
var ErrUnknownStat = errors.New("unknown stat")

// Source supplies raw game records.
type Source interface {
	FetchRecords(ctx context.Context, team string, w models.Window) ([]models.GameRecord, error)
	FetchLeagueRecords(ctx context.Context, w models.Window) ([]models.GameRecord, error)
}

// Versioned is implemented by sources that can report when their contents
// change. Only such sources get league views memoized.
type Versioned interface {
	SnapshotVersion(ctx context.Context) (int64, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records ranking runs on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// WithWorkers bounds parallel per-team aggregation. n < 1 means unbounded.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// Engine computes scores from a Source with a fixed configuration.
type Engine struct {
	src     Source
	cfg     scoring.Config
	metrics *metrics.Recorder
	workers int

	group       singleflight.Group
	mu          sync.Mutex
	memoVersion int64
	memo        map[string]*leagueView
}

// New validates cfg and returns an Engine reading from src.
func New(src Source, cfg scoring.Config, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, errors.New("engine: nil source")
	}
	valid, err := scoring.NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		src:     src,
		cfg:     valid,
		workers: 8,
		memo:    make(map[string]*leagueView),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() scoring.Config { return e.cfg }

// leagueView is every team's aggregate over one window plus the league
// contexts built from them.
type leagueView struct {
	window   models.Window
	stats    []aggregate.WindowedStats
	byTeam   map[string]int
	contexts map[stat.Name]normalize.LeagueContext
	active   int
}

func (v *leagueView) team(team string) aggregate.WindowedStats {
	if i, ok := v.byTeam[team]; ok {
		return v.stats[i]
	}
	return aggregate.WindowedStats{Team: team, Window: v.window, Rates: aggregate.Rates(aggregate.Totals{}, 0)}
}

// ComputeLeagueContext returns the league distribution of one stat.
func (e *Engine) ComputeLeagueContext(ctx context.Context, w models.Window, name stat.Name) (normalize.LeagueContext, error) {
	if !stat.Known(name) {
		return normalize.LeagueContext{}, fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
	view, err := e.league(ctx, w)
	if err != nil {
		return normalize.LeagueContext{}, err
	}
	if view.active == 0 {
		return normalize.LeagueContext{}, fmt.Errorf("%w: %s", ErrNoLeagueData, w)
	}
	return view.contexts[name], nil
}

// ComputePowerIndex returns a team's guardrail-adjusted power index over w,
// normalized against the whole league over the same window. A team with no
// games in w is a value (Games == 0), not an error.
func (e *Engine) ComputePowerIndex(ctx context.Context, team string, w models.Window) (scoring.AdjustedIndex, error) {
	view, err := e.league(ctx, w)
	if err != nil {
		return scoring.AdjustedIndex{}, err
	}
	if view.active == 0 {
		return scoring.AdjustedIndex{}, fmt.Errorf("%w: %s", ErrNoLeagueData, w)
	}

	records, err := e.src.FetchRecords(ctx, team, w)
	if err != nil {
		return scoring.AdjustedIndex{}, fmt.Errorf("fetch %s records: %w", team, err)
	}
	return e.index(e.aggregate(team, w, records), view), nil
}

// TeamRank is one row of a league table.
type TeamRank struct {
	Rank int `json:"rank"`
	scoring.AdjustedIndex
}

// RankTeams orders every team with games in w by adjusted composite,
// highest first. Undefined composites sort last, ties by team name.
func (e *Engine) RankTeams(ctx context.Context, w models.Window) ([]TeamRank, error) {
	view, err := e.league(ctx, w)
	if err != nil {
		return nil, err
	}
	if view.active == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLeagueData, w)
	}

	rows := make([]TeamRank, 0, len(view.stats))
	for _, ws := range view.stats {
		rows = append(rows, TeamRank{AdjustedIndex: e.index(ws, view)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i].Adjusted.Get()
		b, bok := rows[j].Adjusted.Get()
		if aok != bok {
			return aok
		}
		if aok && a != b {
			return a > b
		}
		return rows[i].Team < rows[j].Team
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// SlateRequest is one day's games to rank. RunID is generated when empty.
type SlateRequest struct {
	RunID string
	Date  time.Time
	Games []models.SlateGame
}

// RankSlate scores and orders a slate. Team strength is measured on games
// before the slate date: the season window runs through the previous day
// and the recent window is the last RecentGames games as of that day.
func (e *Engine) RankSlate(ctx context.Context, req SlateRequest) (slate.Result, error) {
	if req.Date.IsZero() {
		return slate.Result{}, errors.New("slate date is required")
	}
	start := time.Now()
	date := models.Day(req.Date)
	prev := date.AddDate(0, 0, -1)

	seasonW := models.SeasonWindow(prev)
	recentW := models.LastNWindow(e.cfg.RecentGames, prev)

	var season, recent *leagueView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		season, err = e.league(gctx, seasonW)
		return err
	})
	g.Go(func() (err error) {
		recent, err = e.league(gctx, recentW)
		return err
	})
	if err := g.Wait(); err != nil {
		return slate.Result{}, err
	}

	yesterday, err := e.src.FetchLeagueRecords(ctx, models.RangeWindow(prev, prev))
	if err != nil {
		return slate.Result{}, fmt.Errorf("fetch previous day: %w", err)
	}
	playedYesterday := make(map[string]bool, len(yesterday))
	for _, r := range yesterday {
		playedYesterday[r.Team] = true
	}

	side := func(team string) slate.SideInput {
		seasonWS := season.team(team)
		return slate.SideInput{
			Team:              team,
			Season:            e.index(seasonWS, season),
			Recent:            e.index(recent.team(team), recent),
			PlayedPreviousDay: playedYesterday[team],
			SeasonRates:       seasonWS.Rates,
		}
	}

	inputs := make([]slate.GameInput, 0, len(req.Games))
	for _, sg := range req.Games {
		gameDate := sg.Date
		if gameDate.IsZero() {
			gameDate = date
		}
		inputs = append(inputs, slate.GameInput{
			GameID: sg.GameID,
			Date:   gameDate,
			Home:   side(sg.Home),
			Away:   side(sg.Away),
		})
	}

	res := slate.Rank(inputs, e.cfg, slate.WithSlateDate(date), slate.WithRunID(req.RunID))

	e.metrics.RecordRank(len(res.Ranked), time.Since(start))
	for _, ex := range res.Excluded {
		e.metrics.RecordExcluded(string(ex.Side))
	}
	logger.Debug("ranked slate %s run=%s: %d ranked, %d excluded",
		date.Format(models.DateLayout), res.RunID, len(res.Ranked), len(res.Excluded))
	return res, nil
}

func (e *Engine) aggregate(team string, w models.Window, records []models.GameRecord) aggregate.WindowedStats {
	ws := aggregate.Aggregate(team, w, records)
	if e.cfg.XGPerGame {
		return ws.XGPerGame()
	}
	return ws
}

func (e *Engine) index(ws aggregate.WindowedStats, view *leagueView) scoring.AdjustedIndex {
	z := normalize.ZScores(ws, view.contexts, e.cfg.LowerIsBetter)
	pi := scoring.PowerIndexFor(ws.Team, ws.Window, ws.Games, z, e.cfg)
	return scoring.Adjust(pi, e.cfg)
}

// league returns the league view for w, from the memo when the source is
// versioned and unchanged.
func (e *Engine) league(ctx context.Context, w models.Window) (*leagueView, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	versioned, ok := e.src.(Versioned)
	if !ok {
		return e.buildLeague(ctx, w)
	}
	version, err := versioned.SnapshotVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot version: %w", err)
	}
	key := memoKey(w, version)

	e.mu.Lock()
	if version != e.memoVersion {
		e.memo = make(map[string]*leagueView)
		e.memoVersion = version
	}
	if v, ok := e.memo[key]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	// The shared build outlives any single caller; each caller still
	// stops waiting when its own context ends.
	ch := e.group.DoChan(key, func() (any, error) {
		view, err := e.buildLeague(context.WithoutCancel(ctx), w)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if version == e.memoVersion {
			e.memo[key] = view
		}
		e.mu.Unlock()
		return view, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*leagueView), nil
	}
}

func memoKey(w models.Window, version int64) string {
	names := make([]string, len(stat.All))
	for i, n := range stat.All {
		names[i] = string(n)
	}
	return w.Key() + "|" + strings.Join(names, ",") + "|v" + strconv.FormatInt(version, 10)
}

func (e *Engine) buildLeague(ctx context.Context, w models.Window) (*leagueView, error) {
	records, err := e.src.FetchLeagueRecords(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("fetch league records for %s: %w", w, err)
	}

	byTeam := make(map[string][]models.GameRecord)
	for _, r := range records {
		byTeam[r.Team] = append(byTeam[r.Team], r)
	}
	teams := make([]string, 0, len(byTeam))
	for team := range byTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	stats := make([]aggregate.WindowedStats, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i, team := range teams {
		i, team := i, team
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stats[i] = e.aggregate(team, w, byTeam[team])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &leagueView{
		window:   w,
		stats:    stats,
		byTeam:   make(map[string]int, len(teams)),
		contexts: normalize.BuildContexts(stat.All, stats),
	}
	undefined := 0
	for i, ws := range stats {
		view.byTeam[ws.Team] = i
		if ws.Games > 0 {
			view.active++
		}
		undefined += len(stat.All) - normalize.ZScores(ws, view.contexts, e.cfg.LowerIsBetter).Defined()
	}
	e.metrics.RecordUndefinedZ(w.Kind.String(), undefined)
	logger.Debug("league view %s: %d teams, %d undefined z-scores", w, view.active, undefined)
	return view, nil
}
