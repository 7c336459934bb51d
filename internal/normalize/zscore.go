package normalize

import (
	"math"

	"github.com/rewired-gh/goi/internal/aggregate"
	"github.com/rewired-gh/goi/internal/stat"
)

// ZScoreSet maps each stat to a sign-adjusted z-score: positive is always
// favourable.
type ZScoreSet map[stat.Name]stat.Value

// Defined counts the defined z-scores.
func (z ZScoreSet) Defined() int {
	n := 0
	for _, v := range z {
		if v.Defined() {
			n++
		}
	}
	return n
}

// ZScore normalizes value against ctx and negates the result when lower raw
// values are better.
//
//   - undefined value or undefined std dev: undefined
//   - zero std dev: 0 when the value sits on the mean, otherwise undefined
func ZScore(value stat.Value, ctx LeagueContext, lowerIsBetter bool) stat.Value {
	v, ok := value.Get()
	if !ok {
		return stat.Undefined
	}
	mean, ok := ctx.Mean.Get()
	if !ok {
		return stat.Undefined
	}
	std, ok := ctx.StdDev.Get()
	if !ok {
		return stat.Undefined
	}

	if std < degenerateStd {
		if math.Abs(v-mean) <= degenerateStd*math.Max(1, math.Abs(mean)) {
			return stat.Of(0)
		}
		return stat.Undefined
	}

	z := stat.Of((v - mean) / std)
	if lowerIsBetter {
		return z.Neg()
	}
	return z
}

// Direction reports whether lower raw values of a stat are better.
type Direction func(stat.Name) bool

// ZScores normalizes every stat of ws that has a context. Stats with no
// context are undefined.
func ZScores(ws aggregate.WindowedStats, contexts map[stat.Name]LeagueContext, lowerIsBetter Direction) ZScoreSet {
	set := make(ZScoreSet, len(contexts))
	for _, name := range stat.All {
		ctx, ok := contexts[name]
		if !ok {
			continue
		}
		set[name] = ZScore(ws.Rate(name), ctx, lowerIsBetter(name))
	}
	return set
}
