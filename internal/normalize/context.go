// Package normalize builds league-wide reference distributions and maps team
// rate statistics onto z-scores relative to them.
//
// Contexts are pure functions of the WindowedStats slice they are given.
// Teams are excluded per stat: a team with an undefined value for one stat
// still contributes to every stat it does have.
package normalize

import (
	"math"
	"sort"

	"github.com/rewired-gh/goi/internal/aggregate"
	"github.com/rewired-gh/goi/internal/stat"
)

// degenerateStd is the floor below which a standard deviation is treated as
// zero. Summing identical floats can leave rounding residue above 0.
const degenerateStd = 1e-9

// LeagueContext is the normalization reference for one stat over one window.
type LeagueContext struct {
	Stat   stat.Name  `json:"stat"`
	Mean   stat.Value `json:"mean"`
	StdDev stat.Value `json:"std_dev"`
	Teams  int        `json:"teams"`
}

// BuildContext computes the population mean and standard deviation of a stat
// across every team with at least one game and a defined value.
// With one value StdDev is undefined; with none Mean is undefined too.
func BuildContext(name stat.Name, all []aggregate.WindowedStats) LeagueContext {
	values := make([]float64, 0, len(all))
	for _, ws := range all {
		if ws.Games == 0 {
			continue
		}
		if v, ok := ws.Rate(name).Get(); ok {
			values = append(values, v)
		}
	}

	ctx := LeagueContext{Stat: name, Teams: len(values)}
	if len(values) == 0 {
		return ctx
	}

	// Sorted summation keeps the result independent of team order.
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	ctx.Mean = stat.Of(mean)

	if len(values) < 2 {
		return ctx
	}

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	ctx.StdDev = stat.Of(math.Sqrt(variance))
	return ctx
}

// BuildContexts computes a context for every stat in names.
func BuildContexts(names []stat.Name, all []aggregate.WindowedStats) map[stat.Name]LeagueContext {
	contexts := make(map[stat.Name]LeagueContext, len(names))
	for _, name := range names {
		contexts[name] = BuildContext(name, all)
	}
	return contexts
}
