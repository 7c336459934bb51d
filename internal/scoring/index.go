// Package scoring folds per-stat z-scores into a team power index and applies
// the small-sample guardrail.
//
// Undefined never turns into 0 here: an undefined z-score is skipped inside its
// bucket, an all-undefined bucket drops out of the composite and the
// remaining bucket weights are re-normalized. The single deliberate exception
// is the guardrail, where a team with no games is pinned to a neutral 0.
package scoring

import (
	"math"

	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/normalize"
	"github.com/rewired-gh/goi/internal/stat"
)

// PowerIndex is a team's bucketed strength over one window.
type PowerIndex struct {
	Team      string                `json:"team"`
	Window    string                `json:"window"`
	Games     int                   `json:"games"`
	Buckets   map[Bucket]stat.Value `json:"buckets"`
	Composite stat.Value            `json:"composite"`
}

// Bucket returns one bucket average.
func (p PowerIndex) Bucket(b Bucket) stat.Value {
	return p.Buckets[b]
}

// PowerIndexFor averages z-scores inside each bucket and blends the defined
// buckets by weight.
func PowerIndexFor(team string, window models.Window, games int, z normalize.ZScoreSet, cfg Config) PowerIndex {
	pi := PowerIndex{
		Team:    team,
		Window:  window.Key(),
		Games:   games,
		Buckets: make(map[Bucket]stat.Value, len(Buckets)),
	}

	var weighted, weights float64
	for _, b := range Buckets {
		spec := cfg.Buckets[b]
		values := make([]stat.Value, 0, len(spec.Stats))
		for _, name := range spec.Stats {
			values = append(values, z[name])
		}
		avg, _ := stat.Mean(values...)
		pi.Buckets[b] = avg

		if v, ok := avg.Get(); ok {
			weighted += spec.Weight * v
			weights += spec.Weight
		}
	}

	if weights > 0 {
		pi.Composite = stat.Of(weighted / weights)
	}
	return pi
}

// Flag marks a guardrail condition worth surfacing to a reader.
type Flag string

const (
	FlagLowSample        Flag = "low_sample"
	FlagExtremeComposite Flag = "extreme_composite"
)

// AdjustedIndex is a PowerIndex shrunk toward neutral by sample size.
type AdjustedIndex struct {
	PowerIndex
	Confidence float64    `json:"confidence"`
	Adjusted   stat.Value `json:"adjusted"`
	Flags      []Flag     `json:"flags,omitempty"`
}

// HasFlag reports whether f was raised.
func (a AdjustedIndex) HasFlag(f Flag) bool {
	for _, x := range a.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Adjust scales the composite by min(games/threshold, 1).
//
//   - games == 0: adjusted is exactly 0
//   - composite undefined with games > 0: adjusted is undefined
func Adjust(pi PowerIndex, cfg Config) AdjustedIndex {
	threshold := cfg.ConfidenceThresholdGames
	if threshold < 1 {
		threshold = 1
	}
	confidence := math.Min(float64(pi.Games)/float64(threshold), 1)

	out := AdjustedIndex{PowerIndex: pi, Confidence: confidence}
	if pi.Games == 0 {
		out.Adjusted = stat.Of(0)
	} else {
		out.Adjusted = pi.Composite.Scale(confidence)
	}

	if pi.Games < threshold {
		out.Flags = append(out.Flags, FlagLowSample)
	}
	if c, ok := pi.Composite.Get(); ok && math.Abs(c) > cfg.ExtremeZ {
		out.Flags = append(out.Flags, FlagExtremeComposite)
	}
	return out
}
