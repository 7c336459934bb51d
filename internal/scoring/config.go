package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/rewired-gh/goi/internal/stat"
)

// ErrConfig marks a configuration rejected at load time.
var ErrConfig = errors.New("invalid scoring configuration")

const weightTolerance = 1e-6

// Bucket groups related stats into one dimension of team strength.
type Bucket string

const (
	OffenseCreation   Bucket = "offense_creation"
	DefenseResistance Bucket = "defense_resistance"
	Pace              Bucket = "pace"
)

// Buckets lists every bucket in output order.
var Buckets = []Bucket{OffenseCreation, DefenseResistance, Pace}

// BucketSpec is one bucket's weight and member stats.
type BucketSpec struct {
	Weight float64
	Stats  []stat.Name
}

// PriorityWeights blend the season index, the recent index and the context
// adjustments into a matchup priority.
type PriorityWeights struct {
	Season  float64
	Recent  float64
	Context float64
}

// Config carries every weight and threshold used from bucketing through slate
// ranking. Build it with NewConfig or call Validate before use.
type Config struct {
	Buckets     map[Bucket]BucketSpec
	ReverseSign []stat.Name

	ConfidenceThresholdGames int
	ExtremeZ                 float64
	RecentGames              int

	// XGPerGame averages xgf and xga per game instead of summing them.
	XGPerGame bool

	Priority              PriorityWeights
	VenueBonus            float64
	RestPenalty           float64
	MismatchBonusWeak     float64
	MismatchBonusVeryWeak float64
	WeakThreshold         float64
	VeryWeakThreshold     float64

	StackThreshold float64
	PPMismatch     float64
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		Buckets: map[Bucket]BucketSpec{
			OffenseCreation: {
				Weight: 0.4,
				Stats: []stat.Name{
					stat.CorsiPct, stat.ScoringChancePct, stat.HighDangerPct,
					stat.HighDangerOnNetPct, stat.XGFor, stat.XGPct, stat.PowerPlayPct,
				},
			},
			DefenseResistance: {
				Weight: 0.3,
				Stats:  []stat.Name{stat.XGAgainst, stat.PenaltyKillPct, stat.PenTakenPer60},
			},
			Pace: {
				Weight: 0.3,
				Stats:  []stat.Name{stat.FaceoffPct, stat.PenDrawnPer60, stat.NetPenPer60},
			},
		},
		ReverseSign: []stat.Name{stat.XGAgainst, stat.PenTakenPer60},

		ConfidenceThresholdGames: 10,
		ExtremeZ:                 3.0,
		RecentGames:              5,

		Priority:              PriorityWeights{Season: 0.5, Recent: 0.3, Context: 0.2},
		VenueBonus:            0.1,
		RestPenalty:           0.2,
		MismatchBonusWeak:     0.15,
		MismatchBonusVeryWeak: 0.3,
		WeakThreshold:         -0.5,
		VeryWeakThreshold:     -1.0,

		StackThreshold: 1.0,
		PPMismatch:     15,
	}
}

// NewConfig validates c and returns a copy that shares no slices or maps with
// the caller.
func NewConfig(c Config) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	out := c
	out.Buckets = make(map[Bucket]BucketSpec, len(c.Buckets))
	for b, spec := range c.Buckets {
		out.Buckets[b] = BucketSpec{Weight: spec.Weight, Stats: append([]stat.Name(nil), spec.Stats...)}
	}
	out.ReverseSign = append([]stat.Name(nil), c.ReverseSign...)
	return out, nil
}

// Validate checks every weight sum, mapping and threshold.
func (c Config) Validate() error {
	if err := c.checkFinite(); err != nil {
		return err
	}
	if len(c.Buckets) != len(Buckets) {
		return fmt.Errorf("%w: want exactly %d buckets, got %d", ErrConfig, len(Buckets), len(c.Buckets))
	}

	var weightSum float64
	owner := make(map[stat.Name]Bucket, len(stat.All))
	for _, b := range Buckets {
		spec, ok := c.Buckets[b]
		if !ok {
			return fmt.Errorf("%w: bucket %q is missing", ErrConfig, b)
		}
		if spec.Weight < 0 || math.IsNaN(spec.Weight) {
			return fmt.Errorf("%w: bucket %q weight must be non-negative", ErrConfig, b)
		}
		weightSum += spec.Weight

		for _, name := range spec.Stats {
			if !stat.Known(name) {
				return fmt.Errorf("%w: bucket %q lists unknown stat %q", ErrConfig, b, name)
			}
			if prev, dup := owner[name]; dup {
				return fmt.Errorf("%w: stat %q is mapped to both %q and %q", ErrConfig, name, prev, b)
			}
			owner[name] = b
		}
	}
	if !(math.Abs(weightSum-1) <= weightTolerance) {
		return fmt.Errorf("%w: bucket weights sum to %.6f, want 1", ErrConfig, weightSum)
	}
	for _, name := range stat.All {
		if _, ok := owner[name]; !ok {
			return fmt.Errorf("%w: stat %q is not mapped to a bucket", ErrConfig, name)
		}
	}

	seen := make(map[stat.Name]bool, len(c.ReverseSign))
	for _, name := range c.ReverseSign {
		if !stat.Known(name) {
			return fmt.Errorf("%w: reverse_sign lists unknown stat %q", ErrConfig, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: reverse_sign lists %q twice", ErrConfig, name)
		}
		seen[name] = true
	}

	if c.ConfidenceThresholdGames < 1 {
		return fmt.Errorf("%w: confidence_threshold_games must be at least 1", ErrConfig)
	}
	if !(c.ExtremeZ > 0) {
		return fmt.Errorf("%w: extreme_z must be positive", ErrConfig)
	}
	if c.RecentGames < 1 {
		return fmt.Errorf("%w: recent_games must be at least 1", ErrConfig)
	}

	p := c.Priority
	if p.Season < 0 || p.Recent < 0 || p.Context < 0 {
		return fmt.Errorf("%w: priority weights must be non-negative", ErrConfig)
	}
	if sum := p.Season + p.Recent + p.Context; !(math.Abs(sum-1) <= weightTolerance) {
		return fmt.Errorf("%w: priority weights sum to %.6f, want 1", ErrConfig, sum)
	}
	if c.RestPenalty < 0 {
		return fmt.Errorf("%w: rest_penalty must be non-negative", ErrConfig)
	}
	if c.VeryWeakThreshold >= c.WeakThreshold {
		return fmt.Errorf("%w: very_weak_threshold (%.3f) must be below weak_threshold (%.3f)",
			ErrConfig, c.VeryWeakThreshold, c.WeakThreshold)
	}
	if c.StackThreshold < 0 {
		return fmt.Errorf("%w: stack_threshold must be non-negative", ErrConfig)
	}
	if c.PPMismatch < 0 {
		return fmt.Errorf("%w: pp_mismatch must be non-negative", ErrConfig)
	}
	return nil
}

// checkFinite rejects NaN and ±Inf in every numeric field. Comparisons
// against NaN are always false, so the range checks below cannot catch it.
func (c Config) checkFinite() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"extreme_z", c.ExtremeZ},
		{"priority_weights.season", c.Priority.Season},
		{"priority_weights.recent", c.Priority.Recent},
		{"priority_weights.context", c.Priority.Context},
		{"venue_bonus", c.VenueBonus},
		{"rest_penalty", c.RestPenalty},
		{"mismatch_bonus_weak", c.MismatchBonusWeak},
		{"mismatch_bonus_very_weak", c.MismatchBonusVeryWeak},
		{"weak_threshold", c.WeakThreshold},
		{"very_weak_threshold", c.VeryWeakThreshold},
		{"stack_threshold", c.StackThreshold},
		{"pp_mismatch", c.PPMismatch},
	}
	for _, b := range Buckets {
		fields = append(fields, struct {
			name  string
			value float64
		}{"buckets." + string(b) + ".weight", c.Buckets[b].Weight})
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number, got %v", ErrConfig, f.name, f.value)
		}
	}
	return nil
}

// BucketOf returns the bucket a stat belongs to.
func (c Config) BucketOf(name stat.Name) (Bucket, bool) {
	for _, b := range Buckets {
		for _, s := range c.Buckets[b].Stats {
			if s == name {
				return b, true
			}
		}
	}
	return "", false
}

// LowerIsBetter reports whether a stat's z-score is sign-flipped.
func (c Config) LowerIsBetter(name stat.Name) bool {
	for _, s := range c.ReverseSign {
		if s == name {
			return true
		}
	}
	return false
}
