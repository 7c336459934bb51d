// Package stat defines the tri-state numeric value shared by every stage of the
// scoring pipeline, and the names of the rate statistics derived from raw game
// counters.
//
// A Value is either defined (any float, including 0) or undefined. Undefined is
// how missing data travels through aggregation, normalization and bucketing; it
// must never be read as 0, because 0 is the neutral point of a z-score scale.
package stat

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a float64 that may be undefined. The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the missing-data sentinel.
var Undefined = Value{}

// Of returns a defined value. NaN and ±Inf are treated as undefined.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{v: v, ok: true}
}

// Defined reports whether the value carries a number.
func (x Value) Defined() bool { return x.ok }

// Get returns the number and whether it is defined.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// Or returns the number, or fallback when undefined. Callers use it only at
// output boundaries where a neutral value is explicitly part of the policy.
func (x Value) Or(fallback float64) float64 {
	if !x.ok {
		return fallback
	}
	return x.v
}

// Neg flips the sign of a defined value.
func (x Value) Neg() Value {
	if !x.ok {
		return Undefined
	}
	return Of(-x.v)
}

// Scale multiplies a defined value by k.
func (x Value) Scale(k float64) Value {
	if !x.ok {
		return Undefined
	}
	return Of(x.v * k)
}

// Ratio returns num/den, undefined when den is 0.
func Ratio(num, den float64) Value {
	if den == 0 {
		return Undefined
	}
	return Of(num / den)
}

// Share returns forCount/(forCount+against)×100, undefined when both are 0.
func Share(forCount, against float64) Value {
	return Ratio(forCount, forCount+against).Scale(100)
}

// Mean averages the defined values and reports how many were used.
// It is undefined when none are defined.
func Mean(values ...Value) (Value, int) {
	var sum float64
	n := 0
	for _, x := range values {
		if !x.ok {
			continue
		}
		sum += x.v
		n++
	}
	if n == 0 {
		return Undefined, 0
	}
	return Of(sum / float64(n)), n
}

func (x Value) String() string {
	if !x.ok {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", x.v)
}

// MarshalJSON encodes undefined as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON decodes null as undefined.
func (x *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*x = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode stat value: %w", err)
	}
	*x = Of(f)
	return nil
}
