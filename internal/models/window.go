package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidWindow is returned when a window specification cannot select games.
var ErrInvalidWindow = errors.New("invalid window")

// WindowKind selects how a Window picks games.
type WindowKind int

const (
	// Season selects every game on or before Through (all games when Through is zero).
	Season WindowKind = iota
	// LastN selects the N most recent games on or before AsOf.
	LastN
	// DateRange selects every game with Start <= date <= End.
	DateRange
)

func (k WindowKind) String() string {
	switch k {
	case Season:
		return "season"
	case LastN:
		return "last_n"
	case DateRange:
		return "range"
	default:
		return fmt.Sprintf("window(%d)", int(k))
	}
}

// Window describes the set of games a statistic is aggregated over.
// Dates are compared as UTC calendar days.
type Window struct {
	Kind    WindowKind
	N       int
	AsOf    time.Time
	Through time.Time
	Start   time.Time
	End     time.Time
}

// SeasonWindow returns a season window through the given day. A zero through
// selects every stored game.
func SeasonWindow(through time.Time) Window {
	return Window{Kind: Season, Through: through}
}

// LastNWindow returns a window over the n most recent games on or before asOf.
func LastNWindow(n int, asOf time.Time) Window {
	return Window{Kind: LastN, N: n, AsOf: asOf}
}

// RangeWindow returns a window over the inclusive date range [start, end].
func RangeWindow(start, end time.Time) Window {
	return Window{Kind: DateRange, Start: start, End: end}
}

// Validate checks the window parameters.
func (w Window) Validate() error {
	switch w.Kind {
	case Season:
		return nil
	case LastN:
		if w.N < 1 {
			return fmt.Errorf("%w: last-n window needs n >= 1, got %d", ErrInvalidWindow, w.N)
		}
		if w.AsOf.IsZero() {
			return fmt.Errorf("%w: last-n window needs an as-of date", ErrInvalidWindow)
		}
		return nil
	case DateRange:
		if w.Start.IsZero() || w.End.IsZero() {
			return fmt.Errorf("%w: date range needs start and end", ErrInvalidWindow)
		}
		if Day(w.Start).After(Day(w.End)) {
			return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow,
				w.Start.Format(DateLayout), w.End.Format(DateLayout))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidWindow, int(w.Kind))
	}
}

// Contains reports whether a game on date d falls inside the window's date
// bounds. For LastN windows this is only the as-of bound; the count limit is
// applied by Select.
func (w Window) Contains(d time.Time) bool {
	day := Day(d)
	switch w.Kind {
	case Season:
		return w.Through.IsZero() || !day.After(Day(w.Through))
	case LastN:
		return !day.After(Day(w.AsOf))
	case DateRange:
		return !day.Before(Day(w.Start)) && !day.After(Day(w.End))
	default:
		return false
	}
}

// Select returns the team's records that fall inside the window, most recent
// first. Records on the same date are ordered by game ID descending so that
// LastN selection is reproducible.
func (w Window) Select(team string, records []GameRecord) []GameRecord {
	selected := make([]GameRecord, 0, len(records))
	for _, r := range records {
		if r.Team == team && w.Contains(r.Date) {
			selected = append(selected, r)
		}
	}

	SortRecentFirst(selected)

	if w.Kind == LastN && len(selected) > w.N {
		selected = selected[:w.N]
	}
	return selected
}

// Key is a stable string form of the window, used for cache keys and logs.
func (w Window) Key() string {
	switch w.Kind {
	case Season:
		if w.Through.IsZero() {
			return "season:all"
		}
		return "season:" + Day(w.Through).Format(DateLayout)
	case LastN:
		return fmt.Sprintf("last%d:%s", w.N, Day(w.AsOf).Format(DateLayout))
	case DateRange:
		return "range:" + Day(w.Start).Format(DateLayout) + ".." + Day(w.End).Format(DateLayout)
	default:
		return w.Kind.String()
	}
}

func (w Window) String() string { return w.Key() }

// SortRecentFirst orders records by date descending, then game ID descending,
// then team ascending.
func SortRecentFirst(records []GameRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := Day(records[i].Date), Day(records[j].Date)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		if records[i].GameID != records[j].GameID {
			return records[i].GameID > records[j].GameID
		}
		return records[i].Team < records[j].Team
	})
}
