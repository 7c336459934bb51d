package stat

// Name identifies a rate statistic.
type Name string

const (
	CorsiPct           Name = "cf_pct"
	ScoringChancePct   Name = "scf_pct"
	HighDangerPct      Name = "hdc_pct"
	HighDangerOnNetPct Name = "hdco_pct"
	XGFor              Name = "xgf"
	XGAgainst          Name = "xga"
	XGPct              Name = "xgf_pct"
	PowerPlayPct       Name = "pp_pct"
	PenaltyKillPct     Name = "pk_pct"
	FaceoffPct         Name = "fow_pct"
	PenTakenPer60      Name = "pen_taken_60"
	PenDrawnPer60      Name = "pen_drawn_60"
	NetPenPer60        Name = "net_pen_60"
)

// All lists every rate statistic in a fixed order. Iteration over stat maps
// goes through this slice so output never depends on map order.
var All = []Name{
	CorsiPct,
	ScoringChancePct,
	HighDangerPct,
	HighDangerOnNetPct,
	XGFor,
	XGAgainst,
	XGPct,
	PowerPlayPct,
	PenaltyKillPct,
	FaceoffPct,
	PenTakenPer60,
	PenDrawnPer60,
	NetPenPer60,
}

// Known reports whether n is one of the rate statistics in All.
func Known(n Name) bool {
	for _, k := range All {
		if k == n {
			return true
		}
	}
	return false
}
