package domain

// Phase identifies the current trading-session state. It carries no
// behavior of its own; derived properties come from the pure mapping
// functions below.
type Phase string

const (
	PhasePreOpen     Phase = "preopen"
	PhaseMorning     Phase = "morning_session"
	PhaseMiddayBreak Phase = "midday_break"
	PhaseAfternoon   Phase = "afternoon_session"
	PhaseClosed      Phase = "closed"
)

// IsTrading reports whether prices move during phase p.
func IsTrading(p Phase) bool {
	return p == PhaseMorning || p == PhaseAfternoon
}

// PhaseLabel returns the display label for a phase.
func PhaseLabel(p Phase) string {
	switch {
	case IsTrading(p):
		return "开盘中"
	case p == PhaseMiddayBreak:
		return "午间休市"
	default:
		return "休市"
	}
}
