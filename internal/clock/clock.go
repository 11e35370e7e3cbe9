package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock_sim/internal/domain"
)

// minSleepInterval floors the tick sleep so a scaled-up simulation
// speed cannot turn the loop into a busy spin.
const minSleepInterval = 200 * time.Millisecond

// TimeOfDay is a wall-clock boundary within a trading day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (e.g. "09:30").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) secondsOfDay() int {
	return t.Hour*3600 + t.Minute*60
}

// on anchors the boundary onto a concrete day in the given location.
func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Config holds the immutable session-clock configuration.
type Config struct {
	Timezone        string
	MorningOpen     string
	MorningClose    string
	AfternoonOpen   string
	AfternoonClose  string
	TickSeconds     float64
	SimulationSpeed float64
	ForceOpen       bool
}

// DefaultConfig mirrors A-share session hours.
func DefaultConfig() Config {
	return Config{
		Timezone:        "Asia/Shanghai",
		MorningOpen:     "09:30",
		MorningClose:    "11:30",
		AfternoonOpen:   "13:00",
		AfternoonClose:  "15:00",
		TickSeconds:     2.0,
		SimulationSpeed: 1.0,
	}
}

// SessionClock classifies wall-clock time into trading phases. Phase
// and Countdown are pure functions of their arguments; all fields are
// immutable after construction.
type SessionClock struct {
	loc            *time.Location
	morningOpen    TimeOfDay
	morningClose   TimeOfDay
	afternoonOpen  TimeOfDay
	afternoonClose TimeOfDay
	tick           time.Duration
	speed          float64
	forceOpen      bool

	nowFn func() time.Time // overridable in tests
}

// New validates cfg and builds a SessionClock.
func New(cfg Config) (*SessionClock, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	boundaries := make([]TimeOfDay, 4)
	for n, raw := range []string{cfg.MorningOpen, cfg.MorningClose, cfg.AfternoonOpen, cfg.AfternoonClose} {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		boundaries[n] = tod
	}
	for n := 1; n < len(boundaries); n++ {
		if boundaries[n].secondsOfDay() <= boundaries[n-1].secondsOfDay() {
			return nil, fmt.Errorf("session boundaries must be strictly increasing")
		}
	}

	if cfg.TickSeconds <= 0 {
		return nil, fmt.Errorf("tick seconds must be positive")
	}
	if cfg.SimulationSpeed <= 0 {
		return nil, fmt.Errorf("simulation speed must be positive")
	}

	return &SessionClock{
		loc:            loc,
		morningOpen:    boundaries[0],
		morningClose:   boundaries[1],
		afternoonOpen:  boundaries[2],
		afternoonClose: boundaries[3],
		tick:           time.Duration(cfg.TickSeconds * float64(time.Second)),
		speed:          cfg.SimulationSpeed,
		forceOpen:      cfg.ForceOpen,
		nowFn:          time.Now,
	}, nil
}

// Now returns the current time in the market's timezone.
func (c *SessionClock) Now() time.Time {
	return c.nowFn().In(c.loc)
}

// Location returns the market timezone.
func (c *SessionClock) Location() *time.Location {
	return c.loc
}

// Phase classifies now into a trading phase. Weekends map to closed
// unless force-open is set, which pins the clock to the morning session.
func (c *SessionClock) Phase(now time.Time) domain.Phase {
	if c.forceOpen {
		return domain.PhaseMorning
	}

	now = now.In(c.loc)
	if !isTradingDay(now) {
		return domain.PhaseClosed
	}

	sec := secondOfDay(now)
	switch {
	case sec < c.morningOpen.secondsOfDay():
		return domain.PhasePreOpen
	case sec < c.morningClose.secondsOfDay():
		return domain.PhaseMorning
	case sec < c.afternoonOpen.secondsOfDay():
		return domain.PhaseMiddayBreak
	case sec < c.afternoonClose.secondsOfDay():
		return domain.PhaseAfternoon
	default:
		return domain.PhaseClosed
	}
}

// Countdown returns the whole seconds from now until the next boundary
// for the given phase: the session close for trading phases, the next
// opening for pre-open and midday break, and the next day's morning
// open when closed. Never negative.
func (c *SessionClock) Countdown(now time.Time, phase domain.Phase) int64 {
	now = now.In(c.loc)

	var target time.Time
	switch phase {
	case domain.PhasePreOpen:
		target = c.morningOpen.on(now, c.loc)
	case domain.PhaseMorning:
		target = c.morningClose.on(now, c.loc)
	case domain.PhaseMiddayBreak:
		target = c.afternoonOpen.on(now, c.loc)
	case domain.PhaseAfternoon:
		target = c.afternoonClose.on(now, c.loc)
	default:
		target = c.morningOpen.on(now.AddDate(0, 0, 1), c.loc)
	}

	diff := target.Sub(now)
	if diff < 0 {
		return 0
	}
	return int64(diff / time.Second)
}

// Status bundles phase, label and countdown for snapshots.
func (c *SessionClock) Status(now time.Time) domain.SessionStatus {
	now = now.In(c.loc)
	phase := c.Phase(now)
	return domain.SessionStatus{
		Phase:     phase,
		Label:     domain.PhaseLabel(phase),
		Timestamp: now,
		Countdown: c.Countdown(now, phase),
	}
}

// DayClosed reports whether the trading day has fully ended.
func (c *SessionClock) DayClosed(now time.Time) bool {
	if c.forceOpen {
		return false
	}
	now = now.In(c.loc)
	if !isTradingDay(now) {
		return true
	}
	return secondOfDay(now) >= c.afternoonClose.secondsOfDay()
}

// SleepInterval is the pause between ticks, the configured tick period
// divided by the simulation speed and floored at 200ms.
func (c *SessionClock) SleepInterval() time.Duration {
	speed := c.speed
	if speed < 0.1 {
		speed = 0.1
	}
	interval := time.Duration(float64(c.tick) / speed)
	if interval < minSleepInterval {
		interval = minSleepInterval
	}
	return interval
}

func isTradingDay(now time.Time) bool {
	wd := now.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func secondOfDay(now time.Time) int {
	return now.Hour()*3600 + now.Minute()*60 + now.Second()
}
