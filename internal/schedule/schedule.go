package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNoSchedule is returned by Evaluate when no restart hours are configured.
var ErrNoSchedule = errors.New("no restart hours configured")

// Config describes a daily restart schedule.
// All times are interpreted in the fixed-offset civil calendar implied by
// UTCOffset; daylight-saving transitions are deliberately not modeled.
type Config struct {
	Hours         []int `yaml:"hours"`
	Minute        int   `yaml:"minute"`
	UTCOffset     int   `yaml:"utc_offset"`
	WarnBefore    []int `yaml:"warn_before"`
	TurnOffBefore int   `yaml:"turn_off_before"`
}

// Validate checks field ranges: hours within [0,23], minute within [0,59],
// and all lead-times non-negative.
func (c Config) Validate() error {
	for _, hour := range c.Hours {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("restart hour %d out of range [0,23]", hour)
		}
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("restart minute %d out of range [0,59]", c.Minute)
	}
	for _, lead := range c.WarnBefore {
		if lead < 0 {
			return fmt.Errorf("warning lead-time %d must be non-negative", lead)
		}
	}
	if c.TurnOffBefore < 0 {
		return fmt.Errorf("turn-off lead-time %d must be non-negative", c.TurnOffBefore)
	}
	return nil
}

// EventKind labels scheduler events.
type EventKind string

const (
	// KindWarning is a lead-time threshold crossing.
	KindWarning EventKind = "warning"
	// KindArrival marks the restart instant itself.
	KindArrival EventKind = "arrival"
)

// Event is a one-shot occurrence emitted by Evaluate.
type Event struct {
	Kind EventKind
	// LeadTime is the configured threshold in seconds; zero for arrivals.
	LeadTime int
	// SecondsLeft is measured against the event's own target, so it can be
	// negative or zero for arrivals.
	SecondsLeft int64
	Target      time.Time
}

// Evaluation is the outcome of a single scheduling cycle.
type Evaluation struct {
	SecondsLeft    int64
	Target         time.Time
	Events         []Event
	ActuatorActive bool
}

// Countdown returns the remaining time as a duration.
func (ev Evaluation) Countdown() time.Duration {
	return time.Duration(ev.SecondsLeft) * time.Second
}

// Scheduler computes the next restart target and tracks which warnings have
// already fired for it. It is not safe for concurrent use; each poll loop
// owns exactly one Scheduler.
type Scheduler struct {
	cfg        Config
	loc        *time.Location
	warnBefore []int
	lastTarget int64
	fired      map[int]bool
	arrived    bool
}

// New constructs a Scheduler after validating the configuration.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	warn := append([]int(nil), cfg.WarnBefore...)
	sort.Sort(sort.Reverse(sort.IntSlice(warn)))

	return &Scheduler{
		cfg:        cfg,
		loc:        time.FixedZone(fmt.Sprintf("UTC%+d", cfg.UTCOffset), cfg.UTCOffset*3600),
		warnBefore: warn,
		fired:      map[int]bool{},
	}, nil
}

// Location returns the fixed-offset zone restart times are interpreted in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// nextTarget returns the earliest candidate at or after now. Candidates whose
// time of day has already passed roll over by a fixed 24h day.
func (s *Scheduler) nextTarget(now time.Time) (time.Time, error) {
	if len(s.cfg.Hours) == 0 {
		return time.Time{}, ErrNoSchedule
	}

	local := now.In(s.loc)
	var best time.Time
	for _, hour := range s.cfg.Hours {
		candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, s.cfg.Minute, 0, 0, s.loc)
		if !candidate.After(now) {
			candidate = candidate.Add(24 * time.Hour)
		}
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	return best, nil
}

// Evaluate advances the scheduler by one cycle.
//
// When the computed target differs from the previous one the warning state is
// cleared, so every lead-time may fire again for the new target. If the
// previous target has just passed, its arrival event is emitted before the
// reset. Multiple warnings may fire in a single call when the poll interval
// is coarser than the spacing between lead-times.
func (s *Scheduler) Evaluate(now time.Time) (Evaluation, error) {
	target, err := s.nextTarget(now)
	if err != nil {
		return Evaluation{}, err
	}

	var events []Event

	if target.Unix() != s.lastTarget {
		if s.lastTarget != 0 && !s.arrived && now.Unix() >= s.lastTarget {
			events = append(events, Event{
				Kind:        KindArrival,
				SecondsLeft: s.lastTarget - now.Unix(),
				Target:      time.Unix(s.lastTarget, 0).In(s.loc),
			})
		}
		s.lastTarget = target.Unix()
		s.fired = map[int]bool{}
		s.arrived = false
	}

	secondsLeft := target.Unix() - now.Unix()

	for _, lead := range s.warnBefore {
		if secondsLeft > 0 && secondsLeft <= int64(lead) && !s.fired[lead] {
			s.fired[lead] = true
			events = append(events, Event{
				Kind:        KindWarning,
				LeadTime:    lead,
				SecondsLeft: secondsLeft,
				Target:      target,
			})
		}
	}

	if secondsLeft <= 0 && !s.arrived {
		s.arrived = true
		events = append(events, Event{
			Kind:        KindArrival,
			SecondsLeft: secondsLeft,
			Target:      target,
		})
	}

	return Evaluation{
		SecondsLeft:    secondsLeft,
		Target:         target,
		Events:         events,
		ActuatorActive: !withinActionWindow(secondsLeft, s.cfg.TurnOffBefore),
	}, nil
}

// withinActionWindow reports whether the actuator should be switched off:
// strictly after the turn-off threshold is crossed and strictly before the
// restart instant.
func withinActionWindow(secondsLeft int64, turnOffBefore int) bool {
	return secondsLeft > 0 && secondsLeft <= int64(turnOffBefore)
}
