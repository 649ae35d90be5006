package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ─── Weekly Schedule ────────────────────────────────────────────────────────
// The schedule is static configuration: weekday → expected session start.
// Days without an entry have no session, so neither lateness nor absence
// applies to them.

// SessionTime is a wall-clock start time within a day.
type SessionTime struct {
	Hour   int
	Minute int
}

// Schedule maps weekdays to session start times.
type Schedule map[time.Weekday]SessionTime

// StartFor returns the session start for a weekday, if one is scheduled.
func (s Schedule) StartFor(day time.Weekday) (SessionTime, bool) {
	st, ok := s[day]
	return st, ok
}

// SessionStart anchors the scheduled start on now's calendar date.
// Returns false when now's weekday has no session.
func (s Schedule) SessionStart(now time.Time) (time.Time, bool) {
	st, ok := s[now.Weekday()]
	if !ok {
		return time.Time{}, false
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, st.Hour, st.Minute, 0, 0, now.Location()), true
}

// ParseSchedule builds a Schedule from config data keyed by lowercase
// weekday name ("monday" … "sunday") with "HH:MM" values. An empty value
// means no session that day.
func ParseSchedule(raw map[string]string) (Schedule, error) {
	days := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}

	sched := make(Schedule, len(raw))
	for name, value := range raw {
		day, ok := days[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		if value == "" {
			continue
		}
		st, err := parseSessionTime(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sched[day] = st
	}
	return sched, nil
}

func parseSessionTime(value string) (SessionTime, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return SessionTime{}, fmt.Errorf("invalid time %q, want HH:MM", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return SessionTime{}, fmt.Errorf("invalid hour in %q", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return SessionTime{}, fmt.Errorf("invalid minute in %q", value)
	}
	return SessionTime{Hour: h, Minute: m}, nil
}
