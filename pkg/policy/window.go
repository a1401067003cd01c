package policy

import (
	"strconv"
	"strings"
	"time"
)

var weekdayOrder = map[string]int{
	"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3, "Fri": 4, "Sat": 5, "Sun": 6,
}

var goWeekdayAbbrev = map[time.Weekday]string{
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
	time.Sunday:    "Sun",
}

// matchesAnyWindow reports whether now (already converted to the policy's
// timezone) falls within at least one of the given window specs. A
// malformed spec never matches (fail closed).
func matchesAnyWindow(specs []string, now time.Time) bool {
	for _, spec := range specs {
		if matchesWindow(spec, now) {
			return true
		}
	}
	return false
}

func matchesWindow(spec string, now time.Time) bool {
	fields := strings.Fields(spec)
	if len(fields) == 0 || len(fields) > 2 {
		return false
	}

	if !matchesDaySpec(fields[0], now.Weekday()) {
		return false
	}
	if len(fields) == 1 {
		return true // whole-day spec
	}

	return matchesHourRange(fields[1], now.Hour()*60+now.Minute())
}

func matchesDaySpec(spec string, today time.Weekday) bool {
	todayAbbrev, ok := goWeekdayAbbrev[today]
	if !ok {
		return false
	}

	if !strings.Contains(spec, "-") {
		return spec == todayAbbrev
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return false
	}
	startOrd, ok := weekdayOrder[parts[0]]
	if !ok {
		return false
	}
	endOrd, ok := weekdayOrder[parts[1]]
	if !ok {
		return false
	}
	if startOrd > endOrd {
		return false // non-wrapping ranges only; malformed otherwise
	}
	todayOrd := weekdayOrder[todayAbbrev]
	return todayOrd >= startOrd && todayOrd <= endOrd
}

func matchesHourRange(spec string, nowMin int) bool {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return false
	}
	startMin, ok := parseHHMM(parts[0])
	if !ok {
		return false
	}
	endMin, ok := parseHHMM(parts[1])
	if !ok {
		return false
	}
	if startMin > endMin {
		return false
	}
	return nowMin >= startMin && nowMin <= endMin
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
