package matching

import (
	"slices"
	"strings"
	"time"

	"github.com/spigell/gigmatch/internal/domain"
)

// AvailabilityMatches reports whether a recurring weekly availability covers the requested
// window. A missing availability or window never excludes a candidate; a declared availability
// without slots matches nothing that requires a day or a slot. This is a weekly-pattern check
// only: no calendar, no timezones.
func AvailabilityMatches(av *domain.WeeklyAvailability, w *domain.TimeWindow) bool {
	if av == nil || w == nil {
		return true
	}

	day, hasDay := requiredWeekday(w)
	tod, hasTOD := requiredTimeOfDay(w)

	switch {
	case !hasDay && !hasTOD:
		return true
	case hasDay && hasTOD:
		return slices.Contains(av.Slots(day), tod)
	case hasDay:
		return len(av.Slots(day)) > 0
	default:
		for _, d := range domain.Weekdays {
			if slices.Contains(av.Slots(d), tod) {
				return true
			}
		}
		return false
	}
}

func requiredWeekday(w *domain.TimeWindow) (time.Weekday, bool) {
	date := strings.TrimSpace(w.Date)
	if date != "" {
		for _, layout := range []string{time.DateOnly, time.RFC3339} {
			if t, err := time.Parse(layout, date); err == nil {
				return t.Weekday(), true
			}
		}
	}
	return domain.ParseWeekday(w.Day)
}

func requiredTimeOfDay(w *domain.TimeWindow) (domain.TimeOfDay, bool) {
	if tod, ok := domain.ParseTimeOfDay(string(w.TimeOfDay)); ok {
		return tod, true
	}
	return inferTimeOfDay(w.Time)
}

// inferTimeOfDay maps free text like "after 3pm" or "early morning" to a slot.
func inferTimeOfDay(text string) (domain.TimeOfDay, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	switch {
	case strings.Contains(text, "am"), strings.Contains(text, "morning"):
		return domain.Morning, true
	case strings.Contains(text, "afternoon"):
		return domain.Afternoon, true
	case strings.Contains(text, "pm"), strings.Contains(text, "evening"), strings.Contains(text, "night"):
		return domain.Evening, true
	default:
		return "", false
	}
}
