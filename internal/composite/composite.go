// Package composite serializes job and freelancer attributes into the single text that is sent
// to the embedding provider. Both sides emit the same categories in the same order so that
// vectors generated at profile save time and at query time stay comparable. Labels are shared too:
// primary text, skills, tasks/services, availability, location, pricing.
package composite

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/gigmatch/internal/domain"
)

const (
	fragmentSep = ". "
	fieldSep    = "; "
	listSep     = ", "
)

// ErrEmptyText is returned when the primary text is empty after trimming.
var ErrEmptyText = errors.New("primary text must not be empty")

// Job builds the composite text for a job query.
func Job(q domain.JobQuery) (string, error) {
	primary := strings.TrimSpace(q.Description)
	if primary == "" {
		return "", fmt.Errorf("job description: %w", ErrEmptyText)
	}

	return join(
		primary,
		labeled("Skills", list(q.Skills)),
		labeled("Tasks/services", list(q.Tasks)),
		labeled("Availability", jobWindow(q.Window)),
		labeled("Location", jobLocation(q.Location)),
		labeled("Pricing", strings.TrimSpace(q.Budget)),
	), nil
}

// Freelancer builds the composite text for a freelancer profile. Headline and description
// together form the primary text.
func Freelancer(f domain.Freelancer) (string, error) {
	primary := join(strings.TrimSpace(f.Headline), strings.TrimSpace(f.Description))
	if primary == "" {
		return "", fmt.Errorf("freelancer %s headline and description: %w", f.ID, ErrEmptyText)
	}

	rate := ""
	if f.HourlyRate > 0 {
		rate = strconv.FormatFloat(f.HourlyRate, 'f', 2, 64) + " per hour"
	}

	return join(
		primary,
		labeled("Skills", list(f.Skills)),
		labeled("Tasks/services", list(f.Services)),
		labeled("Availability", weekly(f.Availability)),
		labeled("Location", freelancerLocation(f.Location)),
		labeled("Pricing", rate),
	), nil
}

// Candidate builds the text a search hit is explained with: headline, description and skills.
// It is empty when all three are.
func Candidate(c domain.Candidate) string {
	return join(
		strings.TrimSpace(c.Headline),
		strings.TrimSpace(c.Description),
		labeled("Skills", list(c.Skills)),
	)
}

func join(fragments ...string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.TrimRight(strings.TrimSpace(f), ".")
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, fragmentSep)
}

func labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func list(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, listSep)
}

func fields(values ...string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, fieldSep)
}

func jobWindow(w *domain.TimeWindow) string {
	if w == nil {
		return ""
	}

	day := ""
	if t, err := time.Parse(time.DateOnly, strings.TrimSpace(w.Date)); err == nil {
		day = t.Weekday().String()
	} else if d, ok := domain.ParseWeekday(w.Day); ok {
		day = d.String()
	}

	slot := ""
	if tod, ok := domain.ParseTimeOfDay(string(w.TimeOfDay)); ok {
		slot = string(tod)
	}

	flexible := ""
	if w.Flexible {
		flexible = "flexible"
	}

	return fields(strings.TrimSpace(day+" "+slot), w.Date, w.Time, flexible, w.Notes)
}

func weekly(a *domain.WeeklyAvailability) string {
	if a.Empty() {
		if a != nil && a.ShortNotice {
			return "available at short notice"
		}
		return ""
	}

	days := make([]string, 0, len(domain.Weekdays)+1)
	for _, d := range domain.Weekdays {
		slots := a.Slots(d)
		if len(slots) == 0 {
			continue
		}
		ordered := make([]string, 0, len(slots))
		for _, tod := range domain.TimesOfDay {
			for _, s := range slots {
				if s == tod {
					ordered = append(ordered, string(tod))
					break
				}
			}
		}
		if len(ordered) > 0 {
			days = append(days, d.String()+" "+strings.Join(ordered, listSep))
		}
	}

	if a.ShortNotice {
		days = append(days, "available at short notice")
	}

	return fields(days...)
}

func jobLocation(l *domain.JobLocation) string {
	if l == nil {
		return ""
	}
	return fields(l.Postcode, l.Address)
}

func freelancerLocation(l *domain.FreelancerLocation) string {
	if l == nil {
		return ""
	}
	radius := ""
	if l.TravelRadius != "" {
		radius = "travels " + strings.ReplaceAll(string(l.TravelRadius), "_", " ")
	}
	return fields(l.Postcode, radius)
}
