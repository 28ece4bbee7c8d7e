// Package domain holds the records and request types shared by the matcher, the stores and the
// transports.
package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// TimesOfDay lists the slots in the order they are rendered.
var TimesOfDay = []TimeOfDay{Morning, Afternoon, Evening}

// ParseTimeOfDay normalizes a slot token. The second value is false for unknown tokens.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	switch TimeOfDay(strings.ToLower(strings.TrimSpace(s))) {
	case Morning:
		return Morning, true
	case Afternoon:
		return Afternoon, true
	case Evening:
		return Evening, true
	default:
		return "", false
	}
}

type TravelRadius string

const (
	RadiusNearby   TravelRadius = "nearby"
	RadiusCity     TravelRadius = "city"
	RadiusCityPlus TravelRadius = "city_plus"
)

// Weekdays lists weekday names Monday first, the order availability is rendered in.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WeekdayKey returns the lowercase name used as availability key.
func WeekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseWeekday accepts full or three-letter English weekday names in any case.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for _, d := range Weekdays {
		key := WeekdayKey(d)
		if s == key || s == key[:3] {
			return d, true
		}
	}
	return 0, false
}

// WeeklyAvailability is a recurring weekly pattern: weekday key -> time-of-day slots.
type WeeklyAvailability struct {
	Days        map[string][]TimeOfDay `json:"days,omitempty" mapstructure:"days"`
	ShortNotice bool                   `json:"short_notice,omitempty" mapstructure:"short_notice"`
}

// Slots returns the slots declared for the weekday.
func (a *WeeklyAvailability) Slots(d time.Weekday) []TimeOfDay {
	if a == nil {
		return nil
	}
	return a.Days[WeekdayKey(d)]
}

// Empty reports whether no slot is declared on any day.
func (a *WeeklyAvailability) Empty() bool {
	if a == nil {
		return true
	}
	for _, slots := range a.Days {
		if len(slots) > 0 {
			return false
		}
	}
	return true
}

// FreelancerLocation is where a freelancer is based and how far they travel.
type FreelancerLocation struct {
	Postcode     string       `json:"postcode,omitempty" mapstructure:"postcode"`
	TravelRadius TravelRadius `json:"travel_radius,omitempty" mapstructure:"travel_radius"`
}

// TimeWindow is the requested moment of a job. Every field is optional.
type TimeWindow struct {
	Date      string    `json:"date,omitempty" mapstructure:"date"`
	Day       string    `json:"day,omitempty" mapstructure:"day"`
	TimeOfDay TimeOfDay `json:"time_of_day,omitempty" mapstructure:"time_of_day"`
	Time      string    `json:"time,omitempty" mapstructure:"time"`
	Flexible  bool      `json:"flexible,omitempty" mapstructure:"flexible"`
	Notes     string    `json:"notes,omitempty" mapstructure:"notes"`
}

// JobLocation is where a job takes place.
type JobLocation struct {
	Postcode string `json:"postcode,omitempty" mapstructure:"postcode"`
	Address  string `json:"address,omitempty" mapstructure:"address"`
}

// JobQuery is the request-scoped description of what a client needs.
type JobQuery struct {
	Description string       `json:"description"`
	Skills      []string     `json:"skills,omitempty"`
	Tasks       []string     `json:"tasks,omitempty"`
	Budget      string       `json:"budget,omitempty"`
	Window      *TimeWindow  `json:"time_window,omitempty"`
	Location    *JobLocation `json:"location,omitempty"`
}

// Job is a persisted job request.
type Job struct {
	ID        string
	ClientID  string
	Status    string
	Query     JobQuery
	Embedding []float32
	CreatedAt time.Time
}

// Freelancer is a persisted freelancer profile as used by the indexer.
type Freelancer struct {
	ID           string
	ProfileID    string
	Headline     string
	Description  string
	Skills       []string
	Services     []string
	Availability *WeeklyAvailability
	Location     *FreelancerLocation
	HourlyRate   float64
}

// Attributes are the per-candidate fields fetched in one batch after the vector search.
type Attributes struct {
	Availability *WeeklyAvailability
	Location     *FreelancerLocation
}

// Candidate is a vector search hit. Attributes are filled by the ranker.
type Candidate struct {
	ID          string
	ProfileID   string
	Similarity  float64
	Headline    string
	Description string
	Skills      []string
	Attributes
}

// Profile carries display fields joined into match results.
type Profile struct {
	ID       string
	FullName string
	PhotoURL string
	Location string
}

// MatchResult is the externally visible shape of a ranked candidate.
type MatchResult struct {
	FreelancerID      string   `json:"freelancer_id"`
	ProfileID         string   `json:"profile_id,omitempty"`
	Headline          string   `json:"headline,omitempty"`
	Skills            []string `json:"skills"`
	Similarity        float64  `json:"similarity"`
	Relevance         float64  `json:"relevance"`
	Explanation       string   `json:"explanation"`
	AvailabilityMatch bool     `json:"availability_match"`
	LocationMatch     bool     `json:"location_match"`
	PhotoURL          string   `json:"photo_url,omitempty"`
	FullName          string   `json:"full_name,omitempty"`
	Location          string   `json:"location,omitempty"`
}
