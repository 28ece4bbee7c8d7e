// Package schema validates loosely structured JSON payloads (request bodies and jsonb columns)
// before they are decoded into domain types.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/gigmatch/internal/domain"
)

const (
	JobQuery           = "job_query"
	Availability       = "availability"
	FreelancerLocation = "freelancer_location"
	TimeWindow         = "time_window"
	JobLocation        = "job_location"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema validation failed")

//go:embed schemas/*.schema.json
var files embed.FS

var (
	loadOnce sync.Once
	loadErr  error
	compiled map[string]*gojsonschema.Schema
)

func load() error {
	loadOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema)
		for _, name := range []string{JobQuery, Availability, FreelancerLocation, TimeWindow, JobLocation} {
			data, err := files.ReadFile("schemas/" + name + ".schema.json")
			if err != nil {
				loadErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				loadErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return loadErr
}

// Validate checks the raw JSON document against the named schema.
func Validate(name string, doc []byte) error {
	if err := load(); err != nil {
		return err
	}

	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalid, name, strings.Join(msgs, "; "))
}

func isEmpty(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}"))
}

// DecodeAvailability validates and decodes a weekly availability payload. Day keys are
// normalized to lowercase full weekday names and unknown slots are rejected by the schema.
// Empty payloads decode to nil.
func DecodeAvailability(raw []byte) (*domain.WeeklyAvailability, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	if err := Validate(Availability, raw); err != nil {
		return nil, err
	}

	var decoded domain.WeeklyAvailability
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}

	days := make(map[string][]domain.TimeOfDay, len(decoded.Days))
	for key, slots := range decoded.Days {
		day, ok := domain.ParseWeekday(key)
		if !ok {
			return nil, fmt.Errorf("%w: availability: unknown weekday %q", ErrInvalid, key)
		}
		for _, slot := range slots {
			if tod, ok := domain.ParseTimeOfDay(string(slot)); ok {
				days[domain.WeekdayKey(day)] = append(days[domain.WeekdayKey(day)], tod)
			}
		}
	}
	decoded.Days = days

	return &decoded, nil
}

// DecodeLocation validates and decodes a freelancer location payload. Empty payloads decode to nil.
func DecodeLocation(raw []byte) (*domain.FreelancerLocation, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	if err := Validate(FreelancerLocation, raw); err != nil {
		return nil, err
	}

	var loc domain.FreelancerLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	loc.Postcode = strings.TrimSpace(loc.Postcode)
	loc.TravelRadius = domain.TravelRadius(strings.ToLower(strings.TrimSpace(string(loc.TravelRadius))))

	return &loc, nil
}

// DecodeTimeWindow validates and decodes a stored job time window. The slot is normalized and
// an unknown one is rejected. Empty payloads decode to nil.
func DecodeTimeWindow(raw []byte) (*domain.TimeWindow, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	if err := Validate(TimeWindow, raw); err != nil {
		return nil, err
	}

	var w domain.TimeWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode time window: %w", err)
	}

	if slot := strings.TrimSpace(string(w.TimeOfDay)); slot != "" {
		tod, ok := domain.ParseTimeOfDay(slot)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown time of day %q", ErrInvalid, TimeWindow, slot)
		}
		w.TimeOfDay = tod
	}
	w.Date = strings.TrimSpace(w.Date)
	w.Day = strings.TrimSpace(w.Day)

	return &w, nil
}

// DecodeJobLocation validates and decodes a stored job location. Empty payloads decode to nil.
func DecodeJobLocation(raw []byte) (*domain.JobLocation, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	if err := Validate(JobLocation, raw); err != nil {
		return nil, err
	}

	var loc domain.JobLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode job location: %w", err)
	}
	loc.Postcode = strings.TrimSpace(loc.Postcode)

	return &loc, nil
}
