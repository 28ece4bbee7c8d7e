package composite

import (
	"errors"
	"testing"

	"github.com/spigell/gigmatch/internal/domain"
)

func TestJobOnlyDescription(t *testing.T) {
	got, err := Job(domain.JobQuery{Description: "  Fix a leaking tap  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Fix a leaking tap" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestJobEmptyDescription(t *testing.T) {
	for _, desc := range []string{"", "   ", "\n\t"} {
		if _, err := Job(domain.JobQuery{Description: desc, Skills: []string{"plumbing"}}); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText for %q, got %v", desc, err)
		}
	}
}

func TestJobFullOrder(t *testing.T) {
	q := domain.JobQuery{
		Description: "Paint the living room.",
		Skills:      []string{"painting", " ", "plastering"},
		Tasks:       []string{"walls", "ceiling"},
		Budget:      "EUR 300",
		Window: &domain.TimeWindow{
			Date:      "2025-03-03",
			TimeOfDay: domain.Morning,
			Flexible:  true,
		},
		Location: &domain.JobLocation{Postcode: "1312AB", Address: "Damrak 1"},
	}

	got, err := Job(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Paint the living room. Skills: painting, plastering. Tasks/services: walls, ceiling. " +
		"Availability: Monday morning; 2025-03-03; flexible. Location: 1312AB; Damrak 1. Pricing: EUR 300"
	if got != want {
		t.Fatalf("unexpected text:\n got: %q\nwant: %q", got, want)
	}
}

func TestJobWindowFallsBackToDay(t *testing.T) {
	got, err := Job(domain.JobQuery{
		Description: "Walk the dog",
		Window:      &domain.TimeWindow{Day: "sat", Time: "after 6pm"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Walk the dog. Availability: Saturday; after 6pm" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestFreelancerDeterministic(t *testing.T) {
	f := domain.Freelancer{
		ID:          "f1",
		Headline:    "Handyman",
		Description: "Ten years of small repairs",
		Skills:      []string{"plumbing", "carpentry"},
		Services:    []string{"furniture assembly"},
		Availability: &domain.WeeklyAvailability{
			Days: map[string][]domain.TimeOfDay{
				"wednesday": {domain.Evening, domain.Morning},
				"monday":    {domain.Afternoon},
			},
			ShortNotice: true,
		},
		Location:   &domain.FreelancerLocation{Postcode: "1012", TravelRadius: domain.RadiusCityPlus},
		HourlyRate: 35,
	}

	want := "Handyman. Ten years of small repairs. Skills: plumbing, carpentry. Tasks/services: furniture assembly. " +
		"Availability: Monday afternoon; Wednesday morning, evening; available at short notice. " +
		"Location: 1012; travels city plus. Pricing: 35.00 per hour"

	for i := 0; i < 20; i++ {
		got, err := Freelancer(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("unexpected text:\n got: %q\nwant: %q", got, want)
		}
	}
}

func TestFreelancerRequiresPrimaryText(t *testing.T) {
	_, err := Freelancer(domain.Freelancer{ID: "f1", Skills: []string{"x"}})
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestCandidate(t *testing.T) {
	cases := []struct {
		name string
		c    domain.Candidate
		want string
	}{
		{
			name: "all fields",
			c:    domain.Candidate{Headline: "Plumber.", Description: " Fixes sinks ", Skills: []string{"plumbing", " "}},
			want: "Plumber. Fixes sinks. Skills: plumbing",
		},
		{name: "skills only", c: domain.Candidate{Skills: []string{"plumbing"}}, want: "Skills: plumbing"},
		{name: "headline only", c: domain.Candidate{Headline: "Gardener"}, want: "Gardener"},
		{name: "empty", c: domain.Candidate{Headline: " ", Skills: []string{""}}, want: ""},
	}

	for _, tc := range cases {
		if got := Candidate(tc.c); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFreelancerShortNoticeWithoutSlots(t *testing.T) {
	got, err := Freelancer(domain.Freelancer{
		ID:           "f1",
		Headline:     "Cleaner",
		Availability: &domain.WeeklyAvailability{Days: map[string][]domain.TimeOfDay{"monday": {}}, ShortNotice: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Cleaner. Availability: available at short notice" {
		t.Fatalf("unexpected text: %q", got)
	}
}
