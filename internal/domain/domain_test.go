package domain

import (
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]struct {
		want time.Weekday
		ok   bool
	}{
		"monday":    {time.Monday, true},
		" Sunday ":  {time.Sunday, true},
		"WED":       {time.Wednesday, true},
		"th":        {0, false},
		"someday":   {0, false},
		"":          {0, false},
		"saturdays": {0, false},
	}

	for in, tc := range cases {
		got, ok := ParseWeekday(in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want %v, %v", in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if got, ok := ParseTimeOfDay(" Evening "); !ok || got != Evening {
		t.Fatalf("expected evening, got %q %v", got, ok)
	}
	if _, ok := ParseTimeOfDay("noon"); ok {
		t.Fatal("noon must not parse")
	}
}

func TestWeeklyAvailability(t *testing.T) {
	var nilAvail *WeeklyAvailability
	if !nilAvail.Empty() || nilAvail.Slots(time.Monday) != nil {
		t.Fatal("nil availability must be empty")
	}

	a := &WeeklyAvailability{Days: map[string][]TimeOfDay{"monday": nil, "friday": {Morning}}}
	if a.Empty() {
		t.Fatal("availability with a slot must not be empty")
	}
	if got := a.Slots(time.Friday); len(got) != 1 || got[0] != Morning {
		t.Fatalf("unexpected friday slots: %v", got)
	}

	if !(&WeeklyAvailability{Days: map[string][]TimeOfDay{"monday": {}}}).Empty() {
		t.Fatal("days without slots must be empty")
	}
}
