package matching

import (
	"strconv"
	"strings"

	"github.com/spigell/gigmatch/internal/domain"
)

const (
	nearbyMaxDistance   = 2
	cityPlusMaxDistance = 10

	// Numeric postcode prefixes of the single supported city.
	cityPrefixFrom = 1300
	cityPrefixTo   = 1400
)

// LocationMatches reports whether the freelancer's travel radius covers the job postcode.
//
// Distance is the absolute difference of the 4-digit numeric postcode prefixes. That only
// approximates geography inside one city's postcode numbering and is not a geo distance.
// Missing or non-numeric postcodes and unknown radius values never exclude a candidate.
func LocationMatches(fl *domain.FreelancerLocation, jl *domain.JobLocation) bool {
	if fl == nil || jl == nil {
		return true
	}

	freelancerPrefix, ok := postcodePrefix(fl.Postcode)
	if !ok {
		return true
	}
	jobPrefix, ok := postcodePrefix(jl.Postcode)
	if !ok {
		return true
	}

	d := freelancerPrefix - jobPrefix
	if d < 0 {
		d = -d
	}

	switch domain.TravelRadius(strings.ToLower(strings.TrimSpace(string(fl.TravelRadius)))) {
	case domain.RadiusNearby:
		return d <= nearbyMaxDistance
	case domain.RadiusCity:
		return jobPrefix >= cityPrefixFrom && jobPrefix < cityPrefixTo
	case domain.RadiusCityPlus:
		return d <= cityPlusMaxDistance
	default:
		return true
	}
}

func postcodePrefix(postcode string) (int, bool) {
	postcode = strings.TrimSpace(postcode)
	if len(postcode) < 4 {
		return 0, false
	}
	for i := 0; i < 4; i++ {
		if postcode[i] < '0' || postcode[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(postcode[:4])
	if err != nil {
		return 0, false
	}
	return n, true
}
