package ticketing

import (
	"strings"
	"time"
)

const defaultJourney = 8 * time.Hour

// journeys is a coarse route table, not a timetable.
var journeys = []struct {
	source, destination string
	duration            time.Duration
}{
	{"Delhi", "Mumbai", 16 * time.Hour},
	{"Chennai", "Bangalore", 5 * time.Hour},
}

func journeyDuration(source, destination string) time.Duration {
	for _, j := range journeys {
		if strings.Contains(source, j.source) && strings.Contains(destination, j.destination) {
			return j.duration
		}
	}
	return defaultJourney
}

// ArrivalTime adds the route duration to an "HH:mm" departure, wrapping past
// midnight. An unparsable departure yields "00:00".
func ArrivalTime(departure, source, destination string) string {
	dep, err := time.Parse(clockLayout, departure)
	if err != nil {
		return "00:00"
	}
	return dep.Add(journeyDuration(source, destination)).Format(clockLayout)
}
