package booking

import (
	"fmt"
	"time"
)

const slotLayout = "15:04"

// Slots generates the bookable start times between opening and closing hour
// at the given granularity. The closing time itself is the last slot; no
// slot ever exceeds it.
func Slots(openingHour, closingHour, stepMinutes int) []string {
	if stepMinutes <= 0 || closingHour <= openingHour {
		return nil
	}
	var out []string
	for m := openingHour * 60; m <= closingHour*60; m += stepMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// EndTime adds a duration in minutes to a "15:04" start time.
func EndTime(start string, minutes int) (string, error) {
	t, err := time.Parse(slotLayout, start)
	if err != nil {
		return "", fmt.Errorf("parse slot %q: %w", start, err)
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(slotLayout), nil
}
