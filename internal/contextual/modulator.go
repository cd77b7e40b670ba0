// Package contextual adjusts response tone from wall-clock context. It only
// ever runs on the non-crisis path and never touches clinical content.
package contextual

import (
	"strings"
	"time"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// Snapshot is a pure function of wall-clock time in the user's timezone.
type Snapshot struct {
	TimeOfDay TimeOfDay `json:"time_of_day"`
	Season    Season    `json:"season"`
	IsWeekend bool      `json:"is_weekend"`
}

// CurrentContext buckets the given instant: [5,12) morning, [12,17)
// afternoon, [17,22) evening, else night. Seasons follow meteorological
// boundaries.
func CurrentContext(now time.Time, loc *time.Location) Snapshot {
	if loc != nil {
		now = now.In(loc)
	}

	var tod TimeOfDay
	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		tod = Morning
	case hour >= 12 && hour < 17:
		tod = Afternoon
	case hour >= 17 && hour < 22:
		tod = Evening
	default:
		tod = Night
	}

	var season Season
	switch now.Month() {
	case time.March, time.April, time.May:
		season = Spring
	case time.June, time.July, time.August:
		season = Summer
	case time.September, time.October, time.November:
		season = Autumn
	default:
		season = Winter
	}

	weekday := now.Weekday()
	return Snapshot{
		TimeOfDay: tod,
		Season:    season,
		IsWeekend: weekday == time.Saturday || weekday == time.Sunday,
	}
}

var nightReplacer = strings.NewReplacer(
	"today", "tonight",
	"Today", "Tonight",
)

var eveningReplacer = strings.NewReplacer(
	"this morning", "earlier today",
	"This morning", "Earlier today",
)

// Adapt performs low-risk, string-level substitutions only.
func Adapt(responseText string, snapshot Snapshot) string {
	switch snapshot.TimeOfDay {
	case Night:
		return nightReplacer.Replace(responseText)
	case Evening:
		return eveningReplacer.Replace(responseText)
	default:
		return responseText
	}
}
