package contextual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2025, month, day, hour, 30, 0, 0, time.UTC)
}

func TestCurrentContext_TimeOfDayBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want TimeOfDay
	}{
		{4, Night},
		{5, Morning},
		{11, Morning},
		{12, Afternoon},
		{16, Afternoon},
		{17, Evening},
		{21, Evening},
		{22, Night},
		{0, Night},
	}

	for _, tc := range cases {
		snap := CurrentContext(at(time.June, 2, tc.hour), time.UTC)
		assert.Equal(t, tc.want, snap.TimeOfDay, "hour %d", tc.hour)
	}
}

func TestCurrentContext_Seasons(t *testing.T) {
	cases := []struct {
		month time.Month
		want  Season
	}{
		{time.January, Winter},
		{time.February, Winter},
		{time.March, Spring},
		{time.May, Spring},
		{time.June, Summer},
		{time.August, Summer},
		{time.September, Autumn},
		{time.November, Autumn},
		{time.December, Winter},
	}

	for _, tc := range cases {
		snap := CurrentContext(at(tc.month, 2, 10), time.UTC)
		assert.Equal(t, tc.want, snap.Season, "month %s", tc.month)
	}
}

func TestCurrentContext_Weekend(t *testing.T) {
	// 2025-06-07 is a Saturday, 2025-06-09 a Monday.
	assert.True(t, CurrentContext(at(time.June, 7, 10), time.UTC).IsWeekend)
	assert.False(t, CurrentContext(at(time.June, 9, 10), time.UTC).IsWeekend)
}

func TestCurrentContext_Timezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)

	// 22:00 UTC is early morning in Tokyo.
	snap := CurrentContext(at(time.June, 2, 22), tokyo)
	assert.Equal(t, Morning, snap.TimeOfDay)
}

func TestAdapt_NightSubstitution(t *testing.T) {
	snap := Snapshot{TimeOfDay: Night}

	assert.Equal(t, "How was tonight for you?", Adapt("How was today for you?", snap))
	assert.Equal(t, "Tonight sounded hard.", Adapt("Today sounded hard.", snap))
}

func TestAdapt_DaytimeUnchanged(t *testing.T) {
	snap := Snapshot{TimeOfDay: Morning}

	text := "How was today for you?"
	assert.Equal(t, text, Adapt(text, snap))
}
