package utils

import (
	"time"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------

// MarketHours answers open/closed questions for one exchange calendar.
// When the MIC is unknown it falls back to a simple Mon-Fri 09:30-16:00
// New York schedule.
type MarketHours struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewMarketHours loads the calendar for a MIC code (ISO 10383, e.g. "xnys").
func NewMarketHours(mic string) *MarketHours {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &MarketHours{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &MarketHours{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (mh *MarketHours) IsTradingDay(t time.Time) bool {
	if mh.Timezone != nil {
		t = t.In(mh.Timezone)
	}

	if mh.Fallback {
		weekday := t.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return mh.Calendar.IsBusinessDay(t)
}

// -----------------------------------------------------------------------------

// IsOpen checks if the market is open at a specific minute.
func (mh *MarketHours) IsOpen(t time.Time) bool {
	if mh.Timezone != nil {
		t = t.In(mh.Timezone)
	}

	if mh.Fallback {
		if !mh.IsTradingDay(t) {
			return false
		}
		hour := t.Hour()
		minute := t.Minute()
		// 9:30 - 16:00 NY Time
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return mh.Calendar.IsOpen(t)
}
