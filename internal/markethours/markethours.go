// Package markethours knows the NYSE regular session. The quote cache uses it
// to keep quotes short-lived while prices move and longer once the market shuts.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// NewYork is the exchange time zone.
var NewYork = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("markethours: load %s: %v", name, err))
	}
	return loc
}

// Regular session in New York time.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0

	EarlyCloseHour = 13
)

// IsMarketOpen returns true if t falls within the NYSE regular session
// (9:30 AM – 4:00 PM New York, Mon–Fri, 1:00 PM on half days, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	ny := t.In(NewYork)
	if !IsTradingDay(ny) {
		return false
	}
	open := time.Date(ny.Year(), ny.Month(), ny.Day(), OpenHour, OpenMinute, 0, 0, NewYork)
	return !ny.Before(open) && ny.Before(TodayClose(ny))
}

// IsWeekday returns true if t is Mon–Fri in New York.
func IsWeekday(t time.Time) bool {
	wd := t.In(NewYork).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !IsHoliday(t)
}

// NextOpen returns the next session open. If t is before today's open on a
// trading day, returns today's open.
func NextOpen(t time.Time) time.Time {
	ny := t.In(NewYork)

	todayOpen := time.Date(ny.Year(), ny.Month(), ny.Day(), OpenHour, OpenMinute, 0, 0, NewYork)
	if ny.Before(todayOpen) && IsTradingDay(ny) {
		return todayOpen
	}

	for i := 1; i <= 10; i++ { // holidays plus a weekend never span more
		d := time.Date(ny.Year(), ny.Month(), ny.Day()+i, OpenHour, OpenMinute, 0, 0, NewYork)
		if IsTradingDay(d) {
			return d
		}
	}
	return time.Date(ny.Year(), ny.Month(), ny.Day()+1, OpenHour, OpenMinute, 0, 0, NewYork)
}

// TodayClose returns the close of the session on t's New York date.
func TodayClose(t time.Time) time.Time {
	ny := t.In(NewYork)
	if IsEarlyClose(ny) {
		return time.Date(ny.Year(), ny.Month(), ny.Day(), EarlyCloseHour, 0, 0, 0, NewYork)
	}
	return time.Date(ny.Year(), ny.Month(), ny.Day(), CloseHour, CloseMinute, 0, 0, NewYork)
}

// TimeUntilClose returns the duration until today's close, or 0 when the
// market is not open.
func TimeUntilClose(t time.Time) time.Duration {
	if !IsMarketOpen(t) {
		return 0
	}
	return TodayClose(t).Sub(t)
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t)
	ny := next.In(NewYork)
	return fmt.Sprintf("Market Closed — opens %s %s ET (%s)",
		ny.Weekday().String()[:3], ny.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
