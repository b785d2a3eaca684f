package markethours

import "time"

// NYSE full-day closures for 2026.
var nyseHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.January, 19},  // Martin Luther King Jr. Day
	{time.February, 16}, // Washington's Birthday
	{time.April, 3},     // Good Friday
	{time.May, 25},      // Memorial Day
	{time.June, 19},     // Juneteenth
	{time.July, 3},      // Independence Day (observed)
	{time.September, 7}, // Labor Day
	{time.November, 26}, // Thanksgiving
	{time.December, 25}, // Christmas
}

// Sessions that close at 13:00 New York time.
var nyseEarlyCloses2026 = []struct {
	month time.Month
	day   int
}{
	{time.November, 27}, // day after Thanksgiving
	{time.December, 24}, // Christmas Eve
}

var (
	holidaySet    map[string]bool
	earlyCloseSet map[string]bool
)

func init() {
	holidaySet = make(map[string]bool, len(nyseHolidays2026))
	for _, h := range nyseHolidays2026 {
		holidaySet[dateKey(2026, h.month, h.day)] = true
	}
	earlyCloseSet = make(map[string]bool, len(nyseEarlyCloses2026))
	for _, h := range nyseEarlyCloses2026 {
		earlyCloseSet[dateKey(2026, h.month, h.day)] = true
	}
}

// IsHoliday returns true if the date (in New York) is an NYSE holiday.
func IsHoliday(t time.Time) bool {
	ny := t.In(NewYork)
	return holidaySet[dateKey(ny.Year(), ny.Month(), ny.Day())]
}

// IsEarlyClose returns true if the date (in New York) is a half session.
func IsEarlyClose(t time.Time) bool {
	ny := t.In(NewYork)
	return earlyCloseSet[dateKey(ny.Year(), ny.Month(), ny.Day())]
}

func dateKey(y int, m time.Month, d int) string {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
