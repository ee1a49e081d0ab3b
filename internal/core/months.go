package core

import "fmt"

var monthNames = [...]string{
	"januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december",
}

// MonthName returns the Dutch display name for a bucket, e.g. "maart 2024".
// Period 0 is the opening balance.
func MonthName(year, month int) string {
	switch {
	case month == 0:
		return fmt.Sprintf("beginbalans %d", year)
	case month >= 1 && month <= 12:
		return fmt.Sprintf("%s %d", monthNames[month-1], year)
	default:
		return fmt.Sprintf("periode %d %d", month, year)
	}
}
