package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date form used for every date key.
const DateLayout = "2006-01-02"

// Period is a logged bleed window. An empty EndDate means a single day.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

// Prediction flags every day within Range whole days of Date.
type Prediction struct {
	Date  string `json:"date"`
	Range int    `json:"range"`
}

// CheckIn is the per-day record shown on the grid.
type CheckIn struct {
	Mood string `json:"mood,omitempty"`
}

// CheckIns maps ISO dates to check-ins.
type CheckIns map[string]CheckIn

// Month is the calendar cursor.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Add moves the cursor by n months, rolling over year boundaries.
func (m Month) Add(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// First returns midnight UTC on day 1.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Title renders "March 2024".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// String renders "2024-03".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Contains reports whether the ISO date falls in m.
func (m Month) Contains(date string) bool {
	d, ok := ParseDate(date)
	return ok && MonthOf(d) == m
}

// ParseDate parses an ISO date. Malformed input reports ok=false.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t's calendar date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Mood labels accepted on check-ins.
const (
	MoodCalm       = "calm"
	MoodHappy      = "happy"
	MoodEnergized  = "energized"
	MoodTender     = "tender"
	MoodIrritable  = "irritable"
	MoodSad        = "sad"
	MoodAnxious    = "anxious"
	MoodReflective = "reflective"
)

// FallbackGlyph is shown for a mood outside the known set.
const FallbackGlyph = "💭"

// Moods returns the mood labels in display order.
func Moods() []string {
	return []string{
		MoodCalm, MoodHappy, MoodEnergized, MoodTender,
		MoodIrritable, MoodSad, MoodAnxious, MoodReflective,
	}
}

// IsMood reports whether s is a known mood label.
func IsMood(s string) bool {
	for _, m := range Moods() {
		if m == s {
			return true
		}
	}
	return false
}

// MoodGlyph returns the emoji for a mood, or FallbackGlyph.
func MoodGlyph(mood string) string {
	switch mood {
	case MoodCalm:
		return "😌"
	case MoodHappy:
		return "😊"
	case MoodEnergized:
		return "✨"
	case MoodTender:
		return "🌸"
	case MoodIrritable:
		return "😤"
	case MoodSad:
		return "😔"
	case MoodAnxious:
		return "😰"
	case MoodReflective:
		return "🤔"
	}
	return FallbackGlyph
}
