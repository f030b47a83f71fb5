// Package prediction projects upcoming period starts from logged cycles.
package prediction

import (
	"math"
	"sort"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
)

// DefaultCycleLength is used when neither logged history nor onboarding
// gives a cycle length.
const DefaultCycleLength = 28

// Config controls how far ahead and how wide predictions are.
type Config struct {
	Ahead int // future cycles to predict
	Range int // symmetric window in days
}

// DefaultConfig predicts three cycles with a two-day window.
func DefaultConfig() Config {
	return Config{Ahead: 3, Range: 2}
}

// AverageGap returns the mean number of days between consecutive starts,
// rounded to the nearest day. Malformed and duplicate dates are ignored and
// a run of back-to-back days counts as one start. ok is false with fewer
// than two usable starts.
func AverageGap(starts []string) (int, bool) {
	days := sortedStarts(starts)
	if len(days) < 2 {
		return 0, false
	}
	total := 0
	for i := 1; i < len(days); i++ {
		total += int(days[i].Sub(days[i-1]).Hours() / 24)
	}
	return int(math.Round(float64(total) / float64(len(days)-1))), true
}

// CycleLength picks the average gap, then fallback, then DefaultCycleLength.
func CycleLength(starts []string, fallback int) int {
	if n, ok := AverageGap(starts); ok && n > 0 {
		return n
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultCycleLength
}

// Predict returns cfg.Ahead predictions following the latest start. Cycles
// that would begin before today are skipped so the first prediction is
// never in the past. It returns nil when there are no usable starts.
func Predict(starts []string, fallback int, cfg Config, today time.Time) []calendar.Prediction {
	days := sortedStarts(starts)
	if len(days) == 0 || cfg.Ahead <= 0 {
		return nil
	}
	length := CycleLength(starts, fallback)

	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	next := days[len(days)-1].AddDate(0, 0, length)
	for next.Before(today) {
		next = next.AddDate(0, 0, length)
	}

	out := make([]calendar.Prediction, 0, cfg.Ahead)
	for i := 0; i < cfg.Ahead; i++ {
		out = append(out, calendar.Prediction{Date: calendar.FormatDate(next), Range: cfg.Range})
		next = next.AddDate(0, 0, length)
	}
	return out
}

// sortedStarts parses, sorts and groups starts. Each run of days at most one
// day apart collapses to its first day.
func sortedStarts(starts []string) []time.Time {
	days := make([]time.Time, 0, len(starts))
	for _, s := range starts {
		if d, ok := calendar.ParseDate(s); ok {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := days[:0]
	var runEnd time.Time
	for _, d := range days {
		if len(out) > 0 && !d.After(runEnd.AddDate(0, 0, 1)) {
			runEnd = d
			continue
		}
		out = append(out, d)
		runEnd = d
	}
	return out
}
