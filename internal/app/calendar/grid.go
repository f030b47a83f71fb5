package calendar

import (
	"strings"
	"time"
)

// State is everything besides the cursor that a render depends on.
type State struct {
	Periods     []Period
	Predictions []Prediction
	CheckIns    CheckIns
	Selected    string
	Today       string
}

// Cell is one square of the month grid.
type Cell struct {
	Day    int
	Date   string // empty for fillers
	Filler bool

	Today     bool
	Selected  bool
	Period    bool
	Predicted bool
	CheckIn   bool

	Mood  string
	Glyph string
}

// Classes returns the modifier classes for the cell, without the base
// "calendar-day" class.
func (c Cell) Classes() string {
	if c.Filler {
		return "calendar-day-other"
	}
	var cls []string
	if c.Today {
		cls = append(cls, "calendar-day-today")
	}
	if c.Selected {
		cls = append(cls, "calendar-day-selected")
	}
	if c.Period {
		cls = append(cls, "calendar-day-period")
	} else if c.Predicted {
		cls = append(cls, "calendar-day-predicted")
	}
	if c.CheckIn {
		cls = append(cls, "calendar-day-checkin")
	}
	return strings.Join(cls, " ")
}

// Grid is the laid-out month: leading fillers, the month's days, then
// trailing fillers up to a whole number of weeks.
type Grid struct {
	Month Month
	Cells []Cell
}

// Weeks splits the cells into rows of seven.
func (g Grid) Weeks() [][]Cell {
	var rows [][]Cell
	for i := 0; i < len(g.Cells); i += 7 {
		end := i + 7
		if end > len(g.Cells) {
			end = len(g.Cells)
		}
		rows = append(rows, g.Cells[i:end])
	}
	return rows
}

// Cell returns the real-day cell for an ISO date.
func (g Grid) Cell(date string) (Cell, bool) {
	for _, c := range g.Cells {
		if !c.Filler && c.Date == date {
			return c, true
		}
	}
	return Cell{}, false
}

// BuildGrid lays out m and classifies every day against s.
func BuildGrid(m Month, s State) Grid {
	first := m.First()
	lead := int(first.Weekday())
	days := m.Days()
	prevDays := m.Add(-1).Days()

	cells := make([]Cell, 0, 42)
	for i := lead; i > 0; i-- {
		cells = append(cells, Cell{Day: prevDays - i + 1, Filler: true})
	}
	for day := 1; day <= days; day++ {
		date := FormatDate(time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC))
		cells = append(cells, classify(day, date, s))
	}
	total := lead + days
	trail := 0
	if total%7 != 0 {
		trail = 7 - total%7
	}
	for i := 1; i <= trail; i++ {
		cells = append(cells, Cell{Day: i, Filler: true})
	}
	return Grid{Month: m, Cells: cells}
}

func classify(day int, date string, s State) Cell {
	c := Cell{
		Day:      day,
		Date:     date,
		Today:    date == s.Today,
		Selected: s.Selected != "" && date == s.Selected,
	}
	c.Period = InPeriod(date, s.Periods)
	if !c.Period {
		c.Predicted = InPrediction(date, s.Predictions)
	}
	if ci, ok := s.CheckIns[date]; ok {
		c.CheckIn = true
		if ci.Mood != "" {
			c.Mood = ci.Mood
			c.Glyph = MoodGlyph(ci.Mood)
		}
	}
	return c
}

// InPeriod reports whether date lies inside any period, bounds inclusive.
// Malformed dates never match.
func InPeriod(date string, periods []Period) bool {
	d, ok := ParseDate(date)
	if !ok {
		return false
	}
	for _, p := range periods {
		start, ok := ParseDate(p.StartDate)
		if !ok {
			continue
		}
		end := start
		if p.EndDate != "" {
			if end, ok = ParseDate(p.EndDate); !ok {
				continue
			}
		}
		if !d.Before(start) && !d.After(end) {
			return true
		}
	}
	return false
}

// InPrediction reports whether date lies within Range days of any
// prediction. Malformed dates never match.
func InPrediction(date string, preds []Prediction) bool {
	d, ok := ParseDate(date)
	if !ok {
		return false
	}
	for _, p := range preds {
		pd, ok := ParseDate(p.Date)
		if !ok {
			continue
		}
		diff := d.Sub(pd) / (24 * time.Hour)
		if diff < 0 {
			diff = -diff
		}
		if int(diff) <= p.Range {
			return true
		}
	}
	return false
}
