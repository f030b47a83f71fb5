package calendar

import (
	"bytes"
	"html/template"
	"time"
)

const markup = `<div class="calendar">
<div class="calendar-header">
<button type="button" class="calendar-nav" data-action="prev-month" aria-label="Previous month">‹</button>
<h2 class="calendar-title">{{.Title}}</h2>
<button type="button" class="calendar-nav" data-action="next-month" aria-label="Next month">›</button>
</div>
<div class="calendar-weekdays">{{range .Weekdays}}<div class="calendar-weekday">{{.}}</div>{{end}}</div>
<div class="calendar-days">
{{- range .Cells}}
{{- if .Filler}}<div class="calendar-day calendar-day-other">{{.Day}}</div>
{{- else}}<div class="calendar-day {{.Classes}}" data-date="{{.Date}}"><span class="day-number">{{.Day}}</span>
{{- if .Glyph}}<div class="day-indicators"><span class="day-mood" title="{{.Mood}}">{{.Glyph}}</span></div>{{end -}}
</div>
{{- end}}
{{- end}}
</div>
{{- with .Selected}}
<div class="calendar-actions">
<button type="button" class="calendar-toggle-period" data-action="toggle-period" data-date="{{.Date}}">{{if .Period}}Remove period day{{else}}Log period day{{end}}</button>
</div>
{{- end}}
</div>
<div class="calendar-legend">
<div class="legend-item"><span class="legend-dot period"></span><span>Period</span></div>
<div class="legend-item"><span class="legend-dot predicted"></span><span>Predicted</span></div>
<div class="legend-item"><span class="legend-dot check-in"></span><span>Check-in</span></div>
</div>`

var tmpl = template.Must(template.New("calendar").Parse(markup))

type renderData struct {
	Title    string
	Weekdays []string
	Cells    []Cell
	Selected *Cell
}

func weekdays() []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday(i).String()[:3]
	}
	return out
}

// Render produces the widget markup for g. The toggle-period control is
// only emitted when the selected date is visible in g.
func Render(g Grid, selected string) (string, error) {
	data := renderData{
		Title:    g.Month.Title(),
		Weekdays: weekdays(),
		Cells:    g.Cells,
	}
	if c, ok := g.Cell(selected); ok {
		data.Selected = &c
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
