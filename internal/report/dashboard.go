package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lthms/thoughtpool/internal/store"
)

// statusOrder is the display order of known statuses.
var statusOrder = []string{store.StatusOpen, store.StatusInProgress, store.StatusDone, store.StatusIrrelevant}

// Dashboard renders store statistics as Markdown or a standalone HTML page.
type Dashboard struct {
	Stats       *store.Stats
	GeneratedAt time.Time
}

// NewDashboard wraps st for rendering.
func NewDashboard(st *store.Stats, now time.Time) *Dashboard {
	return &Dashboard{Stats: st, GeneratedAt: now}
}

// StatusCount is one row of the status table.
type StatusCount struct {
	Status string
	Count  int
}

// Statuses returns the status totals in display order. Known statuses are
// always listed; unknown ones follow alphabetically.
func (d *Dashboard) Statuses() []StatusCount {
	out := make([]StatusCount, 0, len(statusOrder))
	known := make(map[string]bool, len(statusOrder))
	for _, s := range statusOrder {
		known[s] = true
		out = append(out, StatusCount{s, d.Stats.ByStatus[s]})
	}
	var extra []string
	for s := range d.Stats.ByStatus {
		if !known[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		out = append(out, StatusCount{s, d.Stats.ByStatus[s]})
	}
	return out
}

func (d *Dashboard) period() string {
	if d.Stats.Since.IsZero() {
		return "all time"
	}
	return "since " + d.Stats.Since.Format("2006-01-02")
}

func formatDays(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

const barWidth = 20

func textBar(n, max int) string {
	if max == 0 || n == 0 {
		return ""
	}
	w := n * barWidth / max
	if w == 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}

// Markdown renders the dashboard as Markdown tables.
func (d *Dashboard) Markdown() string {
	st := d.Stats
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Thought dashboard\n\n")
	fmt.Fprintf(&sb, "%d thoughts, %s.\n\n", st.Total, d.period())

	sb.WriteString("## By status\n\n")
	sb.WriteString("| Status | Count |\n|---|---:|\n")
	for _, s := range d.Statuses() {
		fmt.Fprintf(&sb, "| %s | %d |\n", s.Status, s.Count)
	}

	sb.WriteString("\n## By category\n\n")
	if len(st.Labels) == 0 {
		sb.WriteString("No thoughts yet.\n")
		return sb.String()
	}

	max := 0
	for _, l := range st.Labels {
		if l.Total > max {
			max = l.Total
		}
	}
	sb.WriteString("| Category | Opened | Done | Avg days to done | |\n|---|---:|---:|---:|---|\n")
	for _, l := range st.Labels {
		fmt.Fprintf(&sb, "| %s | %d | %d | %s | %s |\n",
			escapeCell(l.Label), l.Total, l.Done, formatDays(l.AvgDaysToDone), textBar(l.Total, max))
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

type labelRow struct {
	store.LabelStats
	OpenPct float64
	DonePct float64
	AvgDays string
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Thought dashboard</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { padding: 4px 10px; text-align: left; border-bottom: 1px solid #ddd; }
td.num { text-align: right; }
.bar { height: 12px; display: inline-block; }
.bar.opened { background: #8ab4f8; }
.bar.done { background: #34a853; }
.track { width: 300px; }
</style>
</head>
<body>
<h1>Thought dashboard</h1>
<p>{{.Total}} thoughts, {{.Period}}. Generated {{.Generated}}.</p>
<h2>By status</h2>
<table>
<tr><th>Status</th><th>Count</th></tr>
{{range .Statuses}}<tr><td>{{.Status}}</td><td class="num">{{.Count}}</td></tr>
{{end}}</table>
<h2>By category</h2>
{{if .Labels}}<table>
<tr><th>Category</th><th>Opened</th><th>Done</th><th>Avg days to done</th><th class="track"></th></tr>
{{range .Labels}}<tr><td>{{.Label}}</td><td class="num">{{.Total}}</td><td class="num">{{.Done}}</td><td class="num">{{.AvgDays}}</td><td class="track"><span class="bar opened" style="width: {{printf "%.1f" .OpenPct}}%"></span><span class="bar done" style="width: {{printf "%.1f" .DonePct}}%"></span></td></tr>
{{end}}</table>{{else}}<p>No thoughts yet.</p>{{end}}
</body>
</html>
`))

// WriteHTML renders the dashboard as a standalone HTML page.
func (d *Dashboard) WriteHTML(w io.Writer) error {
	max := 0
	for _, l := range d.Stats.Labels {
		if l.Total > max {
			max = l.Total
		}
	}
	rows := make([]labelRow, 0, len(d.Stats.Labels))
	for _, l := range d.Stats.Labels {
		r := labelRow{LabelStats: l, AvgDays: formatDays(l.AvgDaysToDone)}
		if max > 0 {
			r.DonePct = 100 * float64(l.Done) / float64(max)
			r.OpenPct = 100*float64(l.Total)/float64(max) - r.DonePct
		}
		rows = append(rows, r)
	}

	return dashboardTmpl.Execute(w, map[string]any{
		"Total":     d.Stats.Total,
		"Period":    d.period(),
		"Generated": d.GeneratedAt.Format("2006-01-02 15:04"),
		"Statuses":  d.Statuses(),
		"Labels":    rows,
	})
}

// HTML returns the page produced by WriteHTML.
func (d *Dashboard) HTML() (string, error) {
	var sb strings.Builder
	if err := d.WriteHTML(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
