// Package terminal renders the dashboard view for terminals: a plain table
// for one-shot output and a Bubble Tea pager for browsing.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/domain/model"
)

// TestedAtLayout formats run creation times.
const TestedAtLayout = "2006-01-02 15:04:05 MST"

// Styles colours the table. The zero value renders plain text.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Pending lipgloss.Style
	Current lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles builds the colour styles bound to renderer r, so colour output
// follows the capabilities of the writer r was created for.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Title:   r.NewStyle().Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
		Success: r.NewStyle().Foreground(lipgloss.Color("34")),
		Failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		Pending: r.NewStyle().Foreground(lipgloss.Color("178")),
		Current: r.NewStyle().Bold(true).Reverse(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// StylesFor returns styles for output written to w.
func StylesFor(w io.Writer) Styles {
	return NewStyles(lipgloss.NewRenderer(w))
}

// StatusLabel returns the human label for a conclusion, e.g. "Success" or
// "In Progress".
func StatusLabel(c model.Conclusion) string {
	return cases.Title(language.English).String(strings.ReplaceAll(c.Label(), "_", " "))
}

// Status renders the coloured status cell.
func (s Styles) Status(c model.Conclusion) string {
	label := StatusLabel(c)
	switch c {
	case model.ConclusionSuccess:
		return s.Success.Render(label)
	case model.ConclusionFailure:
		return s.Failure.Render(label)
	default:
		return s.Pending.Render(label)
	}
}

// UserCountLine renders the "Total Users" header line.
func UserCountLine(count *int) string {
	if count == nil {
		return "Total Users: N/A"
	}
	return "Total Users: " + strconv.Itoa(*count)
}

// Render writes the full page: user count, error, table and page bar.
func Render(w io.Writer, v dashboard.View, s Styles) {
	fmt.Fprintln(w, s.Title.Render(UserCountLine(v.UserCount)))
	if v.Error != "" {
		fmt.Fprintln(w, s.Error.Render(v.Error))
	}
	fmt.Fprintln(w)
	RenderTable(w, v, s)
	fmt.Fprintln(w)
	fmt.Fprintln(w, PageBar(v, s))
}

// RenderTable writes the run table for the current page.
func RenderTable(w io.Writer, v dashboard.View, s Styles) {
	tbl := table.New("Workflow Name", "Status", "Tested At").
		WithWriter(w).
		WithWidthFunc(lipgloss.Width).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return s.Header.Render(fmt.Sprintf(format, vals...))
		})

	if len(v.Runs) == 0 {
		tbl.AddRow(s.Muted.Render(dashboard.EmptyMessage), "", "")
	}
	for _, run := range v.Runs {
		tbl.AddRow(run.WorkflowName, s.Status(run.Conclusion), FormatTime(run.CreatedAt))
	}
	tbl.Print()
}

// PageBar renders "< Previous  1 [2] 3  Next >" with the current page
// highlighted and unavailable directions dimmed.
func PageBar(v dashboard.View, s Styles) string {
	var b strings.Builder

	prev := "< Previous"
	if !v.HasPrevious {
		prev = s.Muted.Render(prev)
	}
	b.WriteString(prev)

	for _, p := range v.Pages {
		b.WriteString(" ")
		if p == v.CurrentPage {
			b.WriteString(s.Current.Render("[" + strconv.Itoa(p) + "]"))
			continue
		}
		b.WriteString(" " + strconv.Itoa(p) + " ")
	}

	next := "Next >"
	if !v.HasNext {
		next = s.Muted.Render(next)
	}
	b.WriteString(" ")
	b.WriteString(next)
	return b.String()
}

// FormatTime renders t the way the table does.
func FormatTime(t time.Time) string { return t.UTC().Format(TestedAtLayout) }
