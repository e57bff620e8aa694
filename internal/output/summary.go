package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/vitestprovider/internal/testparser"
)

var titleCase = cases.Title(language.English)

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	title = titleCase.String(title)
	w.Println("")
	if w.color {
		w.Println("%s=== %s ===%s", bold+cyan, title, reset)
	} else {
		w.Println("=== %s ===", title)
	}
	w.Println("")
}

// SummaryItem prints a labeled summary item with value.
func (w *Writer) SummaryItem(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// SummaryPassed prints a passed/success items summary.
func (w *Writer) SummaryPassed(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s%s%s", dim, label, reset, green, value, reset)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// SummaryFailed prints a failed items summary.
func (w *Writer) SummaryFailed(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s%s%s", dim, label, reset, red, value, reset)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...interface{}) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", green, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...interface{}) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", red, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// PrintSummary prints counts, failed tests and a final status line.
func (w *Writer) PrintSummary(runtime string, s testparser.RunnerSummary) {
	w.SummaryHeader(runtime + " test summary")

	w.SummaryPassed("Passed", fmt.Sprintf("%d", s.Passed))
	if s.Failed > 0 {
		w.SummaryFailed("Failed", fmt.Sprintf("%d", s.Failed))
	}
	w.SummaryItem("Total", fmt.Sprintf("%d", s.Total))
	w.SummaryItem("Duration", FormatDuration(s.DurationMs))

	if failed := s.FailedResults(); len(failed) > 0 {
		w.Println("")
		w.Println("  Failed Tests:")
		for _, r := range failed {
			w.SummaryFailed("  "+r.Name, r.File)
			if r.Message != nil {
				for _, line := range strings.Split(*r.Message, "\n") {
					w.Println("      %s", line)
				}
			}
		}
	}

	if s.Failed > 0 {
		w.FinalFailure("%d of %d tests failed", s.Failed, s.Total)
	} else {
		w.FinalSuccess("All %d tests passed", s.Total)
	}
}

// ResultsTable renders every result as one table row.
func (w *Writer) ResultsTable(runtime string, s testparser.RunnerSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w.out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("%s Results (%s)", titleCase.String(runtime), FormatDuration(s.DurationMs)))

	t.AppendHeader(table.Row{"File", "Test", "Duration", "Status", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "File", AutoMerge: true},
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Message", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range s.Results {
		msg := ""
		if r.Message != nil {
			msg = *r.Message
		}
		t.AppendRow(table.Row{r.File, r.Name, FormatDuration(r.DurationMs), statusString(r.Passed), msg})
	}

	t.AppendFooter(table.Row{"", "Total", s.Total, fmt.Sprintf("%d passed", s.Passed), fmt.Sprintf("%d failed", s.Failed)})
	t.Render()
}

// JSON writes the summary as indented JSON to stdout.
func (w *Writer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	w.Println("%s", data)
	return nil
}

// Detail prints an indented label/value pair.
func (w *Writer) Detail(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// FormatDuration renders milliseconds for humans.
func FormatDuration(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.0fms", ms)
	}
	return fmt.Sprintf("%.2fs", ms/1000)
}

func statusString(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
