package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// ReportEntry is the outcome of one topic as shown in the run report.
type ReportEntry struct {
	Title       string
	State       string
	FailedStage string
	Error       string
	Document    string
	Image       string
	Duration    time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []ReportEntry
	Succeeded  int
	Aborted    int
	NoImage    int
}

// WriteReportFile writes the markdown report to path.
func WriteReportFile(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := WriteReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteReport renders r as markdown.
func WriteReport(w io.Writer, r *Report) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + r.RunID + "`"},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()},
			{"Topics", strconv.Itoa(len(r.Entries))},
			{"Succeeded", strconv.Itoa(r.Succeeded)},
			{"Aborted", strconv.Itoa(r.Aborted)},
			{"Without image", strconv.Itoa(r.NoImage)},
		},
	})
	md.PlainText("")

	writeOutcomeChart(md, r)

	switch {
	case len(r.Entries) == 0:
		md.Note("No topics were processed.")
	case r.Aborted == len(r.Entries):
		md.Cautionf("All %d topics failed.", r.Aborted)
	case r.Aborted > 0:
		md.Warningf("%d of %d topics failed.", r.Aborted, len(r.Entries))
	default:
		md.Tip("All topics processed.")
	}
	md.PlainText("")

	md.H2("Topics")
	md.PlainText("")
	if len(r.Entries) > 0 {
		rows := make([][]string, 0, len(r.Entries))
		for i, e := range r.Entries {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				e.Title,
				e.State,
				e.Document,
				e.Image,
				e.Duration.Round(time.Millisecond).String(),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"#", "Topic", "State", "Document", "Image", "Duration"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	var failures []string
	for _, e := range r.Entries {
		if e.Error != "" {
			failures = append(failures, fmt.Sprintf("%s (%s): %s", e.Title, e.FailedStage, e.Error))
		}
	}
	if len(failures) > 0 {
		md.H2("Failures")
		md.PlainText("")
		md.BulletList(failures...)
		md.PlainText("")
	}

	return md.Build()
}

func writeOutcomeChart(md *markdown.Markdown, r *Report) {
	if len(r.Entries) == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Topic Outcomes"),
		piechart.WithShowData(true),
	)
	if n := r.Succeeded - r.NoImage; n > 0 {
		chart.LabelAndIntValue("Complete", uint64(n))
	}
	if r.NoImage > 0 {
		chart.LabelAndIntValue("Without image", uint64(r.NoImage))
	}
	if r.Aborted > 0 {
		chart.LabelAndIntValue("Aborted", uint64(r.Aborted))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}
