package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/tagquorum/tagquorum/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for documentation and sharing with annotation
// teams.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation: type-safe tables and lists, GitHub-flavored alerts, and
// mermaid charts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the task result in Markdown format.
func (w *MarkdownWriter) Write(result *model.TaskResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeRows(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.TaskResult) {
	md.H1("Tagquorum Consensus Report")
	md.PlainText("")

	mode := "highlight consensus"
	if result.AnswerMode {
		mode = "answer consensus"
	}

	article := result.ArticleFilename
	if article == "" {
		article = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Task", "`" + result.TaskUUID + "`"},
			{"Processed", result.DateProcessed.Format("2006-01-02 15:04:05 MST")},
			{"Mode", mode},
			{"Article", article},
			{"Status", w.getStatusText(result)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the result state.
func (w *MarkdownWriter) getStatusText(result *model.TaskResult) string {
	if result.ErrorMessage != "" {
		return "❌ Error - " + result.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the run counters and the per-topic distribution
// chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.TaskResult) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Annotations", strconv.Itoa(result.AnnotationCount)},
			{"Dropped (below minimum redundancy)", strconv.Itoa(result.DroppedCount)},
			{"Topics", strconv.Itoa(result.TopicCount)},
			{"Consensus rows", strconv.Itoa(len(result.Rows))},
		},
	})
	md.PlainText("")

	if result.HasRows() {
		w.writePieChart(md, result)
	}

	w.writeAlert(md, result)
}

// writePieChart writes a mermaid pie chart of consensus rows per topic.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.TaskResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Consensus Rows per Topic"),
		piechart.WithShowData(true),
	)

	names, byTopic := result.RowsByTopic()
	for _, name := range names {
		chart.LabelAndIntValue(name, uint64(len(byTopic[name])))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the result.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.TaskResult) {
	switch {
	case result.ErrorMessage != "":
		md.Cautionf("Processing aborted: %s", result.ErrorMessage)
	case !result.HasRows():
		md.Note("No consensus ranges cleared the pass threshold.")
	case result.DroppedCount > 0:
		md.Importantf(
			"%d annotation(s) were dropped for insufficient redundancy and did not contribute to consensus.",
			result.DroppedCount,
		)
	default:
		md.Tipf("All %d annotation(s) contributed to the result.", result.AnnotationCount)
	}
	md.PlainText("")
}

// writeRows writes the consensus rows grouped by topic.
func (w *MarkdownWriter) writeRows(md *markdown.Markdown, result *model.TaskResult) {
	md.H2("Consensus Ranges")
	md.PlainText("")

	if !result.HasRows() {
		md.PlainText("No consensus ranges were produced.")
		md.PlainText("")
		return
	}

	names, byTopic := result.RowsByTopic()
	for _, name := range names {
		rows := byTopic[name]

		md.H3(fmt.Sprintf("%s (%s)", name, rows[0].Namespace))
		md.PlainText("")
		w.writeTopicTable(md, rows)
	}
}

// writeTopicTable writes a table of one topic's rows.
func (w *MarkdownWriter) writeTopicTable(md *markdown.Markdown, rows []model.ConsensusRow) {
	headers := []string{"Case", "Range", "Text", "Contributors"}

	tableRows := make([][]string, len(rows))
	for i, row := range rows {
		rangeText := fmt.Sprintf("[%d, %d)", row.StartPos, row.EndPos)
		text := "`" + truncateString(row.TargetText, 60) + "`"
		if row.IsPlaceholder() {
			rangeText = "-"
			text = "answer without highlights"
		}

		contribs := "-"
		if row.Extra != nil {
			contribs = strconv.Itoa(row.Extra.ContribCount)
		}

		tableRows[i] = []string{
			strconv.Itoa(row.CaseNumber),
			rangeText,
			text,
			contribs,
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   tableRows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by tagquorum*")
}

// truncateString shortens s to at most max characters, appending an
// ellipsis when truncated.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
