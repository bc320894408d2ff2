package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/tagquorum/tagquorum/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: Plain ASCII formatting rather than ANSI colors because
// it works in all terminals and pipes cleanly to files and other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether topics with no rows are mentioned.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to note when no consensus was found.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the task result in human-readable format.
func (w *SimpleWriter) Write(result *model.TaskResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeRows(&sb, result)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.TaskResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       TAGQUORUM CONSENSUS REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Task:           %s\n", result.TaskUUID))
	sb.WriteString(fmt.Sprintf("Processed:      %s\n", result.DateProcessed.Format("2006-01-02 15:04:05 MST")))
	if result.SourcePath != "" {
		sb.WriteString(fmt.Sprintf("Source:         %s\n", result.SourcePath))
	}
	if result.ArticleFilename != "" {
		sb.WriteString(fmt.Sprintf("Article:        %s\n", result.ArticleFilename))
	}

	mode := "highlight consensus"
	if result.AnswerMode {
		mode = "answer consensus"
	}
	sb.WriteString(fmt.Sprintf("Mode:           %s\n", mode))

	if result.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", result.ErrorMessage))
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the run counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.TaskResult) {
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Annotations:  %d (%d dropped below minimum redundancy)\n",
		result.AnnotationCount, result.DroppedCount))
	sb.WriteString(fmt.Sprintf("  Topics:       %d\n", result.TopicCount))
	sb.WriteString(fmt.Sprintf("  Rows:         %d\n", len(result.Rows)))
	sb.WriteString("\n")
}

// writeRows writes the consensus rows grouped by topic.
func (w *SimpleWriter) writeRows(sb *strings.Builder, result *model.TaskResult) {
	if !result.HasRows() {
		if w.showEmpty {
			sb.WriteString("No consensus ranges cleared the pass threshold.\n\n")
		}
		return
	}

	names, byTopic := result.RowsByTopic()
	for _, name := range names {
		rows := byTopic[name]

		sb.WriteString(fmt.Sprintf("TOPIC %s (%s)\n", name, rows[0].Namespace))
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")

		for _, row := range rows {
			if row.IsPlaceholder() {
				extra := ""
				if row.Extra != nil {
					extra = fmt.Sprintf(" (chosen by %d contributors)", row.Extra.ContribCount)
				}
				sb.WriteString(fmt.Sprintf("  case %d: answer without highlights%s\n",
					row.CaseNumber, extra))
				continue
			}

			sb.WriteString(fmt.Sprintf("  case %d: [%d,%d) %q\n",
				row.CaseNumber, row.StartPos, row.EndPos, row.TargetText))
		}
		sb.WriteString("\n")
	}
}
