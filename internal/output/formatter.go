package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"

	"github.com/FalixNodes/falixpanel/internal/bulk"
)

// OutputMode defines the available summary formats
type OutputMode string

const (
	// TextMode prints a one-line human summary
	TextMode OutputMode = "text"

	// JSONMode prints one JSON object describing the batch
	JSONMode OutputMode = "json"
)

// ParseMode validates a mode name
func ParseMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case TextMode, JSONMode:
		return OutputMode(s), nil
	default:
		return "", fmt.Errorf("invalid output mode: %s", s)
	}
}

// Formatter writes the summary of a finished batch
type Formatter interface {
	Summary(report *bulk.Report) error
}

// DefaultFormatter implements Formatter for all modes
type DefaultFormatter struct {
	mode   OutputMode
	writer io.Writer
}

// NewFormatter creates a new formatter with the specified mode and writer
func NewFormatter(mode OutputMode, writer io.Writer) Formatter {
	if writer == nil {
		writer = os.Stdout
	}
	return &DefaultFormatter{mode: mode, writer: writer}
}

// Summary writes the report in the configured mode
func (f *DefaultFormatter) Summary(report *bulk.Report) error {
	switch f.mode {
	case TextMode:
		return f.formatText(report)
	case JSONMode:
		return f.formatJSON(report)
	default:
		return fmt.Errorf("unknown output mode: %s", f.mode)
	}
}

func (f *DefaultFormatter) formatText(report *bulk.Report) error {
	if _, err := fmt.Fprintf(f.writer, "Reinstall requested for %d/%d servers (%d failed)\n",
		report.Succeeded, report.Attempted, report.Failed()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// JSONFailure is one failed server in JSON output
type JSONFailure struct {
	ServerID  int    `json:"server_id"`
	Server    string `json:"server"`
	NodeID    int    `json:"node_id"`
	Node      string `json:"node"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

// JSONOutput represents the JSON structure of a batch summary
type JSONOutput struct {
	Attempted  int            `json:"attempted"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	DurationMs int64          `json:"duration_ms"`
	Failures   []JSONFailure  `json:"failures"`
	ByType     map[string]int `json:"errors_by_type,omitempty"`
}

func (f *DefaultFormatter) formatJSON(report *bulk.Report) error {
	out := JSONOutput{
		Attempted:  report.Attempted,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed(),
		DurationMs: report.Duration.Milliseconds(),
		Failures: lo.Map(report.Failures, func(fl bulk.Failure, _ int) JSONFailure {
			return JSONFailure{
				ServerID:  fl.Server.ID,
				Server:    fl.Server.Name,
				NodeID:    fl.Server.NodeID,
				Node:      fl.Server.Node.Name,
				ErrorType: fl.Err.Type.String(),
				Error:     fl.Err.Error(),
			}
		}),
	}

	if report.Errors != nil && report.Errors.HasErrors() {
		out.ByType = make(map[string]int)
		for _, fl := range report.Failures {
			out.ByType[fl.Err.Type.String()] = report.Errors.CountByType(fl.Err.Type)
		}
	}

	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintf(f.writer, "%s\n", jsonBytes); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
