package simci

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/helioslab/sim-ci/types"
)

// ResultFormatter is responsible for formatting and displaying pipeline results.
type ResultFormatter interface {
	FormatResults(result *PipelineResult) (string, error)
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    os.Stdout,
	}
}

// FormatResults renders the pipeline results table to the console and
// returns the rendered text for the run summary file.
func (f *ConsoleResultFormatter) FormatResults(result *PipelineResult) (string, error) {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Regression Pipeline Results (%s)", formatDuration(result.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Status", "Exit", "Tolerated",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit", Align: text.AlignRight},
	})

	for _, phase := range result.Phases {
		t.AppendRow(table.Row{
			"Phase",
			string(phase.ID),
			formatDuration(phase.Duration),
			getResultString(phase.Status),
			"",
			"",
		})

		for i, res := range phase.Results {
			prefix := "├──"
			if i == len(phase.Results)-1 {
				prefix = "└──"
			}

			tolerated := ""
			if res.Tolerated {
				tolerated = "yes"
			}

			t.AppendRow(table.Row{
				"Suite",
				fmt.Sprintf("%s %s", prefix, res.Name),
				formatDuration(res.Duration),
				getResultString(res.Status),
				res.ExitCode,
				tolerated,
			})
		}

		t.AppendSeparator()
	}

	// Update the table style setting based on result status
	if result.Status == types.SuiteStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		getResultString(result.Status),
		"",
		fmt.Sprintf("%d", result.Stats.Tolerated),
	})

	return t.Render(), nil
}

// getResultString returns a colored string representing the suite result
func getResultString(status types.SuiteStatus) string {
	switch status {
	case types.SuiteStatusPass:
		return "✓ pass"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
