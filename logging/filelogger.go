// Package logging handles writing per-suite runner output to files.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/helioslab/sim-ci/types"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "cirun-"
	SummaryFilename    = "summary.log"
	AllLogsFilename    = "all.log"
)

// FileLogger handles writing suite output to files. Each pipeline run gets
// its own directory under the base dir, holding one log file per suite
// invocation plus a combined log and a final summary.
type FileLogger struct {
	baseDir string
	runDir  string
	runID   string

	mu      sync.Mutex
	allLogs *os.File
}

// NewFileLogger creates a new FileLogger for the given run.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	allLogs, err := os.Create(filepath.Join(runDir, AllLogsFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to create combined log: %w", err)
	}

	return &FileLogger{
		baseDir: baseDir,
		runDir:  runDir,
		runID:   runID,
		allLogs: allLogs,
	}, nil
}

// GetRunID returns the run ID this logger writes under.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// RunDir returns the directory holding this run's logs.
func (l *FileLogger) RunDir() string {
	return l.runDir
}

// LogSuite writes the captured output of one suite invocation to its own
// file and appends it to the combined log. ANSI escape sequences are
// stripped so the files stay grep-able. Returns the per-suite log path.
func (l *FileLogger) LogSuite(phase types.PhaseID, name string, output []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	clean := stripansi.Strip(string(output))

	path := filepath.Join(l.runDir, fmt.Sprintf("%s_%s.log", phase, name))
	if err := os.WriteFile(path, []byte(clean), 0644); err != nil {
		return "", fmt.Errorf("failed to write suite log %s: %w", path, err)
	}

	header := fmt.Sprintf("==== %s/%s ====\n", phase, name)
	if _, err := l.allLogs.WriteString(header + clean + "\n"); err != nil {
		return path, fmt.Errorf("failed to append to combined log: %w", err)
	}

	return path, nil
}

// WriteSummary persists the final human-readable run summary.
func (l *FileLogger) WriteSummary(summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.runDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(stripansi.Strip(summary)), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Close flushes and closes the combined log.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allLogs == nil {
		return nil
	}
	err := l.allLogs.Close()
	l.allLogs = nil
	return err
}
