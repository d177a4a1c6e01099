// Package coverage merges per-suite lcov tracefiles into one consolidated
// report and uploads it to the coverage service. Both steps are best-effort
// for the pipeline's exit status: failures here degrade reporting, never
// correctness.
package coverage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"errors"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// TracefileExt identifies tracefiles in the search root.
	TracefileExt = ".info"
	// MergedTracefile is the consolidated output name.
	MergedTracefile = "lcov.info"
	// HTMLDirName is the rendered report directory under the search root.
	HTMLDirName = "html"
)

// CommandBuilder constructs a coverage tool command. Tests inject fakes here.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// AggregationError indicates coverage aggregation could not produce a
// report: either no tracefiles were found or the merge tool failed. It is
// logged, never fatal to the overall pipeline status.
type AggregationError struct {
	Msg string
	Err error
}

func (e *AggregationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aggregation error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("aggregation error: %s", e.Msg)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// IsAggregationError checks if the error is or wraps an AggregationError.
func IsAggregationError(err error) bool {
	var aggErr *AggregationError
	return err != nil && errors.As(err, &aggErr)
}

// ConsolidatedReport is the merged coverage dataset plus its rendered
// summary, persisted for later upload and archival.
type ConsolidatedReport struct {
	Tracefile string
	HTMLDir   string
	Inputs    []string
}

// Aggregator merges tracefiles and renders the HTML summary.
type Aggregator struct {
	lcovBin    string
	genhtmlBin string
	// descriptionFile maps test names to human-readable descriptions in the
	// rendered report. Optional.
	descriptionFile string
	log             log.Logger
	cmdBuilder      CommandBuilder
}

// Config holds configuration for creating an aggregator.
type Config struct {
	LcovBin         string
	GenhtmlBin      string
	DescriptionFile string
	Log             log.Logger
	CmdBuilder      CommandBuilder
}

// New creates a new aggregator instance.
func New(cfg Config) (*Aggregator, error) {
	if cfg.LcovBin == "" {
		cfg.LcovBin = "lcov"
	}
	if cfg.GenhtmlBin == "" {
		cfg.GenhtmlBin = "genhtml"
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	return &Aggregator{
		lcovBin:         cfg.LcovBin,
		genhtmlBin:      cfg.GenhtmlBin,
		descriptionFile: cfg.DescriptionFile,
		log:             cfg.Log,
		cmdBuilder:      cfg.CmdBuilder,
	}, nil
}

// Aggregate enumerates every tracefile directly under searchRoot, merges
// them with a single lcov combine into one consolidated tracefile and
// renders the HTML summary next to it. Enumeration is non-recursive:
// sub-suite directories are not descended into. Zero tracefiles is a
// reportable condition, never a silent no-op.
func (a *Aggregator) Aggregate(ctx context.Context, searchRoot string) (*ConsolidatedReport, error) {
	tracefiles, err := a.findTracefiles(searchRoot)
	if err != nil {
		return nil, &AggregationError{Msg: "enumerating tracefiles", Err: err}
	}
	if len(tracefiles) == 0 {
		return nil, &AggregationError{Msg: fmt.Sprintf("no tracefiles found under %s", searchRoot)}
	}

	a.log.Info("Merging tracefiles", "count", len(tracefiles), "search_root", searchRoot)

	merged := filepath.Join(searchRoot, MergedTracefile)
	if err := a.merge(ctx, tracefiles, merged); err != nil {
		return nil, &AggregationError{Msg: "merging tracefiles", Err: err}
	}

	htmlDir := filepath.Join(searchRoot, HTMLDirName)
	if err := a.render(ctx, merged, htmlDir); err != nil {
		return nil, &AggregationError{Msg: "rendering report", Err: err}
	}

	a.log.Info("Coverage report generated", "tracefile", merged, "html", htmlDir)
	return &ConsolidatedReport{
		Tracefile: merged,
		HTMLDir:   htmlDir,
		Inputs:    tracefiles,
	}, nil
}

// findTracefiles lists *.info files directly under searchRoot, excluding a
// previously merged output, in deterministic order.
func (a *Aggregator) findTracefiles(searchRoot string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(searchRoot, "*"+TracefileExt))
	if err != nil {
		return nil, err
	}

	var tracefiles []string
	for _, m := range matches {
		if filepath.Base(m) == MergedTracefile {
			continue
		}
		tracefiles = append(tracefiles, m)
	}
	sort.Strings(tracefiles)
	return tracefiles, nil
}

// merge combines all tracefiles in one lcov invocation.
func (a *Aggregator) merge(ctx context.Context, tracefiles []string, out string) error {
	args := make([]string, 0, 2*len(tracefiles)+2)
	for _, tf := range tracefiles {
		args = append(args, "--add-tracefile", tf)
	}
	args = append(args, "--output-file", out)

	return a.runTool(ctx, a.lcovBin, args...)
}

// render produces the styled HTML summary from the merged tracefile.
func (a *Aggregator) render(ctx context.Context, merged string, htmlDir string) error {
	args := []string{merged, "--output-directory", htmlDir, "--legend", "--show-details"}
	if a.descriptionFile != "" {
		args = append(args, "--description-file", a.descriptionFile)
	}

	return a.runTool(ctx, a.genhtmlBin, args...)
}

func (a *Aggregator) runTool(ctx context.Context, bin string, args ...string) error {
	cmd := a.cmdBuilder(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%s %s: %w: %s", bin, strings.Join(args, " "), err, stderr.String())
		}
		return fmt.Errorf("%s %s: %w", bin, strings.Join(args, " "), err)
	}
	return nil
}
