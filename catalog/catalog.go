// Package catalog owns the static, hand-curated pipeline table: the ordered
// phases, their toolchain profiles and their suite entries. The catalog is
// configuration, not computation; ordering is meaningful and preserved.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/helioslab/sim-ci/types"
)

// Catalog manages the pipeline configuration and phase lookups.
type Catalog struct {
	config   Config
	pipeline *types.PipelineConfig
	mu       sync.RWMutex
}

// Config contains catalog configuration.
type Config struct {
	Log log.Logger
	// PipelineFile is the YAML pipeline config path. When empty the
	// built-in default catalog is used.
	PipelineFile string
}

// New creates a new catalog instance and loads the pipeline table.
func New(cfg Config) (*Catalog, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	c := &Catalog{config: cfg}

	if err := c.loadPipeline(cfg.PipelineFile); err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}

	cfg.Log.Debug("Catalog loaded", "len(phases)", len(c.pipeline.Phases))
	return c, nil
}

// loadPipeline loads the pipeline table from file, or falls back to the
// built-in default catalog when no file is configured.
func (c *Catalog) loadPipeline(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pipeline *types.PipelineConfig
	if path == "" {
		c.config.Log.Debug("No pipeline file configured, using built-in catalog")
		pipeline = DefaultPipeline()
	} else {
		loaded, err := loadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		pipeline = loaded
	}

	if err := pipeline.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}

	c.pipeline = pipeline
	return nil
}

// Phases returns the ordered phase table.
func (c *Catalog) Phases() []types.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pipeline.Phases
}

// Phase returns the phase with the given ID.
func (c *Catalog) Phase(id types.PhaseID) (types.Phase, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, phase := range c.pipeline.Phases {
		if phase.ID == id {
			return phase, true
		}
	}
	return types.Phase{}, false
}

// Suites returns the ordered suite entries for a phase. Lint phases and
// unknown phases have no entries.
func (c *Catalog) Suites(id types.PhaseID) []types.SuiteEntry {
	phase, ok := c.Phase(id)
	if !ok {
		return nil
	}
	return phase.Entries
}

// loadConfig loads a pipeline config from a file.
func loadConfig(path string) (*types.PipelineConfig, error) {
	log.Debug("Reading pipeline config file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg types.PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
