package simulation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/flock"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/geometry"
)

//go:embed config.schema.json
var configSchemaJSON string

// Config is the full run configuration of a swarm.
type Config struct {
	World     WorldConfig     `json:"world" yaml:"world"`
	Groups    []GroupConfig   `json:"groups" yaml:"groups"`
	Run       RunConfig       `json:"run" yaml:"run"`
	Behavior  BehaviorConfig  `json:"behavior" yaml:"behavior"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Store     StoreConfig     `json:"store" yaml:"store"`
}

type WorldConfig struct {
	Width             float64           `json:"width" yaml:"width"`
	Height            float64           `json:"height" yaml:"height"`
	Depth             float64           `json:"depth" yaml:"depth"`
	BoundaryThreshold float64           `json:"boundary_threshold" yaml:"boundary_threshold"`
	RandomMagnitude   float64           `json:"random_magnitude" yaml:"random_magnitude"`
	Wind              geometry.Vector3D `json:"wind" yaml:"wind"`
	// Seed 0 asks the binary to pick one from the clock.
	Seed uint64 `json:"seed" yaml:"seed"`
}

type GroupConfig struct {
	Size   int    `json:"size" yaml:"size"`
	Mode   string `json:"mode" yaml:"mode"`
	Mortal bool   `json:"mortal" yaml:"mortal"`
	// Behavior is the path of a definition file. Empty means the group
	// starts with no tree.
	Behavior string        `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	Params   *flock.Params `json:"params,omitempty" yaml:"params,omitempty"`
}

type RunConfig struct {
	TickIntervalMs int `json:"tick_interval_ms" yaml:"tick_interval_ms"`
	// MaxTicks 0 runs until interrupted.
	MaxTicks int `json:"max_ticks" yaml:"max_ticks"`
}

type BehaviorConfig struct {
	UseNumberBank bool `json:"use_number_bank" yaml:"use_number_bank"`
	MaxDepth      int  `json:"max_depth" yaml:"max_depth"`
}

type TelemetryConfig struct {
	// CSVPath receives one row per group per tick. Empty disables it.
	CSVPath   string `json:"csv_path" yaml:"csv_path"`
	LogEvents bool   `json:"log_events" yaml:"log_events"`
}

type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// DefaultConfig returns the stock setup: six groups in an 800 cube, three
// of them populated with 200 agents.
func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			Width:             800,
			Height:            800,
			Depth:             800,
			BoundaryThreshold: flock.DefaultBoundaryThreshold,
			RandomMagnitude:   flock.DefaultRandomMagnitude,
		},
		Groups: []GroupConfig{
			{Size: 200, Mode: string(flock.ModeDefault)},
			{Size: 200, Mode: string(flock.ModeDefault)},
			{Size: 200, Mode: string(flock.ModeDefault)},
			{Size: 0, Mode: string(flock.ModeDefault)},
			{Size: 0, Mode: string(flock.ModeDefault)},
			{Size: 0, Mode: string(flock.ModeDefault)},
		},
		Run: RunConfig{
			TickIntervalMs: 33,
		},
		Behavior: BehaviorConfig{
			MaxDepth: 4,
		},
		Store: StoreConfig{
			Kind: "memory",
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, validates it
// against the schema and applies it on top of DefaultConfig. An empty
// schemaFile selects the embedded schema.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	// 1. Compile Schema
	var (
		sch *jsonschema.Schema
		err error
	)
	if schemaFile == "" {
		sch, err = jsonschema.CompileString("config.schema.json", configSchemaJSON)
	} else {
		sch, err = jsonschema.Compile(schemaFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Normalize YAML to JSON so one schema and one decoder serve both
	if isYAML(configFile) {
		b, err = yamlToJSON(b)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
	}

	// 4. Validate
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 5. Unmarshal onto the defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func yamlToJSON(b []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("config: at least one group is required")
	}
	for i, g := range c.Groups {
		if _, err := flock.ParseMode(g.Mode); err != nil {
			return fmt.Errorf("config: group %d: %w", i+1, err)
		}
		if g.Size < 0 {
			return fmt.Errorf("config: group %d: negative size %d", i+1, g.Size)
		}
	}
	if c.World.Width <= 0 || c.World.Height <= 0 || c.World.Depth <= 0 {
		return fmt.Errorf("config: world dimensions must be positive")
	}
	switch c.Store.Kind {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("config: sqlite store needs a path")
		}
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
