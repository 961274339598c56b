// Package cli holds the plumbing shared by the vocab* commands: configuration,
// storage locations, progress output, the metrics endpoint and the run functions.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Tool identifies one of the command line programs.
type Tool int

const (
	ToolLearn Tool = iota
	ToolBuildDB
	ToolLearnBuildDB
	ToolMatch
)

var toolNames = [...]string{
	ToolLearn:        "vocablearn",
	ToolBuildDB:      "vocabbuilddb",
	ToolLearnBuildDB: "vocablearnbuilddb",
	ToolMatch:        "vocabmatch",
}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// MinioConfig holds credentials for minio:// locations. Empty keys fall back to
// MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
type MinioConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Region    string `yaml:"region"`
}

// S3Config tunes the client for s3:// locations. Credentials come from the default
// AWS chain.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Config is the merged configuration of a command.
type Config struct {
	ConfigFile string `yaml:"-"`

	Scene    string `yaml:"scene"`
	FeatDir  string `yaml:"feat_dir"`
	Tree     string `yaml:"tree"`
	Database string `yaml:"database"`
	Output   string `yaml:"output"`
	Matrix   string `yaml:"matrix"`

	Depth     int     `yaml:"depth"`
	Branching int     `yaml:"branching"`
	Restarts  int     `yaml:"restarts"`
	Threshold float64 `yaml:"threshold"`

	Distance  string `yaml:"distance"`
	TFIDF     bool   `yaml:"tfidf"`
	Normalize bool   `yaml:"normalize"`

	Compression string `yaml:"compression"`
	Seed        int64  `yaml:"seed"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MemoryLimit int64  `yaml:"memory_limit"`
	IOLimit     int64  `yaml:"io_limit"`
	Workers     int    `yaml:"workers"`
	MetricsAddr string `yaml:"metrics_addr"`
	Progress    bool   `yaml:"progress"`

	Minio MinioConfig `yaml:"minio"`
	S3    S3Config    `yaml:"s3"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Depth:       0,
		Branching:   5000,
		Restarts:    1,
		Threshold:   0.4,
		Distance:    "min",
		TFIDF:       true,
		Normalize:   true,
		Compression: "zstd",
		Seed:        1,
		LogLevel:    "info",
		LogFormat:   "text",
		Progress:    true,
	}
}

// UsageError reports bad command line input. Commands exit with status 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

func newFlagSet(tool Tool, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(tool.String(), flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")
	fs.StringVar(&cfg.Scene, "i", cfg.Scene, "sfm_data.json scene file")
	fs.StringVar(&cfg.FeatDir, "m", cfg.FeatDir, "directory with image_describer.json and .desc files")

	switch tool {
	case ToolLearn:
		fs.StringVar(&cfg.Output, "o", cfg.Output, "output vocabulary tree")
	case ToolBuildDB:
		fs.StringVar(&cfg.Tree, "t", cfg.Tree, "input vocabulary tree")
		fs.StringVar(&cfg.Output, "o", cfg.Output, "output database")
	case ToolLearnBuildDB:
		fs.StringVar(&cfg.Tree, "t", cfg.Tree, "vocabulary tree, learned and saved here when it cannot be loaded")
		fs.StringVar(&cfg.Output, "o", cfg.Output, "output database")
	case ToolMatch:
		fs.StringVar(&cfg.Database, "v", cfg.Database, "input database")
		fs.Float64Var(&cfg.Threshold, "f", cfg.Threshold, "minimum score of a candidate pair")
		fs.StringVar(&cfg.Output, "o", cfg.Output, "output pair list")
		fs.StringVar(&cfg.Matrix, "s", cfg.Matrix, "output score matrix (optional)")
	}

	if tool == ToolLearn || tool == ToolLearnBuildDB {
		fs.IntVar(&cfg.Depth, "d", cfg.Depth, "tree depth")
		fs.IntVar(&cfg.Branching, "b", cfg.Branching, "branching factor")
		fs.IntVar(&cfg.Restarts, "r", cfg.Restarts, "k-means restarts per split")
	}
	if tool != ToolLearn {
		fs.StringVar(&cfg.Distance, "distance", cfg.Distance, "scoring distance (min|dot)")
		fs.BoolVar(&cfg.TFIDF, "tfidf", cfg.TFIDF, "recompute TF-IDF leaf weights")
		fs.BoolVar(&cfg.Normalize, "normalize", cfg.Normalize, "normalize image vectors")
	}

	fs.StringVar(&cfg.Compression, "compression", cfg.Compression, "tree file compression (none|lz4|zstd)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "k-means seed")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text|json)")
	fs.Int64Var(&cfg.MemoryLimit, "memory-limit", cfg.MemoryLimit, "descriptor memory budget in bytes (0 = 80% of available memory)")
	fs.Int64Var(&cfg.IOLimit, "io-limit", cfg.IOLimit, "descriptor read budget in bytes per second (0 = unlimited)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent descriptor readers (0 = 1)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.Progress, "progress", cfg.Progress, "print progress to stderr")
	return fs
}

// LoadConfigFile merges the YAML file at path into cfg. Unknown keys are errors.
func LoadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ParseArgs builds the configuration of tool from defaults, an optional -config
// file and args, in increasing precedence. flag.ErrHelp is returned for -h.
func ParseArgs(tool Tool, args []string, stderr io.Writer) (*Config, error) {
	// First pass only discovers -config.
	pre := DefaultConfig()
	fs := newFlagSet(tool, &pre)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		fs.SetOutput(stderr)
		fs.Usage()
		return nil, usagef("%v", err)
	}

	cfg := DefaultConfig()
	if pre.ConfigFile != "" {
		if err := LoadConfigFile(pre.ConfigFile, &cfg); err != nil {
			return nil, usagef("config: %v", err)
		}
	}

	fs = newFlagSet(tool, &cfg)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, usagef("%v", err)
	}
	if fs.NArg() > 0 {
		return nil, usagef("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.Validate(tool); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required locations of tool and the numeric ranges.
func (c *Config) Validate(tool Tool) error {
	required := map[string]string{"-i": c.Scene, "-m": c.FeatDir, "-o": c.Output}
	switch tool {
	case ToolBuildDB, ToolLearnBuildDB:
		required["-t"] = c.Tree
	case ToolMatch:
		required["-v"] = c.Database
	}
	for _, name := range []string{"-i", "-m", "-t", "-v", "-o"} {
		if v, ok := required[name]; ok && v == "" {
			return usagef("%s: missing required flag %s", tool, name)
		}
	}

	if c.Depth < 0 {
		return usagef("depth must be >= 0, got %d", c.Depth)
	}
	if c.Restarts < 1 {
		return usagef("restarts must be >= 1, got %d", c.Restarts)
	}
	if c.MemoryLimit < 0 || c.IOLimit < 0 || c.Workers < 0 {
		return usagef("memory-limit, io-limit and workers must not be negative")
	}
	return nil
}
