/*
PURPOSE:
  Defines the configuration structure and loading logic for MTBench Runner.
  One immutable Config, loaded before any other work begins and passed
  explicitly to every component.

REQUIREMENTS:
  User-specified:
  - Configure server binding, llama-server binary path, token budget, output
    paths, dataset location, thread count, model list, sampling, shutdown.
  - Absence of a required field is a fatal startup error.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - The two historical script variants differed only in how the chat template
    was passed to llama-server (named template vs. template file); both are
    config knobs here, file taking precedence.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/server, internal/dataset
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if the config file is invalid.
  - Validate() rejects missing required fields before the run starts.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (localhost:8080, chatml template).

USAGE:
  cfg, err := config.Load("mtbench_runner.yaml")
  if err := cfg.Validate(); err != nil { ... }

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update Load() defaults
    and Validate().

RELATED FILES:
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelConfig names one GGUF model to benchmark.
type ModelConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// SamplingConfig controls the category-balanced subset selection.
type SamplingConfig struct {
	Enabled              bool  `yaml:"enabled"`
	QuestionsPerCategory int   `yaml:"questions_per_category"`
	RandomSeed           int64 `yaml:"random_seed"`
}

// ShutdownConfig gates the optional post-run OS shutdown.
type ShutdownConfig struct {
	Enabled      bool `yaml:"enabled"`
	DelaySeconds int  `yaml:"delay_seconds"`
}

// Config represents the full configuration for MTBench Runner.
type Config struct {
	ServerHost      string `yaml:"server_host"`
	ServerPort      int    `yaml:"server_port"`
	LlamaServerPath string `yaml:"llama_server_path"`
	// ChatTemplate is a named llama-server template (e.g. "chatml", "phi4").
	// ChatTemplateFile, when set, wins and is passed as --chat-template-file.
	ChatTemplate     string `yaml:"chat_template"`
	ChatTemplateFile string `yaml:"chat_template_file"`

	TokensToGenerate int    `yaml:"tokens_to_generate"`
	OutputCSV        string `yaml:"output_csv"`
	// OutputJSONL optionally mirrors every row as JSON lines.
	OutputJSONL   string `yaml:"output_jsonl"`
	LocalDataFile string `yaml:"local_data_file"`
	MTBenchURL    string `yaml:"mt_bench_url"`
	Threads       int    `yaml:"threads"`

	Models   []ModelConfig  `yaml:"models"`
	Sampling SamplingConfig `yaml:"sampling"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// ServerURL returns the base URL the supervised server is bound to.
func (c *Config) ServerURL() string {
	return fmt.Sprintf("http://%s:%d", c.ServerHost, c.ServerPort)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerHost:       "127.0.0.1",
		ServerPort:       8080,
		ChatTemplate:     "chatml",
		TokensToGenerate: 256,
		OutputCSV:        "mtbench_results.csv",
		LocalDataFile:    "mtbench101.jsonl",
		Threads:          4,
		Sampling: SamplingConfig{
			Enabled:              false,
			QuestionsPerCategory: 5,
			RandomSeed:           42,
		},
		Shutdown: ShutdownConfig{
			Enabled:      false,
			DelaySeconds: 60,
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		// Search for defaults
		defaults := []string{"mtbench_runner.yaml", "mtbench.yaml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				found = true
				break
			}
		}
		if !found {
			// No config file found, return default
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configurations that cannot produce a run. A missing
// required field is fatal-to-run.
func (c *Config) Validate() error {
	switch {
	case c.ServerHost == "":
		return fmt.Errorf("server_host is required")
	case c.ServerPort <= 0:
		return fmt.Errorf("server_port is required")
	case c.LlamaServerPath == "":
		return fmt.Errorf("llama_server_path is required")
	case c.TokensToGenerate <= 0:
		return fmt.Errorf("tokens_to_generate must be positive")
	case c.OutputCSV == "":
		return fmt.Errorf("output_csv is required")
	case c.LocalDataFile == "":
		return fmt.Errorf("local_data_file is required")
	case c.MTBenchURL == "":
		return fmt.Errorf("mt_bench_url is required")
	case c.Threads <= 0:
		return fmt.Errorf("threads must be positive")
	case len(c.Models) == 0:
		return fmt.Errorf("at least one model is required")
	case c.ChatTemplate == "" && c.ChatTemplateFile == "":
		return fmt.Errorf("chat_template or chat_template_file is required")
	}

	for i, m := range c.Models {
		if m.Name == "" || m.Path == "" {
			return fmt.Errorf("models[%d]: name and path are required", i)
		}
	}

	if c.Sampling.Enabled && c.Sampling.QuestionsPerCategory <= 0 {
		return fmt.Errorf("sampling.questions_per_category must be positive when sampling is enabled")
	}

	return nil
}
