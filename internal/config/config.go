// Package config loads the ProjectConfig and its nested settings from
// YAML, using a struct-per-concern layout.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the decomposition strategy.
type Mode string

const (
	ModeGenesis   Mode = "genesis"
	ModeEvolution Mode = "evolution"
)

// Feature is a feature descriptor to decompose in genesis/evolution mode.
type Feature struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Settings holds the tunable knobs for a project's orchestration run.
type Settings struct {
	MaxParallelAgents       int `yaml:"max_parallel_agents"`
	TestCoverageTarget      int `yaml:"test_coverage_target"`
	MaxTaskMinutes          int `yaml:"max_task_minutes"`
	QAMaxIterations         int `yaml:"qa_max_iterations"`
	CheckpointIntervalHours int `yaml:"checkpoint_interval_hours"`

	// Commands run inside each task's worktree by the QA loop's
	// build/lint/test stages (internal/verify.CommandRunner).
	BuildCommand string `yaml:"build_command"`
	LintCommand  string `yaml:"lint_command"`
	TestCommand  string `yaml:"test_command"`
}

// AgentCapacity overrides per-role pool capacity.
type AgentCapacity struct {
	Coder    int `yaml:"coder"`
	Tester   int `yaml:"tester"`
	Reviewer int `yaml:"reviewer"`
	Merger   int `yaml:"merger"`
	Planner  int `yaml:"planner"`
}

// ProjectConfig is the top-level configuration record the coordinator is
// initialized with.
type ProjectConfig struct {
	ProjectID       string        `yaml:"project_id"`
	ProjectPath     string        `yaml:"project_path"`
	Mode            Mode          `yaml:"mode"`
	Features        []Feature     `yaml:"features"`
	Settings        Settings      `yaml:"settings"`
	MaxAgentsByType AgentCapacity `yaml:"max_agents_by_type"`

	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`

	CLITimeout time.Duration `yaml:"cli_timeout"`

	// LLMBinary is the vendor CLI binary the coder/reviewer runners spawn
	// for each conversation turn (internal/llm.CLIClient).
	LLMBinary string `yaml:"llm_binary"`
}

// Default returns a ProjectConfig with sane defaults: qaMaxIterations=50,
// coder=4/tester=2/reviewer=2/merger=1/planner=1.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Mode: ModeGenesis,
		Settings: Settings{
			MaxParallelAgents: 4,
			QAMaxIterations:   50,
			BuildCommand:      "go build ./...",
			LintCommand:       "go vet ./...",
			TestCommand:       "go test ./...",
		},
		MaxAgentsByType: AgentCapacity{
			Coder: 4, Tester: 2, Reviewer: 2, Merger: 1, Planner: 1,
		},
		LogLevel:   "info",
		CLITimeout: 300 * time.Second,
		LLMBinary:  "claude",
	}
}

// Load reads a YAML ProjectConfig from path, applying Default() first so
// unset fields keep their documented defaults.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates configuration errors into a single error.
func (c *ProjectConfig) Validate() error {
	var problems []string
	if c.ProjectID == "" {
		problems = append(problems, "project_id is required")
	}
	if c.ProjectPath == "" {
		problems = append(problems, "project_path is required")
	}
	if c.Mode != ModeGenesis && c.Mode != ModeEvolution {
		problems = append(problems, fmt.Sprintf("mode must be %q or %q, got %q", ModeGenesis, ModeEvolution, c.Mode))
	}
	if c.Settings.QAMaxIterations < 1 {
		problems = append(problems, "settings.qa_max_iterations must be >= 1")
	}
	if len(problems) == 0 {
		return nil
	}
	msg := "invalid configuration:"
	for _, p := range problems {
		msg += "\n  - " + p
	}
	return fmt.Errorf("%s", msg)
}
