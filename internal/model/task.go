// Package model defines the core value types shared across the harness:
// tasks, model calls and responses, consensus artifacts, and run outcomes.
package model

// Task is a single benchmark problem fed to the solver.
type Task struct {
	ID       string `json:"id" yaml:"id"`
	Prompt   string `json:"prompt" yaml:"prompt"`
	Context  string `json:"context,omitempty" yaml:"context,omitempty"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// TaskFile is the on-disk shape of a benchmark task list.
type TaskFile struct {
	Name  string `yaml:"name"`
	Tasks []Task `yaml:"tasks"`
}
