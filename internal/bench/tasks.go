// Package bench loads benchmark task files, drives the solver across a
// task set, and records scored outcomes per run.
package bench

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/minds-lab/minds-cli/internal/model"
)

// LoadTasks reads a benchmark file. YAML files carry a named task list;
// JSONL files carry one task object per line and take their name from the
// file.
func LoadTasks(path string) (*model.TaskFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".jsonl":
		return loadJSONL(path)
	default:
		return nil, eris.Errorf("bench: unsupported task file format %q", filepath.Ext(path))
	}
}

func loadYAML(path string) (*model.TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bench: read %s", path)
	}

	var tf model.TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, eris.Wrapf(err, "bench: parse %s", path)
	}
	if tf.Name == "" {
		tf.Name = benchName(path)
	}
	return &tf, validateTasks(&tf)
}

func loadJSONL(path string) (*model.TaskFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bench: open %s", path)
	}
	defer f.Close()

	tf := &model.TaskFile{Name: benchName(path)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, eris.Wrapf(err, "bench: %s line %d", path, line)
		}
		tf.Tasks = append(tf.Tasks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "bench: scan %s", path)
	}
	return tf, validateTasks(tf)
}

func validateTasks(tf *model.TaskFile) error {
	if len(tf.Tasks) == 0 {
		return eris.Errorf("bench: %s contains no tasks", tf.Name)
	}
	seen := make(map[string]bool, len(tf.Tasks))
	for i, t := range tf.Tasks {
		if t.ID == "" {
			return eris.Errorf("bench: task %d has no id", i)
		}
		if t.Prompt == "" {
			return eris.Errorf("bench: task %s has no prompt", t.ID)
		}
		if seen[t.ID] {
			return eris.Errorf("bench: duplicate task id %s", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

func benchName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
