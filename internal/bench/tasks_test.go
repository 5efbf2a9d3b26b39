package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaskFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTasksYAML(t *testing.T) {
	path := writeTaskFile(t, "arith.yaml", `
name: arith-basic
tasks:
  - id: q-1
    prompt: "What is 2 + 2?"
    expected: "4"
  - id: q-2
    prompt: "What is the capital of France?"
    context: "Answer with the city name only."
    expected: "Paris"
`)

	tf, err := LoadTasks(path)
	require.NoError(t, err)
	assert.Equal(t, "arith-basic", tf.Name)
	require.Len(t, tf.Tasks, 2)
	assert.Equal(t, "q-1", tf.Tasks[0].ID)
	assert.Equal(t, "Answer with the city name only.", tf.Tasks[1].Context)
}

func TestLoadTasksYAMLDefaultsNameFromFile(t *testing.T) {
	path := writeTaskFile(t, "gsm8k-mini.yml", `
tasks:
  - id: q-1
    prompt: "2+2?"
    expected: "4"
`)

	tf, err := LoadTasks(path)
	require.NoError(t, err)
	assert.Equal(t, "gsm8k-mini", tf.Name)
}

func TestLoadTasksJSONL(t *testing.T) {
	path := writeTaskFile(t, "mixed.jsonl", `
{"id": "q-1", "prompt": "2+2?", "expected": "4"}

{"id": "q-2", "prompt": "3*3?", "expected": "9"}
`)

	tf, err := LoadTasks(path)
	require.NoError(t, err)
	assert.Equal(t, "mixed", tf.Name)
	require.Len(t, tf.Tasks, 2)
	assert.Equal(t, "9", tf.Tasks[1].Expected)
}

func TestLoadTasksRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported format", "tasks.csv", "id,prompt\n"},
		{"duplicate id", "dup.yaml", "tasks:\n  - {id: q-1, prompt: a}\n  - {id: q-1, prompt: b}\n"},
		{"missing id", "noid.yaml", "tasks:\n  - {prompt: a}\n"},
		{"missing prompt", "noprompt.yaml", "tasks:\n  - {id: q-1}\n"},
		{"empty file", "empty.yaml", "tasks: []\n"},
		{"bad json line", "bad.jsonl", "{not json}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTaskFile(t, tt.file, tt.content)
			_, err := LoadTasks(path)
			assert.Error(t, err)
		})
	}
}

func TestScoreAnswer(t *testing.T) {
	assert.True(t, scoreAnswer("4", "4"))
	assert.True(t, scoreAnswer("4.0", "4"))
	assert.True(t, scoreAnswer("  Paris. ", "paris"))
	assert.False(t, scoreAnswer("5", "4"))
	assert.False(t, scoreAnswer("London", "Paris"))
}
