package bench

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/store"
)

// importRecord is one line of an external eval log.
type importRecord struct {
	SampleID    string `json:"sample_id"`
	Passed      bool   `json:"passed"`
	FailureMode string `json:"failure_mode,omitempty"`
}

// ImportOutcomes loads a JSONL eval log produced by another harness into the
// store as a finished run, so it can be compared against native runs. Each
// line carries sample_id, passed, and an optional failure_mode; a missing
// mode defaults to none or wrong_answer from the passed flag.
func ImportOutcomes(ctx context.Context, st store.Store, path, runName, benchmark, solverName string) (*model.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bench: open import %s", path)
	}
	defer f.Close()

	var records []importRecord
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec importRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, eris.Wrapf(err, "bench: %s line %d", path, line)
		}
		if rec.SampleID == "" {
			return nil, eris.Errorf("bench: %s line %d has no sample_id", path, line)
		}
		if seen[rec.SampleID] {
			return nil, eris.Errorf("bench: %s line %d duplicates sample %s", path, line, rec.SampleID)
		}
		seen[rec.SampleID] = true

		if rec.FailureMode == "" {
			if rec.Passed {
				rec.FailureMode = string(model.FailureNone)
			} else {
				rec.FailureMode = string(model.FailureWrongAnswer)
			}
		}
		if !model.FailureMode(rec.FailureMode).Valid() {
			return nil, eris.Errorf("bench: %s line %d has unknown failure_mode %q", path, line, rec.FailureMode)
		}
		if rec.Passed && rec.FailureMode != string(model.FailureNone) {
			return nil, eris.Errorf("bench: %s line %d passed with failure_mode %q", path, line, rec.FailureMode)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "bench: scan %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("bench: %s contains no records", path)
	}

	run, err := st.CreateRun(ctx, runName, benchmark, solverName)
	if err != nil {
		return nil, eris.Wrap(err, "bench: create imported run")
	}

	summary := &model.RunSummary{Samples: len(records)}
	for _, rec := range records {
		o := model.SampleOutcome{
			RunID:       run.ID,
			SampleID:    rec.SampleID,
			Passed:      rec.Passed,
			FailureMode: model.FailureMode(rec.FailureMode),
		}
		if err := st.SaveOutcome(ctx, o); err != nil {
			return nil, eris.Wrap(err, "bench: save imported outcome")
		}
		if rec.Passed {
			summary.PassedCount++
		}
	}
	summary.PassRate = float64(summary.PassedCount) / float64(summary.Samples)

	if err := st.FinalizeRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "bench: finalize imported run")
	}
	run.Status = model.RunStatusComplete
	run.Summary = summary

	zap.L().Info("outcomes imported",
		zap.String("run", run.ID),
		zap.Int("samples", summary.Samples),
		zap.Float64("pass_rate", summary.PassRate),
	)
	return run, nil
}
