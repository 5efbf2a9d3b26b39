package minds

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/cost"
	"github.com/minds-lab/minds-cli/internal/gateway"
	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/ratelimit"
	"github.com/minds-lab/minds-cli/internal/resilience"
)

// fakeBackend answers by stage, inferred from the prompt's instructions.
// Each reply map entry is the raw text the model returns; a missing entry
// echoes a neutral structured reply. failStages makes a stage error; stall
// delays a stage until the duration elapses or the context expires.
type fakeBackend struct {
	name       string
	replies    map[model.Stage]string
	failStages map[model.Stage]bool
	stall      map[model.Stage]time.Duration

	mu    sync.Mutex
	calls []model.Stage
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, prompt string, _ float64) (*gateway.Completion, error) {
	stage := stageOf(prompt)

	f.mu.Lock()
	f.calls = append(f.calls, stage)
	f.mu.Unlock()

	if d := f.stall[stage]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}

	if f.failStages[stage] {
		return nil, eris.Errorf("%s: backend unavailable", f.name)
	}

	text, ok := f.replies[stage]
	if !ok {
		text = "ANSWER: unsure\nCONFIDENCE: 0.5"
	}
	return &gateway.Completion{
		Text:             text,
		Model:            "fake-model",
		PromptTokens:     1000,
		CompletionTokens: 1000,
	}, nil
}

func (f *fakeBackend) callCount(stage model.Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.calls {
		if s == stage {
			n++
		}
	}
	return n
}

// stageOf recognizes which pipeline stage built the prompt.
func stageOf(prompt string) model.Stage {
	switch {
	case strings.Contains(prompt, "reviewing another solver's answer"):
		return model.StageCritique
	case strings.Contains(prompt, "You previously answered"):
		return model.StageRevise
	case strings.Contains(prompt, "devil's advocate"):
		return model.StageChallenge
	default:
		return model.StageGenerate
	}
}

// newTestGateway wires a real gateway over fake backends with generous rate
// limits, no retries, and a flat cost per call.
func newTestGateway(costPerCall float64, backends ...*fakeBackend) *gateway.Gateway {
	registry := gateway.NewRegistry()
	budgets := make(map[string]ratelimit.Budget)
	rates := cost.Rates{}
	for _, b := range backends {
		registry.Register(b)
		budgets[b.name] = ratelimit.Budget{Capacity: 1000, RefillPerSecond: 1000}
		// 1000 prompt tokens at this rate yields costPerCall per call.
		rates[b.name] = map[string]cost.ModelRate{
			"fake-model": {Input: costPerCall * 1000, Output: 0},
		}
	}
	limiter, err := ratelimit.NewRegistry(budgets)
	if err != nil {
		panic(err)
	}
	return gateway.New(registry, limiter, cost.NewCalculator(rates), gateway.Options{
		Retry: resilience.RetryConfig{MaxAttempts: 1},
	})
}

func answeringBackend(name, answer string, confidence string) *fakeBackend {
	reply := "ANSWER: " + answer + "\nCONFIDENCE: " + confidence
	return &fakeBackend{
		name: name,
		replies: map[model.Stage]string{
			model.StageGenerate: reply,
			model.StageCritique: "ISSUE: none worth raising\nCONFIDENCE: 0.7",
			model.StageRevise:   reply,
		},
	}
}
