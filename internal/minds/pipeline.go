package minds

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minds-lab/minds-cli/internal/gateway"
	"github.com/minds-lab/minds-cli/internal/model"
)

// ErrNoProviders is the terminal pipeline error: not a single backend
// produced a usable answer.
var ErrNoProviders = eris.New("minds: no provider produced a usable answer")

// ProviderSpec is one backend's pipeline parameters.
type ProviderSpec struct {
	Name        string
	Temperature float64
}

// PipelineResult collects everything the critique/revision pipeline
// produced for one task.
type PipelineResult struct {
	Consensus model.Consensus
	Revised   []model.RevisedAnswer
	Critiques []model.CritiqueNote
	// Responses is the audit trail of every model call issued, including
	// errored ones.
	Responses []model.ModelResponse
}

// Pipeline runs GENERATE -> CRITIQUE -> REVISE across the configured
// providers and computes the consensus.
type Pipeline struct {
	gw        *gateway.Gateway
	providers []ProviderSpec
}

// NewPipeline creates a pipeline over the given providers.
func NewPipeline(gw *gateway.Gateway, providers []ProviderSpec) *Pipeline {
	return &Pipeline{gw: gw, providers: providers}
}

// Run executes the full pipeline for one task under the given budget.
// All calls within a stage are issued concurrently; the pipeline joins at
// stage boundaries. Provider failures are carried as error responses; the
// only error return is ErrNoProviders.
func (p *Pipeline) Run(ctx context.Context, task model.Task, budget *Budget) (*PipelineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "minds: pipeline")
	}
	result := &PipelineResult{}

	// GENERATE: one concurrent call per provider.
	initial := p.generate(task, budget, result)

	usable := make([]model.ModelResponse, 0, len(initial))
	for _, r := range initial {
		if r.OK() {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoProviders
	}

	// With a single usable answer there is nothing to cross-check; go
	// straight to consensus on what succeeded.
	if len(usable) >= 2 && budget.Allow() {
		result.Critiques = p.critique(task, usable, budget, result)
	}

	revised := p.revise(task, usable, result.Critiques, budget, result)
	result.Revised = revised
	result.Consensus = computeConsensus(revised, len(p.providers))

	zap.L().Debug("pipeline consensus",
		zap.String("task", task.ID),
		zap.Float64("agreement", result.Consensus.AgreementLevel),
		zap.Strings("supporters", result.Consensus.SupportingProviders),
	)

	return result, nil
}

func (p *Pipeline) generate(task model.Task, budget *Budget, result *PipelineResult) []model.ModelResponse {
	responses := make([]model.ModelResponse, len(p.providers))

	g, gctx := errgroup.WithContext(budget.Context())
	for i, spec := range p.providers {
		g.Go(func() error {
			responses[i] = p.gw.Call(gctx, model.ModelCall{
				Provider:    spec.Name,
				Prompt:      generatePrompt(task.Prompt, task.Context),
				Temperature: spec.Temperature,
				Stage:       model.StageGenerate,
			})
			budget.Charge(responses[i].CostUSD)
			return nil
		})
	}
	_ = g.Wait()

	result.Responses = append(result.Responses, responses...)
	return responses
}

// critique dispatches one call per ordered pair of distinct successful
// responses: provider X reviews provider Y's answer. All calls are issued
// together and the stage waits for all of them.
func (p *Pipeline) critique(task model.Task, usable []model.ModelResponse, budget *Budget, result *PipelineResult) []model.CritiqueNote {
	type pair struct{ author, target int }
	var pairs []pair
	for a := range usable {
		for t := range usable {
			if a != t {
				pairs = append(pairs, pair{a, t})
			}
		}
	}

	notes := make([]model.CritiqueNote, len(pairs))
	responses := make([]model.ModelResponse, len(pairs))

	g, gctx := errgroup.WithContext(budget.Context())
	for i, pr := range pairs {
		g.Go(func() error {
			author := usable[pr.author]
			target := usable[pr.target]
			resp := p.gw.Call(gctx, model.ModelCall{
				Provider:    author.Provider,
				Prompt:      critiquePrompt(task.Prompt, parseReply(target.Text).Answer),
				Temperature: 0,
				Stage:       model.StageCritique,
			})
			budget.Charge(resp.CostUSD)
			responses[i] = resp

			note := model.CritiqueNote{
				AuthorProvider: author.Provider,
				TargetProvider: target.Provider,
			}
			if resp.OK() {
				parsed := parseReply(resp.Text)
				note.Issues = parsed.Issues
				note.SuggestedConfidence = parsed.Confidence
			}
			notes[i] = note
			return nil
		})
	}
	_ = g.Wait()

	result.Responses = append(result.Responses, responses...)

	kept := notes[:0]
	for i, n := range notes {
		if responses[i].OK() {
			kept = append(kept, n)
		}
	}
	return kept
}

// revise gives each provider its own original answer plus the critiques
// targeting it. When the budget is spent the original answers stand in as
// revisions with neutral confidence.
func (p *Pipeline) revise(task model.Task, usable []model.ModelResponse, critiques []model.CritiqueNote, budget *Budget, result *PipelineResult) []model.RevisedAnswer {
	if len(usable) < 2 || !budget.Allow() {
		revised := make([]model.RevisedAnswer, 0, len(usable))
		for _, r := range usable {
			parsed := parseReply(r.Text)
			revised = append(revised, model.RevisedAnswer{
				Provider:       r.Provider,
				Text:           parsed.Answer,
				SelfConfidence: parsed.Confidence,
			})
		}
		return revised
	}

	byTarget := make(map[string][]string)
	for _, c := range critiques {
		byTarget[c.TargetProvider] = append(byTarget[c.TargetProvider], critiqueSummary(c.AuthorProvider, c.Issues))
	}

	revised := make([]model.RevisedAnswer, len(usable))
	responses := make([]model.ModelResponse, len(usable))

	g, gctx := errgroup.WithContext(budget.Context())
	for i, orig := range usable {
		g.Go(func() error {
			parsed := parseReply(orig.Text)
			resp := p.gw.Call(gctx, model.ModelCall{
				Provider:    orig.Provider,
				Prompt:      revisePrompt(task.Prompt, parsed.Answer, byTarget[orig.Provider]),
				Temperature: 0,
				Stage:       model.StageRevise,
			})
			budget.Charge(resp.CostUSD)
			responses[i] = resp

			if resp.OK() {
				rp := parseReply(resp.Text)
				revised[i] = model.RevisedAnswer{Provider: orig.Provider, Text: rp.Answer, SelfConfidence: rp.Confidence}
			} else {
				// Revision failed; the original answer stands.
				revised[i] = model.RevisedAnswer{Provider: orig.Provider, Text: parsed.Answer, SelfConfidence: parsed.Confidence}
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Responses = append(result.Responses, responses...)
	return revised
}

// computeConsensus groups revised answers by canonical form and takes the
// largest group as the majority position. AgreementLevel is the fraction of
// dispatched providers that landed in the majority group, so lost providers
// drag agreement down rather than silently shrinking the denominator.
func computeConsensus(revised []model.RevisedAnswer, dispatched int) model.Consensus {
	if len(revised) == 0 || dispatched == 0 {
		return model.Consensus{}
	}

	groups := make(map[string][]model.RevisedAnswer)
	order := make([]string, 0, len(revised))
	for _, r := range revised {
		key := answerKey(r.Text)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	// Largest group wins; ties break toward higher mean self-confidence,
	// then first-seen for determinism.
	bestKey := order[0]
	for _, key := range order[1:] {
		switch {
		case len(groups[key]) > len(groups[bestKey]):
			bestKey = key
		case len(groups[key]) == len(groups[bestKey]) &&
			meanConfidence(groups[key]) > meanConfidence(groups[bestKey]):
			bestKey = key
		}
	}

	majority := groups[bestKey]
	sort.Slice(majority, func(i, j int) bool {
		return majority[i].SelfConfidence > majority[j].SelfConfidence
	})

	supporters := make([]string, len(majority))
	for i, r := range majority {
		supporters[i] = r.Provider
	}
	sort.Strings(supporters)

	return model.Consensus{
		MergedText:          majority[0].Text,
		AgreementLevel:      float64(len(majority)) / float64(dispatched),
		SupportingProviders: supporters,
	}
}

func meanConfidence(answers []model.RevisedAnswer) float64 {
	if len(answers) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range answers {
		sum += a.SelfConfidence
	}
	return sum / float64(len(answers))
}
