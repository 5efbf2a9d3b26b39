package minds

import (
	"fmt"
	"strconv"
	"strings"
)

// The pipeline asks every backend for machine-parseable replies: an ANSWER
// block plus a final CONFIDENCE line, with stage-specific extras. Parsing is
// line-oriented and forgiving; a reply missing its markers falls back to
// treating the whole text as the answer with a neutral confidence.

const neutralConfidence = 0.5

func generatePrompt(prompt, taskContext string) string {
	var b strings.Builder
	if taskContext != "" {
		b.WriteString("Context:\n")
		b.WriteString(taskContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Solve the following problem. Reply with exactly two sections:\n")
	b.WriteString("ANSWER: <your final answer>\n")
	b.WriteString("CONFIDENCE: <number between 0 and 1>\n\n")
	b.WriteString("Problem:\n")
	b.WriteString(prompt)
	return b.String()
}

func critiquePrompt(problem, targetAnswer string) string {
	var b strings.Builder
	b.WriteString("You are reviewing another solver's answer to a problem. ")
	b.WriteString("Check it for correctness, completeness, and internal consistency.\n\n")
	b.WriteString("Problem:\n")
	b.WriteString(problem)
	b.WriteString("\n\nAnswer under review:\n")
	b.WriteString(targetAnswer)
	b.WriteString("\n\nReply with:\n")
	b.WriteString("ISSUE: <one concrete issue per line, omit if none>\n")
	b.WriteString("CONFIDENCE: <your confidence between 0 and 1 that the answer is correct>\n")
	return b.String()
}

func revisePrompt(problem, ownAnswer string, critiques []string) string {
	var b strings.Builder
	b.WriteString("You previously answered a problem. Other solvers critiqued your answer. ")
	b.WriteString("Produce your final answer, revised if the critiques found real flaws.\n\n")
	b.WriteString("Problem:\n")
	b.WriteString(problem)
	b.WriteString("\n\nYour original answer:\n")
	b.WriteString(ownAnswer)
	if len(critiques) > 0 {
		b.WriteString("\n\nCritiques of your answer:\n")
		for _, c := range critiques {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nReply with:\n")
	b.WriteString("ANSWER: <your final answer>\n")
	b.WriteString("CONFIDENCE: <number between 0 and 1>\n")
	return b.String()
}

func challengePrompt(problem, consensusText string) string {
	var b strings.Builder
	b.WriteString("Play devil's advocate. Several independent solvers agreed on an answer. ")
	b.WriteString("Find the strongest concrete flaw in it, if one exists. ")
	b.WriteString("Do not restate an alternative opinion; cite a specific, checkable defect.\n\n")
	b.WriteString("Problem:\n")
	b.WriteString(problem)
	b.WriteString("\n\nConsensus answer:\n")
	b.WriteString(consensusText)
	b.WriteString("\n\nReply with:\n")
	b.WriteString("CLAIM: <your counter-claim, or NONE if the consensus holds>\n")
	b.WriteString("DEFECT: <one specific checkable defect per line, omit if none>\n")
	b.WriteString("ANSWER: <the corrected answer, or the consensus answer if it holds>\n")
	b.WriteString("CONFIDENCE: <number between 0 and 1>\n")
	return b.String()
}

// parsedReply holds the fields extracted from a structured model reply.
type parsedReply struct {
	Answer     string
	Claim      string
	Issues     []string
	Defects    []string
	Confidence float64
}

func parseReply(text string) parsedReply {
	p := parsedReply{Confidence: neutralConfidence}
	var answerLines []string
	inAnswer := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasPrefixFold(trimmed, "ANSWER:"):
			inAnswer = true
			answerLines = append(answerLines, strings.TrimSpace(trimmed[len("ANSWER:"):]))
		case hasPrefixFold(trimmed, "CONFIDENCE:"):
			inAnswer = false
			if v, err := strconv.ParseFloat(strings.TrimSpace(trimmed[len("CONFIDENCE:"):]), 64); err == nil {
				p.Confidence = clamp01(v)
			}
		case hasPrefixFold(trimmed, "CLAIM:"):
			inAnswer = false
			p.Claim = strings.TrimSpace(trimmed[len("CLAIM:"):])
		case hasPrefixFold(trimmed, "ISSUE:"):
			inAnswer = false
			if issue := strings.TrimSpace(trimmed[len("ISSUE:"):]); issue != "" {
				p.Issues = append(p.Issues, issue)
			}
		case hasPrefixFold(trimmed, "DEFECT:"):
			inAnswer = false
			if defect := strings.TrimSpace(trimmed[len("DEFECT:"):]); defect != "" {
				p.Defects = append(p.Defects, defect)
			}
		case inAnswer:
			answerLines = append(answerLines, line)
		}
	}

	p.Answer = strings.TrimSpace(strings.Join(answerLines, "\n"))
	if p.Answer == "" {
		p.Answer = strings.TrimSpace(text)
	}
	return p
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func critiqueSummary(c string, issues []string) string {
	if len(issues) == 0 {
		return fmt.Sprintf("%s: no issues found", c)
	}
	return fmt.Sprintf("%s: %s", c, strings.Join(issues, "; "))
}
