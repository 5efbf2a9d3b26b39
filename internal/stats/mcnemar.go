package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/model"
)

// exactThreshold is the smaller-discordant-cell count below which the exact
// binomial test replaces the chi-square approximation, which behaves poorly
// on small samples.
const exactThreshold = 25

// TestKind names which McNemar variant produced a p-value.
type TestKind string

const (
	TestExactBinomial TestKind = "mcnemar_exact_binomial"
	TestChiSquare     TestKind = "mcnemar_chi_square_corrected"
)

// McNemarResult is the paired-test outcome for two runs on identical
// sample IDs.
type McNemarResult struct {
	// APassBFail and AFailBPass are the discordant cell counts.
	APassBFail int      `json:"a_pass_b_fail"`
	AFailBPass int      `json:"a_fail_b_pass"`
	PValue     float64  `json:"p_value"`
	TestUsed   TestKind `json:"test_used"`
	Warnings   []string `json:"warnings,omitempty"`
}

// McNemar runs the paired significance test between two runs. The test is
// only valid on identical sample ID sets; a mismatch is a structural error,
// never a silently wrong number.
func McNemar(a, b model.RunOutcomeSet) (*McNemarResult, error) {
	if err := checkSameSamples(a, b); err != nil {
		return nil, err
	}

	aPassed := a.PassedByID()
	bPassed := b.PassedByID()

	res := &McNemarResult{}
	for id, ap := range aPassed {
		bp := bPassed[id]
		switch {
		case ap && !bp:
			res.APassBFail++
		case !ap && bp:
			res.AFailBPass++
		}
	}

	n := res.APassBFail + res.AFailBPass
	if n == 0 {
		// No discordant pairs: the runs are identical on every sample, so
		// there is no evidence of a difference.
		res.PValue = 1.0
		res.TestUsed = TestExactBinomial
		res.Warnings = append(res.Warnings, "no discordant pairs; runs agree on every sample")
		return res, nil
	}

	smaller := res.APassBFail
	if res.AFailBPass < smaller {
		smaller = res.AFailBPass
	}

	if smaller < exactThreshold {
		res.TestUsed = TestExactBinomial
		res.PValue = exactBinomialTwoSided(smaller, n)
		if n < 6 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("only %d discordant pairs; the test has very little power", n))
		}
	} else {
		res.TestUsed = TestChiSquare
		// Edwards continuity correction.
		diff := math.Abs(float64(res.APassBFail-res.AFailBPass)) - 1
		if diff < 0 {
			diff = 0
		}
		chi2 := diff * diff / float64(n)
		res.PValue = chiSquarePValue1DF(chi2)
	}

	return res, nil
}

// checkSameSamples verifies the two runs cover an identical sample ID set.
func checkSameSamples(a, b model.RunOutcomeSet) error {
	aIDs := a.PassedByID()
	bIDs := b.PassedByID()
	if len(aIDs) != len(a.Outcomes) {
		return eris.Errorf("stats: mcnemar: run %s has duplicate sample IDs", a.RunID)
	}
	if len(bIDs) != len(b.Outcomes) {
		return eris.Errorf("stats: mcnemar: run %s has duplicate sample IDs", b.RunID)
	}

	var missing []string
	for id := range aIDs {
		if _, ok := bIDs[id]; !ok {
			missing = append(missing, id)
		}
	}
	for id := range bIDs {
		if _, ok := aIDs[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return eris.Errorf("stats: mcnemar: runs do not share an identical sample set; paired test invalid (mismatched: %v)", missing)
	}
	return nil
}

// exactBinomialTwoSided computes the two-sided exact binomial p-value for k
// successes in n trials under p=0.5: 2 * P(X <= min(k, n-k)), capped at 1.
func exactBinomialTwoSided(k, n int) float64 {
	if n == 0 {
		return 1.0
	}
	if k > n-k {
		k = n - k
	}

	tail := 0.0
	for i := 0; i <= k; i++ {
		tail += binomPMF(i, n)
	}
	p := 2 * tail
	if p > 1 {
		p = 1
	}
	return p
}

// binomPMF is C(n,i) * 0.5^n computed in log space to stay finite for
// large n.
func binomPMF(i, n int) float64 {
	logC := lgamma(float64(n)+1) - lgamma(float64(i)+1) - lgamma(float64(n-i)+1)
	return math.Exp(logC + float64(n)*math.Log(0.5))
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// chiSquarePValue1DF is the survival function of chi-square with one degree
// of freedom: P(X >= x) = erfc(sqrt(x/2)).
func chiSquarePValue1DF(x float64) float64 {
	if x <= 0 {
		return 1.0
	}
	return math.Erfc(math.Sqrt(x / 2))
}
