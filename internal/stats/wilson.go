// Package stats turns per-sample run outcomes into confidence intervals,
// paired significance tests, and fail-set analysis. Everything in this
// package is a pure function over frozen RunOutcomeSets.
package stats

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Interval is a confidence interval for a binomial proportion.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Wilson computes the Wilson score interval for passed/total at confidence
// level 1-alpha. Unlike the normal approximation it stays finite and inside
// [0,1] at 0% and 100% observed rates. Boundary cases are reported through
// warnings, never as NaN.
func Wilson(passed, total int, alpha float64) (Interval, []string, error) {
	if total <= 0 {
		return Interval{}, nil, eris.Errorf("stats: wilson: total must be positive, got %d", total)
	}
	if passed < 0 || passed > total {
		return Interval{}, nil, eris.Errorf("stats: wilson: passed %d out of range [0,%d]", passed, total)
	}
	if alpha <= 0 || alpha >= 1 {
		return Interval{}, nil, eris.Errorf("stats: wilson: alpha %v outside (0,1)", alpha)
	}

	var warnings []string
	if passed == 0 || passed == total {
		warnings = append(warnings, fmt.Sprintf("pass rate at boundary (%d/%d); interval is one-sided in practice", passed, total))
	}
	if total < 10 {
		warnings = append(warnings, fmt.Sprintf("small sample (n=%d); interval is wide", total))
	}

	z := zScore(1 - alpha/2)
	n := float64(total)
	p := float64(passed) / n
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := (z / denom) * math.Sqrt(p*(1-p)/n+z2/(4*n*n))

	lower := center - half
	upper := center + half
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return Interval{Lower: lower, Upper: upper}, warnings, nil
}

// zScore returns the standard normal quantile for probability p via the
// Acklam rational approximation (max absolute error about 1.15e-9, more
// than enough for confidence intervals).
func zScore(p float64) float64 {
	if p <= 0 || p >= 1 {
		return math.NaN()
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}

	const plow = 0.02425
	const phigh = 1 - plow

	switch {
	case p < plow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > phigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}
