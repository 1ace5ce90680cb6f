// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package score

import (
	"math"

	"github.com/penny-vault/perfstats/stats"
)

// SharpeStdErr estimates the standard error of a Sharpe ratio sr measured
// over n periods of returns with the given skew and excess kurtosis
// (Bailey & López de Prado):
//
//	sqrt((1 + sr²/2 - skew·sr + (k/4)·sr²) / (n - 1))
//
// k is the excess kurtosis itself under KurtosisExcess.
func SharpeStdErr(sr, skew, excessKurtosis float64, n int, term stats.KurtosisTerm) (float64, error) {
	if n < 2 {
		return math.NaN(), stats.InsufficientData("sharpe standard error", 2, n)
	}

	k := excessKurtosis
	if term == stats.KurtosisExcessMinus3 {
		k -= 3
	}

	radicand := (1 + 0.5*sr*sr - skew*sr + (k/4)*sr*sr) / float64(n-1)
	if !(radicand > 0) {
		return math.NaN(), stats.Degenerate("sharpe standard error", "variance estimate is not positive")
	}

	return math.Sqrt(radicand), nil
}

// ProbabilisticSharpe is the probability that the true Sharpe ratio exceeds
// benchmark given the estimation error of sr:
//
//	PSR = Φ((sr - benchmark) / SharpeStdErr)
func ProbabilisticSharpe(sr, benchmark, skew, excessKurtosis float64, n int, cfg stats.Config) (float64, error) {
	sigma, err := SharpeStdErr(sr, skew, excessKurtosis, n, cfg.KurtosisTerm)
	if err != nil {
		return math.NaN(), err
	}

	z := (sr - benchmark) / sigma
	return stats.NormalCDF(z, cfg.CDFPrecision), nil
}

// PSRFromReturns computes the probabilistic Sharpe ratio of returns. The
// Sharpe ratio fed to the formula is un-annualized unless
// cfg.PSRAnnualizedSharpe is set.
func PSRFromReturns(returns []float64, cfg stats.Config) (float64, error) {
	sr, err := PeriodSharpe(returns, cfg)
	if err != nil {
		return math.NaN(), err
	}

	if cfg.PSRAnnualizedSharpe {
		sr *= math.Sqrt(cfg.AnnualizationFactor)
	}

	calc := cfg.Calculator()
	skew, err := calc.Skew(returns)
	if err != nil {
		return math.NaN(), err
	}

	kurt, err := calc.ExcessKurtosis(returns)
	if err != nil {
		return math.NaN(), err
	}

	return ProbabilisticSharpe(sr, cfg.BenchmarkSharpe, skew, kurt, len(returns), cfg)
}
