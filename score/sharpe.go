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
	"gonum.org/v1/gonum/floats"
)

// PeriodRiskFree converts an annual risk free rate into the equivalent
// per-period rate by geometric de-annualization
func PeriodRiskFree(annualRate, annualizationFactor float64) float64 {
	if annualRate == 0 {
		return 0
	}
	return math.Pow(1+annualRate, 1/annualizationFactor) - 1
}

// ExcessReturns returns a new series of returns in excess of the per-period
// risk free rate
func ExcessReturns(returns []float64, cfg stats.Config) []float64 {
	excess := make([]float64, len(returns))
	copy(excess, returns)
	if rf := PeriodRiskFree(cfg.RiskFreeRate, cfg.AnnualizationFactor); rf != 0 {
		floats.AddConst(-rf, excess)
	}
	return excess
}

// PeriodSharpe returns the un-annualized Sharpe ratio: mean excess return
// divided by the standard deviation of excess returns
func PeriodSharpe(returns []float64, cfg stats.Config) (float64, error) {
	calc := cfg.Calculator()
	excess := ExcessReturns(returns, cfg)

	std, err := calc.StdDev(excess)
	if err != nil {
		return math.NaN(), err
	}

	if std == 0 {
		return math.NaN(), stats.Degenerate("sharpe", "standard deviation is zero")
	}

	mean, err := calc.Mean(excess)
	if err != nil {
		return math.NaN(), err
	}

	return mean / std, nil
}

// SharpeRatio The ratio is the average return earned in excess of the risk-free
// rate per unit of volatility or total risk, annualized by the square root of
// the number of periods per year.
//
// Sharpe = mean(Rp - Rf) / std(Rp - Rf) * sqrt(annualization factor)
func SharpeRatio(returns []float64, cfg stats.Config) (float64, error) {
	sr, err := PeriodSharpe(returns, cfg)
	if err != nil {
		return math.NaN(), err
	}
	return sr * math.Sqrt(cfg.AnnualizationFactor), nil
}
