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

package tailrisk

import (
	"fmt"
	"math"
	"sort"

	"github.com/penny-vault/perfstats/stats"
	"gonum.org/v1/gonum/stat"
)

var sampleCalculator = stats.Calculator{Backend: stats.BackendGonum, DDoF: 1}

// Quantile returns the p-quantile of x using the given method. x is not
// modified. The parametric method fits the gonum sample moments; use
// QuantileWith to choose the calculator.
func Quantile(x []float64, p float64, method stats.QuantileMethod) (float64, error) {
	return QuantileWith(sampleCalculator, x, p, method)
}

// QuantileWith is Quantile with the moments of the parametric method taken
// from calc
func QuantileWith(calc stats.Calculator, x []float64, p float64, method stats.QuantileMethod) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN(), fmt.Errorf("quantile probability must be in [0, 1], got %v: %w", p, stats.ErrConfiguration)
	}

	if method == stats.QuantileParametric {
		return parametricQuantile(calc, x, p)
	}

	n := len(x)
	if n < 1 {
		return math.NaN(), stats.InsufficientData("quantile", 1, n)
	}

	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	// fractional rank of the quantile among the order statistics
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))

	switch method {
	case stats.QuantileLinear:
		return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo]), nil
	case stats.QuantileLower:
		return sorted[lo], nil
	case stats.QuantileHigher:
		return sorted[hi], nil
	case stats.QuantileNearest:
		return sorted[int(math.RoundToEven(h))], nil
	case stats.QuantileMidpoint:
		return (sorted[lo] + sorted[hi]) / 2, nil
	case stats.QuantileEmpirical:
		return stat.Quantile(p, stat.Empirical, sorted, nil), nil
	case stats.QuantileLinInterp:
		return stat.Quantile(p, stat.LinInterp, sorted, nil), nil
	default:
		return math.NaN(), fmt.Errorf("unrecognized quantile_method %q: %w", method, stats.ErrConfiguration)
	}
}

// parametricQuantile fits a normal distribution with the mean and standard
// deviation of x as computed by calc
func parametricQuantile(calc stats.Calculator, x []float64, p float64) (float64, error) {
	mean, err := calc.Mean(x)
	if err != nil {
		return math.NaN(), err
	}

	std, err := calc.StdDev(x)
	if err != nil {
		return math.NaN(), err
	}

	if std == 0 {
		return math.NaN(), stats.Degenerate("parametric quantile", "standard deviation is zero")
	}

	return stats.NormalQuantile(p, mean, std), nil
}
