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

// TotalReturnOf aggregates returns into the Serenity numerator. The default
// is the simple sum; TotalReturnCompounded uses Π(1 + r) - 1.
func TotalReturnOf(returns []float64, kind stats.TotalReturnKind) (float64, error) {
	if len(returns) == 0 {
		return math.NaN(), stats.InsufficientData("total return", 1, 0)
	}

	if kind == stats.TotalReturnCompounded {
		total := 1.0
		for _, r := range returns {
			total *= 1 + r
		}
		return total - 1, nil
	}

	return floats.Sum(returns), nil
}

// Pitfall is the tail risk of the drawdown series scaled by volatility:
// -CVaR(drawdowns) / std(returns)
func Pitfall(cvar, std float64) (float64, error) {
	if std == 0 {
		return math.NaN(), stats.Degenerate("pitfall", "standard deviation is zero")
	}

	pitfall := -cvar / std
	if pitfall == 0 {
		return math.NaN(), stats.Degenerate("pitfall", "conditional drawdown at risk is zero")
	}

	return pitfall, nil
}

// Serenity The Serenity Index rewards return per unit of drawdown pain and
// drawdown tail risk:
//
//	serenity = (total return - rf) / (ulcer index * pitfall)
func Serenity(totalReturn, riskFree, ulcer, pitfall float64) (float64, error) {
	if ulcer == 0 {
		return math.NaN(), stats.Degenerate("serenity index", "ulcer index is zero")
	}

	if pitfall == 0 {
		return math.NaN(), stats.Degenerate("serenity index", "pitfall is zero")
	}

	return (totalReturn - riskFree) / (ulcer * pitfall), nil
}
