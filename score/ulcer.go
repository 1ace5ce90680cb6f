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

// Ulcer The Ulcer Index (UI) measures downside risk in terms of both the
// depth and duration of price declines. It is the root mean square of the
// drawdown series over its full length:
//
//	UI = sqrt(Σ dd² / d)
//
// where d is n, or n - 1 with UlcerNMinus1.
func Ulcer(dd []float64, denominator stats.UlcerDenominator) (float64, error) {
	n := len(dd)
	d := n
	if denominator == stats.UlcerNMinus1 {
		d = n - 1
	}

	if d < 1 {
		return math.NaN(), stats.InsufficientData("ulcer index", n-d+1, n)
	}

	return math.Sqrt(floats.Dot(dd, dd) / float64(d)), nil
}
