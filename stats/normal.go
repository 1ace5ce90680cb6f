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

package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalCDF evaluates the standard normal cumulative distribution function.
// CDFExact is computed from math.Erfc and is accurate to within a few ulps
// over the whole real line.
func NormalCDF(x float64, precision CDFPrecision) float64 {
	if precision == CDFApproximate {
		return approximateNormalCDF(x)
	}
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile returns the p-quantile of a normal distribution with the
// given mean and standard deviation
func NormalQuantile(p, mean, std float64) float64 {
	dist := distuv.Normal{Mu: mean, Sigma: std}
	return dist.Quantile(p)
}

func approximateNormalCDF(x float64) float64 {
	var sign float64
	switch {
	case x > 0:
		sign = 1
	case x < 0:
		sign = -1
	}
	return 0.5 * (1 + sign*math.Sqrt(1-math.Exp(-2*x*x/math.Pi)))
}
