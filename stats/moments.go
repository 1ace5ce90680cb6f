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
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Moments are the first four sample moments of a return series
type Moments struct {
	N              int
	Mean           float64
	StdDev         float64
	Skew           float64
	ExcessKurtosis float64
}

// Calculator computes moments with a fixed backend and variance divisor.
//
// DDoF only affects StdDev. Skew and ExcessKurtosis always standardize with
// the sample (n-1) standard deviation because their bias-correction factors
// assume it.
type Calculator struct {
	Backend MomentBackend
	DDoF    int
}

var defaultCalculator = Calculator{Backend: BackendGonum, DDoF: 1}

// Mean returns the arithmetic mean of x
func Mean(x []float64) (float64, error) { return defaultCalculator.Mean(x) }

// StdDev returns the sample (n-1) standard deviation of x
func StdDev(x []float64) (float64, error) { return defaultCalculator.StdDev(x) }

// Skew returns the bias-corrected sample skewness of x
func Skew(x []float64) (float64, error) { return defaultCalculator.Skew(x) }

// ExcessKurtosis returns the bias-corrected sample excess kurtosis of x
func ExcessKurtosis(x []float64) (float64, error) { return defaultCalculator.ExcessKurtosis(x) }

// ComputeMoments returns all four moments of x using the default calculator
func ComputeMoments(x []float64) (Moments, error) { return defaultCalculator.Moments(x) }

func (c Calculator) Mean(x []float64) (float64, error) {
	if len(x) < 1 {
		return math.NaN(), InsufficientData("mean", 1, len(x))
	}

	if c.Backend == BackendDirect {
		var sum float64
		for _, v := range x {
			sum += v
		}
		return sum / float64(len(x)), nil
	}

	return stat.Mean(x, nil), nil
}

// StdDev returns sqrt(Σ(x - mean)² / (n - DDoF)). A series whose values are
// all equal has a standard deviation of exactly 0 regardless of how the mean
// rounds.
func (c Calculator) StdDev(x []float64) (float64, error) {
	if c.DDoF != 0 && c.DDoF != 1 {
		return math.NaN(), fmt.Errorf("variance ddof must be 0 or 1, got %d: %w", c.DDoF, ErrConfiguration)
	}

	n := len(x)
	if n < c.DDoF+1 {
		return math.NaN(), InsufficientData("standard deviation", c.DDoF+1, n)
	}

	if isConstant(x) {
		return 0, nil
	}

	if c.Backend == BackendDirect {
		mean, _ := c.Mean(x)
		var ss float64
		for _, v := range x {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(n-c.DDoF)), nil
	}

	if c.DDoF == 0 {
		return math.Sqrt(stat.PopVariance(x, nil)), nil
	}
	return stat.StdDev(x, nil), nil
}

// Skew returns (n / ((n-1)(n-2))) · Σ((x - mean) / s)³ where s is the sample
// standard deviation.
func (c Calculator) Skew(x []float64) (float64, error) {
	n := len(x)
	if n < 3 {
		return math.NaN(), InsufficientData("skew", 3, n)
	}

	if isConstant(x) {
		return math.NaN(), Degenerate("skew", "standard deviation is zero")
	}

	if c.Backend == BackendDirect {
		mean, std := c.sampleMeanStdDev(x)
		var s float64
		for _, v := range x {
			z := (v - mean) / std
			s += z * z * z
		}
		nf := float64(n)
		return nf / ((nf - 1) * (nf - 2)) * s, nil
	}

	// gonum applies the same n / ((n-1)(n-2)) correction
	return stat.Skew(x, nil), nil
}

// ExcessKurtosis returns
//
//	n(n+1) / ((n-1)(n-2)(n-3)) · Σ((x - mean) / s)⁴ - 3(n-1)² / ((n-2)(n-3))
//
// where s is the sample standard deviation.
func (c Calculator) ExcessKurtosis(x []float64) (float64, error) {
	n := len(x)
	if n < 4 {
		return math.NaN(), InsufficientData("excess kurtosis", 4, n)
	}

	if isConstant(x) {
		return math.NaN(), Degenerate("excess kurtosis", "standard deviation is zero")
	}

	if c.Backend == BackendDirect {
		mean, std := c.sampleMeanStdDev(x)
		var s float64
		for _, v := range x {
			z := (v - mean) / std
			s += z * z * z * z
		}
		nf := float64(n)
		mul := nf * (nf + 1) / ((nf - 1) * (nf - 2) * (nf - 3))
		offset := 3 * (nf - 1) * (nf - 1) / ((nf - 2) * (nf - 3))
		return mul*s - offset, nil
	}

	return stat.ExKurtosis(x, nil), nil
}

// Moments computes all four moments and returns the first failure
func (c Calculator) Moments(x []float64) (Moments, error) {
	m := Moments{N: len(x)}
	var err error

	if m.Mean, err = c.Mean(x); err != nil {
		return m, err
	}
	if m.StdDev, err = c.StdDev(x); err != nil {
		return m, err
	}
	if m.Skew, err = c.Skew(x); err != nil {
		return m, err
	}
	if m.ExcessKurtosis, err = c.ExcessKurtosis(x); err != nil {
		return m, err
	}

	return m, nil
}

func (c Calculator) sampleMeanStdDev(x []float64) (mean, std float64) {
	sample := Calculator{Backend: c.Backend, DDoF: 1}
	mean, _ = sample.Mean(x)
	std, _ = sample.StdDev(x)
	return
}

func isConstant(x []float64) bool {
	return len(x) > 0 && floats.Max(x) == floats.Min(x)
}

func (m Moments) MarshalZerologObject(e *zerolog.Event) {
	e.Int("N", m.N).
		Float64("Mean", m.Mean).
		Float64("StdDev", m.StdDev).
		Float64("Skew", m.Skew).
		Float64("ExcessKurtosis", m.ExcessKurtosis)
}
