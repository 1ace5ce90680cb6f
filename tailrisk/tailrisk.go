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

	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metrics are the tail risk measures of a series at one confidence level
type Metrics struct {
	Confidence float64
	VaR        float64
	CVaR       float64
	// TailCount is the number of observations averaged into CVaR
	TailCount int
}

// VaR returns the (1 - confidence)-quantile of x. For a drawdown series this
// is a negative number: the drawdown exceeded on (1 - confidence) of periods.
func VaR(x []float64, confidence float64, method stats.QuantileMethod) (float64, error) {
	return valueAtRisk(sampleCalculator, x, confidence, method)
}

func valueAtRisk(calc stats.Calculator, x []float64, confidence float64, method stats.QuantileMethod) (float64, error) {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return math.NaN(), fmt.Errorf("confidence must be in (0, 1), got %v: %w", confidence, stats.ErrConfiguration)
	}
	return QuantileWith(calc, x, 1-confidence, method)
}

// TailMean returns the mean of the observations in the tail at or below
// threshold. BoundaryInclusive uses x <= threshold, BoundaryExclusive x <
// threshold. An empty tail is an ErrEmptyTail.
func TailMean(x []float64, threshold float64, boundary stats.Boundary) (float64, int, error) {
	var (
		sum float64
		cnt int
	)

	for _, v := range x {
		in := v <= threshold
		if boundary == stats.BoundaryExclusive {
			in = v < threshold
		}
		if in {
			sum += v
			cnt++
		}
	}

	if cnt == 0 {
		return math.NaN(), 0, fmt.Errorf("no observations %s VaR threshold %v: %w", boundaryText(boundary), threshold, stats.ErrEmptyTail)
	}

	return sum / float64(cnt), cnt, nil
}

// CVaR returns the conditional value at risk: the mean of the observations
// in the tail beyond VaR
func CVaR(x []float64, confidence float64, method stats.QuantileMethod, boundary stats.Boundary) (float64, error) {
	threshold, err := VaR(x, confidence, method)
	if err != nil {
		return math.NaN(), err
	}

	cvar, _, err := TailMean(x, threshold, boundary)
	return cvar, err
}

// Compute returns VaR and CVaR of x under the conventions in cfg. With
// EmptyTailVaR an empty tail yields CVaR = VaR instead of an error. The
// parametric method uses the moment backend and variance divisor of cfg.
func Compute(x []float64, cfg stats.Config) (Metrics, error) {
	m := Metrics{
		Confidence: cfg.Confidence,
		VaR:        math.NaN(),
		CVaR:       math.NaN(),
	}

	var err error
	m.VaR, err = valueAtRisk(cfg.Calculator(), x, cfg.Confidence, cfg.QuantileMethod)
	if err != nil {
		return m, err
	}

	m.CVaR, m.TailCount, err = TailMean(x, m.VaR, cfg.CVaRBoundary)
	if err != nil {
		if cfg.EmptyTailPolicy == stats.EmptyTailVaR && stats.KindOf(err) == stats.KindEmptyTail {
			log.Debug().Float64("VaR", m.VaR).Msg("empty tail; falling back to VaR")
			m.CVaR = m.VaR
			return m, nil
		}
		return m, err
	}

	return m, nil
}

func boundaryText(boundary stats.Boundary) string {
	if boundary == stats.BoundaryExclusive {
		return "below"
	}
	return "at or below"
}

func (m Metrics) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("Confidence", m.Confidence).Float64("VaR", m.VaR).Float64("CVaR", m.CVaR).Int("TailCount", m.TailCount)
}
