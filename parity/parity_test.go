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

package parity_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goccy/go-json"
	"github.com/penny-vault/perfstats/parity"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
)

var scenario = []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01, 0.03, -0.015}

// brokenStrategy fails outright
type brokenStrategy struct{}

func (brokenStrategy) Name() string { return "broken" }

func (brokenStrategy) Compute(context.Context, []float64) (score.Metrics, error) {
	return nil, stats.Degenerate("broken", "always fails")
}

// mutatingStrategy scribbles over its input after computing
type mutatingStrategy struct {
	inner score.Strategy
}

func (s mutatingStrategy) Name() string { return "mutating" }

func (s mutatingStrategy) Compute(ctx context.Context, returns []float64) (score.Metrics, error) {
	m, err := s.inner.Compute(ctx, returns)
	for ii := range returns {
		returns[ii] = 0
	}
	return m, err
}

var _ = Describe("Harness", func() {
	var (
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reports zero error for identical strategies", func() {
		a := score.NewPipeline("a", stats.DefaultConfig())
		b := score.NewPipeline("b", stats.DefaultConfig())

		report, err := parity.New(a, b, parity.DefaultTolerance).Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeTrue())
		Expect(report.StrategyA).To(Equal("a"))
		Expect(report.StrategyB).To(Equal("b"))
		Expect(report.Names()).To(Equal(score.MetricNames))

		for _, name := range report.Names() {
			entry := report.Entries[name]
			Expect(entry.Status).To(Equal(parity.StatusOK), name)
			Expect(entry.AbsError).To(Equal(0.0), name)
			Expect(entry.RelError).To(Equal(0.0), name)
		}
	})

	It("assigns each run its own id", func() {
		h := parity.New(score.NewPipeline("a", stats.DefaultConfig()), score.NewPipeline("b", stats.DefaultConfig()), parity.DefaultTolerance)
		r1, err := h.Run(ctx, scenario)
		Expect(err).To(BeNil())
		r2, err := h.Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(r1.RunID).ToNot(Equal(r2.RunID))
	})

	It("passes for the gonum and direct moment backends", func() {
		direct := stats.DefaultConfig()
		direct.MomentBackend = stats.BackendDirect

		report, err := parity.New(
			score.NewPipeline("gonum", stats.DefaultConfig()),
			score.NewPipeline("direct", direct),
			parity.DefaultTolerance,
		).Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(report.Failures()).To(BeEmpty())
	})

	It("flags the approximate normal CDF at the exact tolerance", func() {
		approx := stats.DefaultConfig()
		approx.CDFPrecision = stats.CDFApproximate

		h := parity.New(score.NewPipeline("exact", stats.DefaultConfig()), score.NewPipeline("approx", approx), parity.DefaultTolerance)
		report, err := h.Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeFalse())
		Expect(report.Failures()).To(Equal([]string{score.PSR}))
		Expect(report.Entries[score.PSR].Status).To(Equal(parity.StatusMismatch))

		h.Tolerance = parity.ApproximateCDFTolerance
		report, err = h.Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeTrue())
	})

	It("reports every metric of a failing strategy as undefined", func() {
		report, err := parity.New(score.NewPipeline("a", stats.DefaultConfig()), brokenStrategy{}, parity.DefaultTolerance).Run(ctx, scenario)
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeFalse())

		for _, name := range score.MetricNames {
			entry := report.Entries[name]
			Expect(entry.Status).To(Equal(parity.StatusBUndefined), name)
			Expect(entry.WithinTolerance).To(BeFalse(), name)
			Expect(errors.Is(entry.ErrB, stats.ErrDegenerateInput)).To(BeTrue(), name)
		}
	})

	It("accepts metrics undefined for the same reason on both sides", func() {
		short := []float64{0.01, -0.02, 0.015}
		report, err := parity.New(score.NewPipeline("a", stats.DefaultConfig()), score.NewPipeline("b", stats.DefaultConfig()), parity.DefaultTolerance).Run(ctx, short)
		Expect(err).To(BeNil())
		Expect(report.Entries[score.ExcessKurtosis].Status).To(Equal(parity.StatusBothUndefined))
		Expect(report.Passed()).To(BeTrue())
	})

	It("isolates the inputs of the two sides", func() {
		input := append([]float64(nil), scenario...)
		mutating := mutatingStrategy{inner: score.NewPipeline("inner", stats.DefaultConfig())}

		report, err := parity.New(mutating, score.NewPipeline("b", stats.DefaultConfig()), parity.DefaultTolerance).Run(ctx, input)
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeTrue())
		Expect(input).To(Equal(scenario))
	})

	It("rejects a negative tolerance", func() {
		_, err := parity.New(brokenStrategy{}, brokenStrategy{}, -1).Run(ctx, scenario)
		Expect(errors.Is(err, parity.ErrInvalidTolerance)).To(BeTrue())
	})

	It("stops when the context is done", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := parity.New(score.NewPipeline("a", stats.DefaultConfig()), score.NewPipeline("b", stats.DefaultConfig()), parity.DefaultTolerance).Run(cancelled, scenario)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})

var _ = Describe("Report", func() {
	It("computes relative deviation", func() {
		abs, rel := parity.Deviation(1, 1)
		Expect(abs).To(Equal(0.0))
		Expect(rel).To(Equal(0.0))

		abs, rel = parity.Deviation(0, 0)
		Expect(abs).To(Equal(0.0))
		Expect(rel).To(Equal(0.0))

		abs, rel = parity.Deviation(1, 0.9)
		Expect(abs).To(BeNumerically("~", 0.1, 1e-12))
		Expect(rel).To(BeNumerically("~", 0.1, 1e-12))

		abs, rel = parity.Deviation(-2, 2)
		Expect(abs).To(Equal(4.0))
		Expect(rel).To(Equal(2.0))
	})

	It("distinguishes undefined metrics of different kinds", func() {
		a := score.Metrics{score.PSR: {Value: math.NaN(), Err: stats.ErrInsufficientData}}
		b := score.Metrics{score.PSR: {Value: math.NaN(), Err: stats.ErrDegenerateInput}}
		entries := parity.Compare(a, b, parity.DefaultTolerance)
		Expect(entries[score.PSR].Status).To(Equal(parity.StatusKindMismatched))
		Expect(entries[score.PSR].WithinTolerance).To(BeFalse())
	})

	It("treats a non-finite value without an error as undefined", func() {
		a := score.Metrics{score.UlcerIndex: {Value: math.NaN()}, score.VaR: {Value: math.Inf(-1)}}
		b := score.Metrics{score.UlcerIndex: {Value: math.NaN()}, score.VaR: {Value: -0.02}}
		entries := parity.Compare(a, b, parity.DefaultTolerance)

		Expect(entries[score.UlcerIndex].Status).To(Equal(parity.StatusBothUndefined))
		Expect(entries[score.UlcerIndex].WithinTolerance).To(BeTrue())
		Expect(errors.Is(entries[score.UlcerIndex].ErrA, stats.ErrDegenerateInput)).To(BeTrue())

		Expect(entries[score.VaR].Status).To(Equal(parity.StatusAUndefined))
		Expect(entries[score.VaR].WithinTolerance).To(BeFalse())
	})

	It("passes identical strategies on a series with a total loss", func() {
		p := score.NewPipeline("a", stats.DefaultConfig())
		report, err := parity.New(p, p, parity.DefaultTolerance).Run(context.Background(), []float64{-1, 0.01, -0.02, 0.015, -0.005})
		Expect(err).To(BeNil())
		Expect(report.Passed()).To(BeTrue())
		Expect(report.Entries[score.MaxDrawDown].Status).To(Equal(parity.StatusBothUndefined))

		_, err = json.Marshal(report)
		Expect(err).To(BeNil())
	})

	It("treats a metric missing on one side as undefined there", func() {
		a := score.Metrics{score.Sharpe: {Value: 1}, "extra": {Value: 2}}
		b := score.Metrics{score.Sharpe: {Value: 1}}
		report := &parity.Report{Entries: parity.Compare(a, b, parity.DefaultTolerance)}

		Expect(report.Names()).To(Equal([]string{score.Sharpe, "extra"}))
		Expect(report.Entries["extra"].Status).To(Equal(parity.StatusBUndefined))
		Expect(errors.Is(report.Entries["extra"].ErrB, parity.ErrMissingMetric)).To(BeTrue())
		Expect(report.Failures()).To(Equal([]string{"extra"}))
	})

	It("writes undefined numbers as null", func() {
		a := score.Metrics{score.PSR: {Value: 0.5}}
		b := score.Metrics{score.PSR: {Value: math.NaN(), Err: stats.ErrInsufficientData}}
		report := &parity.Report{StrategyA: "a", StrategyB: "b", Entries: parity.Compare(a, b, parity.DefaultTolerance)}

		raw, err := json.Marshal(report)
		Expect(err).To(BeNil())

		var decoded map[string]any
		Expect(json.Unmarshal(raw, &decoded)).To(BeNil())
		Expect(decoded["passed"]).To(Equal(false))

		metrics := decoded["metrics"].(map[string]any)
		psr := metrics[score.PSR].(map[string]any)
		Expect(psr["value_a"]).To(Equal(0.5))
		Expect(psr["value_b"]).To(BeNil())
		Expect(psr["status"]).To(Equal(string(parity.StatusBUndefined)))
	})
})
