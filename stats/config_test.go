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

package stats_test

import (
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/perfstats/stats"
)

var _ = Describe("Config", func() {
	It("validates the presets", func() {
		Expect(stats.DefaultConfig().Validate()).To(BeNil())
		Expect(stats.ReferenceConfig().Validate()).To(BeNil())
	})

	DescribeTable("rejects invalid values",
		func(modify func(*stats.Config)) {
			cfg := stats.DefaultConfig()
			modify(&cfg)
			Expect(errors.Is(cfg.Validate(), stats.ErrConfiguration)).To(BeTrue())
		},
		Entry("confidence of 0", func(c *stats.Config) { c.Confidence = 0 }),
		Entry("confidence of 1", func(c *stats.Config) { c.Confidence = 1 }),
		Entry("NaN confidence", func(c *stats.Config) { c.Confidence = math.NaN() }),
		Entry("zero annualization", func(c *stats.Config) { c.AnnualizationFactor = 0 }),
		Entry("risk free rate of -100%", func(c *stats.Config) { c.RiskFreeRate = -1 }),
		Entry("infinite benchmark", func(c *stats.Config) { c.BenchmarkSharpe = math.Inf(1) }),
		Entry("ddof of 2", func(c *stats.Config) { c.VarianceDDoF = 2 }),
		Entry("unknown quantile method", func(c *stats.Config) { c.QuantileMethod = "hazen" }),
		Entry("unknown cdf precision", func(c *stats.Config) { c.CDFPrecision = "fast" }),
		Entry("unknown boundary", func(c *stats.Config) { c.CVaRBoundary = "both" }),
		Entry("unknown empty tail policy", func(c *stats.Config) { c.EmptyTailPolicy = "zero" }),
		Entry("unknown kurtosis term", func(c *stats.Config) { c.KurtosisTerm = "raw" }),
		Entry("unknown ulcer denominator", func(c *stats.Config) { c.UlcerDenominator = "n-2" }),
		Entry("unknown total return", func(c *stats.Config) { c.TotalReturn = "log" }),
		Entry("unknown peak seed", func(c *stats.Config) { c.PeakSeed = "zero" }),
		Entry("unknown backend", func(c *stats.Config) { c.MomentBackend = "blas" }),
	)

	It("builds a calculator from the config", func() {
		cfg := stats.DefaultConfig()
		cfg.MomentBackend = stats.BackendDirect
		cfg.VarianceDDoF = 0
		Expect(cfg.Calculator()).To(Equal(stats.Calculator{Backend: stats.BackendDirect, DDoF: 0}))
	})
})

var _ = Describe("Errors", func() {
	It("classifies wrapped sentinels", func() {
		Expect(stats.KindOf(nil)).To(Equal(""))
		Expect(stats.KindOf(stats.InsufficientData("skew", 3, 2))).To(Equal(stats.KindInsufficientData))
		Expect(stats.KindOf(stats.Degenerate("sharpe", "zero"))).To(Equal(stats.KindDegenerateInput))
		Expect(stats.KindOf(fmt.Errorf("cvar: %w", stats.ErrEmptyTail))).To(Equal(stats.KindEmptyTail))
		Expect(stats.KindOf(errors.New("boom"))).To(Equal(stats.KindUnknown))
	})

	It("restores errors from their kind", func() {
		err := stats.RestoreError(stats.KindDegenerateInput, "sharpe: zero")
		Expect(err.Error()).To(Equal("sharpe: zero"))
		Expect(errors.Is(err, stats.ErrDegenerateInput)).To(BeTrue())

		err = stats.RestoreError("mystery", "what")
		Expect(stats.KindOf(err)).To(Equal(stats.KindUnknown))
	})
})

var _ = Describe("Normal distribution", func() {
	It("evaluates the exact CDF", func() {
		Expect(stats.NormalCDF(0, stats.CDFExact)).To(BeNumerically("~", 0.5, 1e-15))
		Expect(stats.NormalCDF(1.959963984540054, stats.CDFExact)).To(BeNumerically("~", 0.975, 1e-12))
		Expect(stats.NormalCDF(-1, stats.CDFExact)).To(BeNumerically("~", 0.15865525393145707, 1e-12))
	})

	It("keeps the approximation symmetric and bounded", func() {
		for _, x := range []float64{-3, -1, -0.2, 0, 0.2, 1, 3} {
			v := stats.NormalCDF(x, stats.CDFApproximate)
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<=", 1))
			Expect(v + stats.NormalCDF(-x, stats.CDFApproximate)).To(BeNumerically("~", 1, 1e-12))
		}
	})

	It("differs noticeably from the exact CDF", func() {
		x := 1.1
		approx := stats.NormalCDF(x, stats.CDFApproximate)
		exact := stats.NormalCDF(x, stats.CDFExact)
		Expect(approx).ToNot(BeNumerically("~", exact, 1e-6))
		Expect(approx).To(BeNumerically("~", exact, 0.05))
	})

	It("inverts the CDF", func() {
		Expect(stats.NormalQuantile(0.5, 0.1, 2)).To(BeNumerically("~", 0.1, 1e-12))
		Expect(stats.NormalQuantile(0.975, 0, 1)).To(BeNumerically("~", 1.959963984540054, 1e-9))
	})
})
