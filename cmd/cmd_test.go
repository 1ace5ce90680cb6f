// Copyright 2021-2022
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

package cmd

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/perfstats/common"
	"github.com/penny-vault/perfstats/parity"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
)

var _ = Describe("Config", func() {
	AfterEach(func() {
		viper.Reset()
	})

	Context("with presets", func() {
		It("selects the named conventions", func() {
			cfg, err := presetConfig("reference")
			Expect(err).To(BeNil())
			Expect(cfg).To(Equal(stats.ReferenceConfig()))

			cfg, err = presetConfig("")
			Expect(err).To(BeNil())
			Expect(cfg).To(Equal(stats.DefaultConfig()))
		})

		It("rejects an unknown preset", func() {
			_, err := presetConfig("fancy")
			Expect(errors.Is(err, stats.ErrConfiguration)).To(BeTrue())
		})
	})

	Context("when overlaying keys", func() {
		It("keeps the base config when nothing is set", func() {
			cfg, err := loadConfig()
			Expect(err).To(BeNil())
			Expect(cfg).To(Equal(stats.DefaultConfig()))
		})

		It("applies top-level keys", func() {
			viper.Set("quantile_method", "parametric")
			viper.Set("confidence", "0.99")
			viper.Set("variance_ddof", 0)

			cfg, err := loadConfig()
			Expect(err).To(BeNil())
			Expect(cfg.QuantileMethod).To(Equal(stats.QuantileParametric))
			Expect(cfg.Confidence).To(Equal(0.99))
			Expect(cfg.VarianceDDoF).To(Equal(0))
			Expect(cfg.AnnualizationFactor).To(Equal(252.0))
		})

		It("rejects invalid values", func() {
			viper.Set("cvar_boundary", "sideways")
			_, err := loadConfig()
			Expect(errors.Is(err, stats.ErrConfiguration)).To(BeTrue())
		})

		It("derives side B from side A", func() {
			viper.Set("risk_free_rate", 0.02)
			viper.Set("parity.b.moment_backend", "direct")

			cfgA, err := loadConfig()
			Expect(err).To(BeNil())
			cfgB, err := loadParityConfig(cfgA)
			Expect(err).To(BeNil())

			Expect(cfgA.MomentBackend).To(Equal(stats.BackendGonum))
			Expect(cfgB.MomentBackend).To(Equal(stats.BackendDirect))
			Expect(cfgB.RiskFreeRate).To(Equal(0.02))
		})

		It("compares the other moment backend unless side B names one", func() {
			cfgB, err := loadParityConfig(stats.DefaultConfig())
			Expect(err).To(BeNil())
			Expect(cfgB.MomentBackend).To(Equal(stats.BackendDirect))

			direct := stats.DefaultConfig()
			direct.MomentBackend = stats.BackendDirect
			cfgB, err = loadParityConfig(direct)
			Expect(err).To(BeNil())
			Expect(cfgB.MomentBackend).To(Equal(stats.BackendGonum))

			viper.Set("parity.b.moment_backend", "gonum")
			cfgB, err = loadParityConfig(stats.DefaultConfig())
			Expect(err).To(BeNil())
			Expect(cfgB.MomentBackend).To(Equal(stats.BackendGonum))
		})

		It("starts side B from its own preset", func() {
			viper.Set("parity.b.preset", "reference")
			viper.Set("parity.b.ulcer_denominator", "n")

			cfgB, err := loadParityConfig(stats.DefaultConfig())
			Expect(err).To(BeNil())
			Expect(cfgB.QuantileMethod).To(Equal(stats.QuantileParametric))
			Expect(cfgB.UlcerDenominator).To(Equal(stats.UlcerN))
		})
	})

	Context("when choosing a tolerance", func() {
		It("uses an explicit value", func() {
			Expect(parityTolerance(0.01, stats.DefaultConfig(), stats.DefaultConfig())).To(Equal(0.01))
		})

		It("widens the default for the approximate CDF", func() {
			approx := stats.DefaultConfig()
			approx.CDFPrecision = stats.CDFApproximate
			Expect(parityTolerance(0, stats.DefaultConfig(), stats.DefaultConfig())).To(Equal(parity.DefaultTolerance))
			Expect(parityTolerance(0, stats.DefaultConfig(), approx)).To(Equal(parity.ApproximateCDFTolerance))
		})
	})
})

var _ = Describe("Cached pipeline", func() {
	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.03, -0.01, 0.02, -0.015}

	It("returns the same metrics from the cache", func() {
		cache, err := common.NewResultCache(8)
		Expect(err).To(BeNil())

		p := newCachedPipeline(score.NewPipeline("a", stats.DefaultConfig()), cache)
		first, err := p.Compute(context.Background(), returns)
		Expect(err).To(BeNil())
		Expect(cache.Len()).To(Equal(1))

		second, err := p.Compute(context.Background(), returns)
		Expect(err).To(BeNil())
		Expect(cache.Len()).To(Equal(1))

		for _, name := range score.MetricNames {
			Expect(second[name].Defined()).To(Equal(first[name].Defined()), name)
			if first[name].Defined() {
				Expect(second[name].Value).To(Equal(first[name].Value), name)
			} else {
				Expect(stats.KindOf(second[name].Err)).To(Equal(stats.KindOf(first[name].Err)), name)
			}
		}
	})

	It("keys the cache by configuration", func() {
		cache, err := common.NewResultCache(8)
		Expect(err).To(BeNil())

		_, err = newCachedPipeline(score.NewPipeline("a", stats.DefaultConfig()), cache).Compute(context.Background(), returns)
		Expect(err).To(BeNil())
		_, err = newCachedPipeline(score.NewPipeline("b", stats.ReferenceConfig()), cache).Compute(context.Background(), returns)
		Expect(err).To(BeNil())
		Expect(cache.Len()).To(Equal(2))
	})
})

var _ = Describe("Output", func() {
	It("renders a parity report as a table", func() {
		cfg := stats.DefaultConfig()
		h := parity.New(score.NewPipeline("a", cfg), score.NewPipeline("b", cfg), parity.DefaultTolerance)
		report, err := h.Run(context.Background(), []float64{0.01, -0.02, 0.015, -0.005, 0.03, -0.01})
		Expect(err).To(BeNil())

		buf := &bytes.Buffer{}
		Expect(writeReport(buf, formatTable, report)).To(BeNil())
		Expect(buf.String()).To(ContainSubstring("PASSED"))
		Expect(buf.String()).To(ContainSubstring("sharpe"))
	})

	It("lists the deepest draw downs", func() {
		cfg := stats.DefaultConfig()
		returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01, 0.03, -0.015}
		m, err := score.NewPipeline("a", cfg).Compute(context.Background(), returns)
		Expect(err).To(BeNil())

		episodes := topDrawDowns(returns, cfg, 2)
		Expect(episodes).To(HaveLen(2))
		Expect(episodes[0].Loss).To(Equal(m[score.MaxDrawDown].Value))
		Expect(topDrawDowns(returns, cfg, 0)).To(BeNil())
		Expect(topDrawDowns([]float64{-1, 0.01}, cfg, 2)).To(BeNil())

		buf := &bytes.Buffer{}
		Expect(writeMetrics(buf, formatTable, computeOutput{Name: "a", Config: cfg, Metrics: m, DrawDowns: episodes})).To(BeNil())
		Expect(buf.String()).To(ContainSubstring("Deepest draw downs"))

		buf.Reset()
		Expect(writeMetrics(buf, formatJSON, computeOutput{Name: "a", Config: cfg, Metrics: m, DrawDowns: episodes})).To(BeNil())
		Expect(buf.String()).To(ContainSubstring(`"trough"`))
	})

	It("renders metrics as JSON", func() {
		cfg := stats.DefaultConfig()
		m, err := score.NewPipeline("a", cfg).Compute(context.Background(), []float64{0.01, 0.02})
		Expect(err).To(BeNil())

		buf := &bytes.Buffer{}
		Expect(writeMetrics(buf, formatJSON, computeOutput{Name: "a", Config: cfg, Metrics: m})).To(BeNil())
		Expect(buf.String()).To(ContainSubstring(`"values"`))
		Expect(buf.String()).To(ContainSubstring(`"insufficient_data"`))
	})
})
