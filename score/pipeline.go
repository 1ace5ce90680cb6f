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
	"context"
	"fmt"
	"math"

	"github.com/penny-vault/perfstats/drawdown"
	"github.com/penny-vault/perfstats/observability/opentelemetry"
	"github.com/penny-vault/perfstats/stats"
	"github.com/penny-vault/perfstats/tailrisk"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Strategy is anything that turns a return series into metrics. A returned
// error means the strategy could not run at all; individual metric failures
// are carried in the Metrics values.
type Strategy interface {
	Name() string
	Compute(ctx context.Context, returns []float64) (Metrics, error)
}

// Pipeline computes every metric in MetricNames under one Config
type Pipeline struct {
	Label  string
	Config stats.Config
}

// Scores are the composite risk-adjusted scores of a return series
type Scores struct {
	Sharpe        float64
	PSR           float64
	UlcerIndex    float64
	SerenityIndex float64
}

// NewPipeline creates a new pipeline named label
func NewPipeline(label string, cfg stats.Config) *Pipeline {
	return &Pipeline{
		Label:  label,
		Config: cfg,
	}
}

func (p *Pipeline) Name() string {
	if p.Label == "" {
		return "pipeline"
	}
	return p.Label
}

// Compute evaluates the metrics of returns. Moments and the drawdown series
// are computed concurrently; composite scores wait for both. A metric whose
// dependency failed is undefined with the dependency's error.
func (p *Pipeline) Compute(ctx context.Context, returns []float64) (Metrics, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "score.Compute")
	defer span.End()

	span.SetAttributes(
		attribute.String("Strategy", p.Name()),
		attribute.Int("Observations", len(returns)),
	)

	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done before compute")
		return nil, err
	}

	calc := cfg.Calculator()
	var (
		mean, std, skew, kurt Value
		dd                    []float64
		ddErr                 error
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		mean = valueOf(calc.Mean(returns))
		std = valueOf(calc.StdDev(returns))
		skew = valueOf(calc.Skew(returns))
		kurt = valueOf(calc.ExcessKurtosis(returns))
		return nil
	})
	g.Go(func() error {
		dd, ddErr = drawdown.Series(returns, cfg.PeakSeed)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := Metrics{
		Observations:   defined(float64(len(returns))),
		Mean:           mean,
		SampleStdDev:   std,
		Skew:           skew,
		ExcessKurtosis: kurt,
		TotalReturn:    valueOf(TotalReturnOf(returns, cfg.TotalReturn)),
	}

	periodSharpe := valueOf(PeriodSharpe(returns, cfg))
	if periodSharpe.Defined() {
		m[Sharpe] = defined(periodSharpe.Value * math.Sqrt(cfg.AnnualizationFactor))
	} else {
		m[Sharpe] = periodSharpe
	}

	if err := firstErr(periodSharpe, skew, kurt); err != nil {
		m[PSR] = undefined(err)
	} else {
		sr := periodSharpe.Value
		if cfg.PSRAnnualizedSharpe {
			sr = m[Sharpe].Value
		}
		m[PSR] = valueOf(ProbabilisticSharpe(sr, cfg.BenchmarkSharpe, skew.Value, kurt.Value, len(returns), cfg))
	}

	if ddErr != nil {
		for _, name := range []string{MaxDrawDown, UlcerIndex, VaR, CVaR, SerenityIndex} {
			m[name] = undefined(ddErr)
		}
		rejectNonFinite(m)
		p.logResult(m)
		return m, nil
	}

	m[MaxDrawDown] = defined(0)
	if worst := drawdown.Max(dd); worst != nil {
		m[MaxDrawDown] = defined(worst.Loss)
		log.Debug().Str("Strategy", p.Name()).Object("DrawDown", worst).Msg("deepest draw down")
	}
	m[UlcerIndex] = valueOf(Ulcer(dd, cfg.UlcerDenominator))

	tail, err := tailrisk.Compute(dd, cfg)
	switch {
	case err == nil:
		m[VaR] = defined(tail.VaR)
		m[CVaR] = defined(tail.CVaR)
	case stats.KindOf(err) == stats.KindEmptyTail:
		m[VaR] = defined(tail.VaR)
		m[CVaR] = undefined(err)
	default:
		m[VaR] = undefined(err)
		m[CVaR] = undefined(err)
	}

	if err := firstErr(m[TotalReturn], m[UlcerIndex], m[CVaR], std); err != nil {
		m[SerenityIndex] = undefined(err)
	} else {
		pitfall, err := Pitfall(m[CVaR].Value, std.Value)
		if err != nil {
			m[SerenityIndex] = undefined(err)
		} else {
			m[SerenityIndex] = valueOf(Serenity(m[TotalReturn].Value, cfg.RiskFreeRate, m[UlcerIndex].Value, pitfall))
		}
	}

	rejectNonFinite(m)
	p.logResult(m)
	return m, nil
}

// rejectNonFinite turns any defined metric that is NaN or infinite into an
// undefined one so that no metric carries a non-finite value without a reason
func rejectNonFinite(m Metrics) {
	for name, v := range m {
		if v.Defined() && (math.IsNaN(v.Value) || math.IsInf(v.Value, 0)) {
			m[name] = undefined(stats.Degenerate(name, fmt.Sprintf("result %v is not finite", v.Value)))
		}
	}
}

func (p *Pipeline) logResult(m Metrics) {
	if e := log.Debug(); e.Enabled() {
		e.Str("Strategy", p.Name()).Object("Config", p.Config).Object("Metrics", m).Msg("computed metrics")
	}
}

// ComputeScores returns the composite scores of returns, failing with the
// first undefined score
func ComputeScores(ctx context.Context, returns []float64, cfg stats.Config) (Scores, error) {
	m, err := NewPipeline("scores", cfg).Compute(ctx, returns)
	if err != nil {
		return Scores{}, err
	}

	for _, name := range []string{Sharpe, PSR, UlcerIndex, SerenityIndex} {
		if err := m[name].Err; err != nil {
			return Scores{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	return Scores{
		Sharpe:        m[Sharpe].Value,
		PSR:           m[PSR].Value,
		UlcerIndex:    m[UlcerIndex].Value,
		SerenityIndex: m[SerenityIndex].Value,
	}, nil
}

func (s Scores) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("Sharpe", s.Sharpe).Float64("PSR", s.PSR).Float64("UlcerIndex", s.UlcerIndex).Float64("SerenityIndex", s.SerenityIndex)
}
