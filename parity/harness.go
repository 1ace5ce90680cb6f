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

package parity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/penny-vault/perfstats/observability/opentelemetry"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTolerance is the relative error allowed between two exact
	// implementations of the same formulas
	DefaultTolerance = 1e-6

	// ApproximateCDFTolerance is the relative error allowed when one side
	// evaluates PSR with the coarse normal CDF approximation
	ApproximateCDFTolerance = 0.2
)

var (
	ErrMissingMetric    = errors.New("metric not reported by strategy")
	ErrInvalidTolerance = errors.New("tolerance must be a non-negative number")
)

// Harness runs two strategies over the same return series and compares
// their metrics
type Harness struct {
	A         score.Strategy
	B         score.Strategy
	Tolerance float64
}

// New creates a harness comparing a against b
func New(a, b score.Strategy, tolerance float64) *Harness {
	return &Harness{
		A:         a,
		B:         b,
		Tolerance: tolerance,
	}
}

// Run evaluates both strategies concurrently and builds the report. A
// strategy that fails outright leaves every metric on its side undefined;
// it does not abort the comparison.
func (h *Harness) Run(ctx context.Context, returns []float64) (*Report, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "parity.Run")
	defer span.End()

	if math.IsNaN(h.Tolerance) || h.Tolerance < 0 {
		span.SetStatus(codes.Error, "invalid tolerance")
		return nil, fmt.Errorf("%w: %v", ErrInvalidTolerance, h.Tolerance)
	}

	report := &Report{
		RunID:     uuid.New(),
		StrategyA: h.A.Name(),
		StrategyB: h.B.Name(),
		Tolerance: h.Tolerance,
	}

	span.SetAttributes(
		attribute.String("RunID", report.RunID.String()),
		attribute.String("StrategyA", report.StrategyA),
		attribute.String("StrategyB", report.StrategyB),
	)

	// each side gets its own copy so that neither strategy can observe the other
	inputA := append([]float64(nil), returns...)
	inputB := append([]float64(nil), returns...)

	var metricsA, metricsB score.Metrics
	g := new(errgroup.Group)
	g.Go(func() error {
		metricsA = evaluate(ctx, h.A, inputA)
		return nil
	})
	g.Go(func() error {
		metricsB = evaluate(ctx, h.B, inputB)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done during parity run")
		return nil, err
	}

	report.Entries = Compare(metricsA, metricsB, h.Tolerance)
	report.names = unionNames(metricsA, metricsB)

	subLog := log.With().Str("RunID", report.RunID.String()).Logger()
	for _, name := range report.names {
		entry := report.Entries[name]
		if entry.WithinTolerance {
			subLog.Debug().Object("Entry", entry).Msg("metric within tolerance")
		} else {
			subLog.Warn().Object("Entry", entry).Msg("metric outside tolerance")
		}
	}

	if !report.Passed() {
		span.SetStatus(codes.Error, "parity check failed")
	}

	return report, nil
}

// evaluate runs strategy and converts an outright failure into a metric set
// where every metric is undefined with that error
func evaluate(ctx context.Context, strategy score.Strategy, returns []float64) score.Metrics {
	m, err := strategy.Compute(ctx, returns)
	if err == nil {
		return m
	}

	log.Warn().Err(err).Str("Strategy", strategy.Name()).Str("Kind", stats.KindOf(err)).Msg("strategy failed")
	failed := make(score.Metrics, len(score.MetricNames))
	for _, name := range score.MetricNames {
		failed[name] = score.Value{Value: math.NaN(), Err: err}
	}
	return failed
}
