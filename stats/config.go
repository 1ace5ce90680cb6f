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
)

// QuantileMethod selects how a quantile is read from the order statistics of
// a sample. Libraries disagree on the default, so it is always explicit here.
type QuantileMethod string

const (
	// QuantileLinear interpolates between the two nearest order statistics at
	// h = (n-1)p (Hyndman & Fan type 7). This is the numpy / pandas default.
	QuantileLinear QuantileMethod = "linear"
	QuantileLower  QuantileMethod = "lower"
	QuantileHigher QuantileMethod = "higher"
	// QuantileNearest rounds h half to even, like numpy
	QuantileNearest  QuantileMethod = "nearest"
	QuantileMidpoint QuantileMethod = "midpoint"
	// QuantileEmpirical is the inverse of the empirical CDF (type 1)
	QuantileEmpirical QuantileMethod = "empirical"
	// QuantileLinInterp is gonum's piecewise linear interpolation of the
	// empirical CDF (type 4)
	QuantileLinInterp QuantileMethod = "lininterp"
	// QuantileParametric assumes normality: mean + std * Φ⁻¹(p)
	QuantileParametric QuantileMethod = "parametric"
)

// CDFPrecision selects the standard normal CDF used by PSR
type CDFPrecision string

const (
	CDFExact CDFPrecision = "exact"
	// CDFApproximate is the coarse 0.5(1 + sign(x)·sqrt(1 - exp(-2x²/π)))
	// approximation. It can be off by several percentage points and exists
	// only to reproduce results that were computed with it.
	CDFApproximate CDFPrecision = "approximate"
)

// Boundary decides whether an observation equal to VaR belongs to the tail
type Boundary string

const (
	BoundaryInclusive Boundary = "inclusive"
	BoundaryExclusive Boundary = "exclusive"
)

// EmptyTailPolicy decides what CVaR returns when no observation is in the tail
type EmptyTailPolicy string

const (
	EmptyTailError EmptyTailPolicy = "error"
	EmptyTailVaR   EmptyTailPolicy = "var"
)

// KurtosisTerm selects the kurtosis value used in the PSR standard error
type KurtosisTerm string

const (
	KurtosisExcess KurtosisTerm = "excess"
	// KurtosisExcessMinus3 subtracts 3 from a value that is already excess
	// kurtosis. Only useful to reproduce implementations that do so.
	KurtosisExcessMinus3 KurtosisTerm = "excess-minus-3"
)

// UlcerDenominator selects the divisor of the sum of squared drawdowns
type UlcerDenominator string

const (
	UlcerN       UlcerDenominator = "n"
	UlcerNMinus1 UlcerDenominator = "n-1"
)

// TotalReturnKind selects how the Serenity numerator aggregates returns
type TotalReturnKind string

const (
	TotalReturnSum        TotalReturnKind = "sum"
	TotalReturnCompounded TotalReturnKind = "compounded"
)

// PeakSeed selects the initial running maximum of the price index
type PeakSeed string

const (
	PeakFirstPrice PeakSeed = "first-price"
	PeakUnit       PeakSeed = "unit"
)

// MomentBackend selects the accumulation code used for the moments
type MomentBackend string

const (
	BackendGonum  MomentBackend = "gonum"
	BackendDirect MomentBackend = "direct"
)

// Config pins every numeric convention used to compute the metrics. Two
// computations with equal configs are expected to agree to floating point
// tolerance.
type Config struct {
	AnnualizationFactor float64          `mapstructure:"annualization_factor" json:"annualization_factor"`
	Confidence          float64          `mapstructure:"confidence" json:"confidence"`
	RiskFreeRate        float64          `mapstructure:"risk_free_rate" json:"risk_free_rate"`
	BenchmarkSharpe     float64          `mapstructure:"benchmark_sharpe" json:"benchmark_sharpe"`
	QuantileMethod      QuantileMethod   `mapstructure:"quantile_method" json:"quantile_method"`
	CDFPrecision        CDFPrecision     `mapstructure:"cdf_precision" json:"cdf_precision"`
	VarianceDDoF        int              `mapstructure:"variance_ddof" json:"variance_ddof"`
	CVaRBoundary        Boundary         `mapstructure:"cvar_boundary" json:"cvar_boundary"`
	EmptyTailPolicy     EmptyTailPolicy  `mapstructure:"empty_tail_policy" json:"empty_tail_policy"`
	KurtosisTerm        KurtosisTerm     `mapstructure:"kurtosis_term" json:"kurtosis_term"`
	UlcerDenominator    UlcerDenominator `mapstructure:"ulcer_denominator" json:"ulcer_denominator"`
	TotalReturn         TotalReturnKind  `mapstructure:"total_return" json:"total_return"`
	PSRAnnualizedSharpe bool             `mapstructure:"psr_annualized_sharpe" json:"psr_annualized_sharpe"`
	PeakSeed            PeakSeed         `mapstructure:"peak_seed" json:"peak_seed"`
	MomentBackend       MomentBackend    `mapstructure:"moment_backend" json:"moment_backend"`
}

// DefaultConfig returns daily-return conventions: 252 periods per year, 95%
// confidence, sample (n-1) standard deviation, linear quantiles, inclusive
// CVaR boundary and an exact normal CDF.
func DefaultConfig() Config {
	return Config{
		AnnualizationFactor: 252,
		Confidence:          0.95,
		QuantileMethod:      QuantileLinear,
		CDFPrecision:        CDFExact,
		VarianceDDoF:        1,
		CVaRBoundary:        BoundaryInclusive,
		EmptyTailPolicy:     EmptyTailError,
		KurtosisTerm:        KurtosisExcess,
		UlcerDenominator:    UlcerN,
		TotalReturn:         TotalReturnSum,
		PeakSeed:            PeakFirstPrice,
		MomentBackend:       BackendGonum,
	}
}

// ReferenceConfig returns the conventions of popular dataframe-based
// analytics tooling: gaussian VaR, strict "<" tail, n-1 ulcer divisor,
// VaR fallback on an empty tail and the (kurtosis - 3) PSR term.
func ReferenceConfig() Config {
	cfg := DefaultConfig()
	cfg.QuantileMethod = QuantileParametric
	cfg.CVaRBoundary = BoundaryExclusive
	cfg.EmptyTailPolicy = EmptyTailVaR
	cfg.KurtosisTerm = KurtosisExcessMinus3
	cfg.UlcerDenominator = UlcerNMinus1
	return cfg
}

// Calculator returns the moment calculator configured by cfg
func (cfg Config) Calculator() Calculator {
	return Calculator{
		Backend: cfg.MomentBackend,
		DDoF:    cfg.VarianceDDoF,
	}
}

// Validate checks that every option holds a recognized value
func (cfg Config) Validate() error {
	if math.IsNaN(cfg.Confidence) || cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return fmt.Errorf("confidence must be in (0, 1), got %v: %w", cfg.Confidence, ErrConfiguration)
	}

	if math.IsNaN(cfg.AnnualizationFactor) || cfg.AnnualizationFactor <= 0 {
		return fmt.Errorf("annualization factor must be positive, got %v: %w", cfg.AnnualizationFactor, ErrConfiguration)
	}

	if math.IsNaN(cfg.RiskFreeRate) || cfg.RiskFreeRate <= -1 {
		return fmt.Errorf("risk free rate must be greater than -1, got %v: %w", cfg.RiskFreeRate, ErrConfiguration)
	}

	if math.IsNaN(cfg.BenchmarkSharpe) || math.IsInf(cfg.BenchmarkSharpe, 0) {
		return fmt.Errorf("benchmark sharpe must be finite, got %v: %w", cfg.BenchmarkSharpe, ErrConfiguration)
	}

	if cfg.VarianceDDoF != 0 && cfg.VarianceDDoF != 1 {
		return fmt.Errorf("variance ddof must be 0 or 1, got %d: %w", cfg.VarianceDDoF, ErrConfiguration)
	}

	switch cfg.QuantileMethod {
	case QuantileLinear, QuantileLower, QuantileHigher, QuantileNearest, QuantileMidpoint,
		QuantileEmpirical, QuantileLinInterp, QuantileParametric:
	default:
		return unknownOption("quantile_method", string(cfg.QuantileMethod))
	}

	switch cfg.CDFPrecision {
	case CDFExact, CDFApproximate:
	default:
		return unknownOption("cdf_precision", string(cfg.CDFPrecision))
	}

	switch cfg.CVaRBoundary {
	case BoundaryInclusive, BoundaryExclusive:
	default:
		return unknownOption("cvar_boundary", string(cfg.CVaRBoundary))
	}

	switch cfg.EmptyTailPolicy {
	case EmptyTailError, EmptyTailVaR:
	default:
		return unknownOption("empty_tail_policy", string(cfg.EmptyTailPolicy))
	}

	switch cfg.KurtosisTerm {
	case KurtosisExcess, KurtosisExcessMinus3:
	default:
		return unknownOption("kurtosis_term", string(cfg.KurtosisTerm))
	}

	switch cfg.UlcerDenominator {
	case UlcerN, UlcerNMinus1:
	default:
		return unknownOption("ulcer_denominator", string(cfg.UlcerDenominator))
	}

	switch cfg.TotalReturn {
	case TotalReturnSum, TotalReturnCompounded:
	default:
		return unknownOption("total_return", string(cfg.TotalReturn))
	}

	switch cfg.PeakSeed {
	case PeakFirstPrice, PeakUnit:
	default:
		return unknownOption("peak_seed", string(cfg.PeakSeed))
	}

	switch cfg.MomentBackend {
	case BackendGonum, BackendDirect:
	default:
		return unknownOption("moment_backend", string(cfg.MomentBackend))
	}

	return nil
}

func unknownOption(key, value string) error {
	return fmt.Errorf("unrecognized %s %q: %w", key, value, ErrConfiguration)
}

func (cfg Config) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("AnnualizationFactor", cfg.AnnualizationFactor).
		Float64("Confidence", cfg.Confidence).
		Float64("RiskFreeRate", cfg.RiskFreeRate).
		Float64("BenchmarkSharpe", cfg.BenchmarkSharpe).
		Str("QuantileMethod", string(cfg.QuantileMethod)).
		Str("CDFPrecision", string(cfg.CDFPrecision)).
		Int("VarianceDDoF", cfg.VarianceDDoF).
		Str("CVaRBoundary", string(cfg.CVaRBoundary)).
		Str("EmptyTailPolicy", string(cfg.EmptyTailPolicy)).
		Str("KurtosisTerm", string(cfg.KurtosisTerm)).
		Str("UlcerDenominator", string(cfg.UlcerDenominator)).
		Str("TotalReturn", string(cfg.TotalReturn)).
		Bool("PSRAnnualizedSharpe", cfg.PSRAnnualizedSharpe).
		Str("PeakSeed", string(cfg.PeakSeed)).
		Str("MomentBackend", string(cfg.MomentBackend))
}
