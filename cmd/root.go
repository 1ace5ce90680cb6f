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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/penny-vault/perfstats/common"
	"github.com/penny-vault/perfstats/observability/opentelemetry"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKey is a stats.Config field that can be set from the config file,
// the environment or a flag
type configKey struct {
	key   string
	usage string
	def   any
}

var configKeys = buildConfigKeys(stats.DefaultConfig())

var (
	closeLog        func() error
	shutdownTracing func(context.Context) error
)

func buildConfigKeys(def stats.Config) []configKey {
	return []configKey{
		{"annualization_factor", "periods per year used to annualize Sharpe", def.AnnualizationFactor},
		{"confidence", "VaR/CVaR confidence level in (0, 1)", def.Confidence},
		{"risk_free_rate", "annual risk free rate", def.RiskFreeRate},
		{"benchmark_sharpe", "benchmark Sharpe ratio for PSR", def.BenchmarkSharpe},
		{"quantile_method", "linear, lower, higher, nearest, midpoint, empirical, lininterp or parametric", string(def.QuantileMethod)},
		{"cdf_precision", "normal CDF used by PSR: exact or approximate", string(def.CDFPrecision)},
		{"variance_ddof", "delta degrees of freedom of the standard deviation: 0 or 1", def.VarianceDDoF},
		{"cvar_boundary", "whether an observation equal to VaR is in the tail: inclusive or exclusive", string(def.CVaRBoundary)},
		{"empty_tail_policy", "CVaR of an empty tail: error or var", string(def.EmptyTailPolicy)},
		{"kurtosis_term", "PSR kurtosis term: excess or excess-minus-3", string(def.KurtosisTerm)},
		{"ulcer_denominator", "ulcer index divisor: n or n-1", string(def.UlcerDenominator)},
		{"total_return", "Serenity numerator: sum or compounded", string(def.TotalReturn)},
		{"psr_annualized_sharpe", "evaluate PSR with the annualized Sharpe ratio", def.PSRAnnualizedSharpe},
		{"peak_seed", "initial running maximum of the price index: first-price or unit", string(def.PeakSeed)},
		{"moment_backend", "moment accumulation code: gonum or direct", string(def.MomentBackend)},
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// addConfigFlags registers one flag per config key on flags, each bound to
// the viper key prefix+key
func addConfigFlags(flags *pflag.FlagSet, flagPrefix, keyPrefix string) {
	flags.String(flagPrefix+"preset", "default", "starting conventions: default or reference")
	if err := viper.BindPFlag(keyPrefix+"preset", flags.Lookup(flagPrefix+"preset")); err != nil {
		log.Panic().Err(err).Str("Key", keyPrefix+"preset").Msg("could not bind flag")
	}

	for _, k := range configKeys {
		name := flagPrefix + flagName(k.key)
		switch def := k.def.(type) {
		case float64:
			flags.Float64(name, def, k.usage)
		case int:
			flags.Int(name, def, k.usage)
		case bool:
			flags.Bool(name, def, k.usage)
		case string:
			flags.String(name, def, k.usage)
		}
		if err := viper.BindPFlag(keyPrefix+k.key, flags.Lookup(name)); err != nil {
			log.Panic().Err(err).Str("Key", keyPrefix+k.key).Msg("could not bind flag")
		}
	}
}

func init() {
	cobra.OnInitialize(func() {
		viper.SetEnvPrefix("perfstats")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()
	})

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	rootCmd.PersistentFlags().Bool("log-pretty", true, "Format logs for humans instead of as JSON")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Tracing
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP collector to export traces to, if blank tracing is disabled")
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	rootCmd.PersistentFlags().Bool("otlp-http", false, "Use HTTP instead of gRPC for the OTLP connection")
	viper.BindPFlag("otlp.http", rootCmd.PersistentFlags().Lookup("otlp-http"))

	// Cache
	rootCmd.PersistentFlags().Int("cache-local-size", common.DefaultCacheSize, "Number of results kept in the in-memory cache")
	viper.BindPFlag("cache.local_size", rootCmd.PersistentFlags().Lookup("cache-local-size"))

	// Output
	rootCmd.PersistentFlags().StringP("format", "f", "table", "Output format: table or json")
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))

	// Metric conventions
	addConfigFlags(rootCmd.PersistentFlags(), "", "")
}

var rootCmd = &cobra.Command{
	Use:          "perfstats",
	Version:      common.CurrentVersion.String(),
	Short:        "Risk-adjusted performance statistics for return series",
	Long:         `Compute moments, drawdowns, tail risk and composite scores (Sharpe, PSR, Ulcer, Serenity) of a return series and check that two metric configurations agree.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closeLog = common.SetupLogging()

		var err error
		shutdownTracing, err = opentelemetry.Setup()
		if err != nil {
			log.Error().Err(err).Msg("could not setup tracing")
			return err
		}
		return nil
	},
}

// cleanup runs after every command, including ones that failed
func cleanup() {
	if shutdownTracing != nil {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	}
	if closeLog != nil {
		closeLog()
	}
}

func Execute() {
	err := rootCmd.Execute()
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
