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
	"errors"
	"fmt"
	"strings"

	"github.com/penny-vault/perfstats/common"
	"github.com/penny-vault/perfstats/data"
	"github.com/penny-vault/perfstats/parity"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrParityFailed = errors.New("parity check failed")

func init() {
	rootCmd.AddCommand(parityCmd)

	parityCmd.Flags().Float64("tolerance", 0, fmt.Sprintf("maximum relative error per metric; 0 selects %g, or %g when either side uses the approximate CDF", parity.DefaultTolerance, parity.ApproximateCDFTolerance))
	viper.BindPFlag("parity.tolerance", parityCmd.Flags().Lookup("tolerance"))

	parityCmd.Flags().String("label-a", "A", "name of the base configuration in the report")
	viper.BindPFlag("parity.label_a", parityCmd.Flags().Lookup("label-a"))

	parityCmd.Flags().String("label-b", "B", "name of the overridden configuration in the report")
	viper.BindPFlag("parity.label_b", parityCmd.Flags().Lookup("label-b"))

	addConfigFlags(parityCmd.Flags(), "b-", parityBPrefix)
}

var parityCmd = &cobra.Command{
	Use:   "parity <returns file>",
	Short: "Check that two metric configurations agree on a return series",
	Long: `Compute every metric of <returns file> twice, once with the base
configuration (A) and once with the parity.b.* overrides or --b-* flags (B),
and compare the results metric by metric. Exits with an error when any metric
is outside tolerance or defined on only one side.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		format, err := outputFormat()
		if err != nil {
			return err
		}

		cfgA, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config A: %w", err)
		}

		cfgB, err := loadParityConfig(cfgA)
		if err != nil {
			return fmt.Errorf("config B: %w", err)
		}

		series, err := data.LoadReturns(args[0])
		if err != nil {
			return err
		}

		cache, err := common.SetupCache()
		if err != nil {
			return err
		}

		fingerprint, err := data.Fingerprint(series.Returns, cfgA)
		if err != nil {
			return err
		}

		a := newCachedPipeline(score.NewPipeline(viper.GetString("parity.label_a"), cfgA), cache)
		b := newCachedPipeline(score.NewPipeline(viper.GetString("parity.label_b"), cfgB), cache)

		tolerance := parityTolerance(viper.GetFloat64("parity.tolerance"), cfgA, cfgB)
		report, err := parity.New(a, b, tolerance).Run(ctx, series.Values())
		if err != nil {
			log.Error().Err(err).Msg("parity run failed")
			return err
		}
		report.Fingerprint = fingerprint

		log.Info().Object("Report", report).Msg("parity run complete")

		if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
			return err
		}

		if !report.Passed() {
			return fmt.Errorf("%w: %s", ErrParityFailed, strings.Join(report.Failures(), ", "))
		}
		return nil
	},
}

// parityTolerance picks the default tolerance when none was given
func parityTolerance(requested float64, a, b stats.Config) float64 {
	if requested != 0 {
		return requested
	}
	if a.CDFPrecision == stats.CDFApproximate || b.CDFPrecision == stats.CDFApproximate {
		return parity.ApproximateCDFTolerance
	}
	return parity.DefaultTolerance
}
