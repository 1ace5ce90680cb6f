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

	"github.com/penny-vault/perfstats/data"
	"github.com/penny-vault/perfstats/drawdown"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().Int("drawdowns", 5, "number of deepest draw downs to list; 0 disables the list")
	viper.BindPFlag("output.drawdowns", computeCmd.Flags().Lookup("drawdowns"))
}

var computeCmd = &cobra.Command{
	Use:   "compute <returns file>",
	Short: "Compute every metric of a return series",
	Long: `Compute moments, drawdown, tail risk and composite scores of the return
series in <returns file>. The file holds a JSON array of returns or an object
with "name" and "returns"; files ending in .lz4 are decompressed first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		format, err := outputFormat()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		series, err := data.LoadReturns(args[0])
		if err != nil {
			return err
		}

		fingerprint, err := data.Fingerprint(series.Returns, cfg)
		if err != nil {
			return err
		}

		subLog := log.With().Str("Series", series.Name).Str("Fingerprint", fingerprint).Logger()
		subLog.Info().Object("Config", cfg).Int("Observations", len(series.Returns)).Msg("computing metrics")

		m, err := score.NewPipeline(series.Name, cfg).Compute(ctx, series.Values())
		if err != nil {
			subLog.Error().Err(err).Msg("could not compute metrics")
			return err
		}

		return writeMetrics(cmd.OutOrStdout(), format, computeOutput{
			Name:        series.Name,
			Fingerprint: fingerprint,
			Config:      cfg,
			Metrics:     m,
			DrawDowns:   topDrawDowns(series.Values(), cfg, viper.GetInt("output.drawdowns")),
		})
	},
}


// topDrawDowns lists the n deepest draw down episodes of returns. A series
// without a drawdown series, e.g. after a total loss, lists none.
func topDrawDowns(returns []float64, cfg stats.Config, n int) []*drawdown.Episode {
	if n <= 0 {
		return nil
	}

	dd, err := drawdown.Series(returns, cfg.PeakSeed)
	if err != nil {
		log.Debug().Err(err).Msg("no draw downs to list")
		return nil
	}
	return drawdown.Top(dd, n)
}
