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
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/perfstats/drawdown"
	"github.com/penny-vault/perfstats/parity"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
	"github.com/spf13/viper"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output.format"))
	switch format {
	case "", formatTable:
		return formatTable, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

type computeOutput struct {
	Name        string              `json:"name"`
	Fingerprint string              `json:"fingerprint"`
	Config      stats.Config        `json:"config"`
	Metrics     score.Metrics       `json:"metrics"`
	DrawDowns   []*drawdown.Episode `json:"drawdowns,omitempty"`
}

func writeMetrics(w io.Writer, format string, out computeOutput) error {
	if format == formatJSON {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "%s (%s)\n", out.Name, out.Fingerprint)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value", "Undefined Because"})
	table.SetBorder(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	for _, name := range out.Metrics.Names() {
		v := out.Metrics[name]
		if v.Defined() {
			table.Append([]string{name, formatFloat(v.Value), ""})
		} else {
			table.Append([]string{name, "-", v.Err.Error()})
		}
	}

	table.Render()

	if len(out.DrawDowns) > 0 {
		writeDrawDowns(w, out.DrawDowns)
	}
	return nil
}

func writeDrawDowns(w io.Writer, episodes []*drawdown.Episode) {
	fmt.Fprintln(w, "\nDeepest draw downs")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Begin", "Trough", "Recovery", "Loss"})
	table.SetBorder(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	for _, ep := range episodes {
		table.Append([]string{
			periodIndex(ep.Begin),
			periodIndex(ep.Trough),
			periodIndex(ep.Recovery),
			formatFloat(ep.Loss),
		})
	}
	table.Render()
}

// periodIndex formats an episode index; -1 marks a peak before the series
// or a missing recovery
func periodIndex(idx int) string {
	if idx < 0 {
		return "-"
	}
	return strconv.Itoa(idx)
}

func writeReport(w io.Writer, format string, report *parity.Report) error {
	if format == formatJSON {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "%s vs %s (run %s, fingerprint %s)\n", report.StrategyA, report.StrategyB, report.RunID, report.Fingerprint)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "A", "B", "Abs Error", "Rel Error", "Status"})
	table.SetBorder(false)

	for _, name := range report.Names() {
		entry := report.Entries[name]
		table.Append([]string{
			name,
			formatFloat(entry.A),
			formatFloat(entry.B),
			formatFloat(entry.AbsError),
			formatFloat(entry.RelError),
			string(entry.Status),
		})
	}

	footer := []string{"", "", "", "", "tolerance", formatFloat(report.Tolerance)}
	table.SetFooter(footer)
	table.Render()

	if report.Passed() {
		fmt.Fprintln(w, "PASSED")
	} else {
		fmt.Fprintf(w, "FAILED: %s\n", strings.Join(report.Failures(), ", "))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func formatFloat(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return fmt.Sprintf("%.6g", x)
}
