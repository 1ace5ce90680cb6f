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
	"math"
	"sort"

	"github.com/goccy/go-json"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog"
)

// metric names
const (
	Observations   = "n"
	Mean           = "mean"
	SampleStdDev   = "sample_std"
	Skew           = "skew"
	ExcessKurtosis = "excess_kurtosis"
	TotalReturn    = "total_return"
	Sharpe         = "sharpe"
	PSR            = "psr"
	MaxDrawDown    = "max_drawdown"
	UlcerIndex     = "ulcer_index"
	VaR            = "var"
	CVaR           = "cvar"
	SerenityIndex  = "serenity_index"
)

// MetricNames lists every metric produced by Compute in reporting order
var MetricNames = []string{
	Observations, Mean, SampleStdDev, Skew, ExcessKurtosis, TotalReturn, Sharpe, PSR,
	MaxDrawDown, UlcerIndex, VaR, CVaR, SerenityIndex,
}

// Value is a single metric. When Err is non-nil the metric is undefined and
// Value is NaN.
type Value struct {
	Value float64
	Err   error
}

// Defined reports whether the metric has a usable value
func (v Value) Defined() bool {
	return v.Err == nil
}

func defined(x float64) Value {
	return Value{Value: x}
}

func undefined(err error) Value {
	return Value{Value: math.NaN(), Err: err}
}

func valueOf(x float64, err error) Value {
	if err != nil {
		return undefined(err)
	}
	return defined(x)
}

// firstErr returns the first failure among the dependencies of a metric
func firstErr(deps ...Value) error {
	for _, dep := range deps {
		if dep.Err != nil {
			return dep.Err
		}
	}
	return nil
}

// Metrics maps metric names to values
type Metrics map[string]Value

// Names returns the metric names in reporting order; names not part of
// MetricNames follow in lexical order
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	known := make(map[string]bool, len(MetricNames))
	for _, name := range MetricNames {
		known[name] = true
		if _, ok := m[name]; ok {
			names = append(names, name)
		}
	}

	extra := []string{}
	for name := range m {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

// Float returns the value of a metric and whether it is defined
func (m Metrics) Float(name string) (float64, bool) {
	v, ok := m[name]
	if !ok || !v.Defined() {
		return math.NaN(), false
	}
	return v.Value, true
}

type metricError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type metricsJSON struct {
	Values map[string]*float64    `json:"values"`
	Errors map[string]metricError `json:"errors,omitempty"`
}

// MarshalJSON writes undefined metrics as null in "values" with the reason
// in "errors"
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		Values: make(map[string]*float64, len(m)),
		Errors: make(map[string]metricError),
	}

	for name, v := range m {
		if !v.Defined() {
			out.Values[name] = nil
			out.Errors[name] = metricError{Kind: stats.KindOf(v.Err), Message: v.Err.Error()}
			continue
		}
		x := v.Value
		out.Values[name] = &x
	}

	return json.Marshal(out)
}

// UnmarshalJSON restores metrics written by MarshalJSON, including the error
// kind of undefined metrics
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var in metricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	res := make(Metrics, len(in.Values))
	for name, v := range in.Values {
		if v == nil {
			e := in.Errors[name]
			res[name] = undefined(stats.RestoreError(e.Kind, e.Message))
			continue
		}
		res[name] = defined(*v)
	}

	*m = res
	return nil
}

func (m Metrics) MarshalZerologObject(e *zerolog.Event) {
	for _, name := range m.Names() {
		v := m[name]
		if v.Defined() {
			e.Float64(name, v.Value)
		} else {
			e.Str(name, "undefined: "+v.Err.Error())
		}
	}
}
