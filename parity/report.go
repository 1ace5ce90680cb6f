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
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/penny-vault/perfstats/score"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog"
)

// Status describes how the two sides of a metric compare
type Status string

const (
	StatusOK             Status = "ok"
	StatusMismatch       Status = "mismatch"
	StatusAUndefined     Status = "a-undefined"
	StatusBUndefined     Status = "b-undefined"
	StatusBothUndefined  Status = "both-undefined"
	StatusKindMismatched Status = "undefined-kind-mismatch"
)

// Entry is the comparison of one metric
type Entry struct {
	Name            string
	A               float64
	B               float64
	AbsError        float64
	RelError        float64
	WithinTolerance bool
	Status          Status
	ErrA            error
	ErrB            error
}

// Report is the per-metric comparison of two strategies on the same series
type Report struct {
	RunID       uuid.UUID
	Fingerprint string
	StrategyA   string
	StrategyB   string
	Tolerance   float64
	Entries     map[string]*Entry
	names       []string
}

// Compare builds an entry for every metric present in either a or b
func Compare(a, b score.Metrics, tolerance float64) map[string]*Entry {
	entries := make(map[string]*Entry, len(a))
	for _, name := range unionNames(a, b) {
		entries[name] = compareOne(name, lookup(a, name), lookup(b, name), tolerance)
	}
	return entries
}

func compareOne(name string, a, b score.Value, tolerance float64) *Entry {
	a, b = finiteOrUndefined(name, a), finiteOrUndefined(name, b)
	entry := &Entry{
		Name:     name,
		A:        a.Value,
		B:        b.Value,
		AbsError: math.NaN(),
		RelError: math.NaN(),
		ErrA:     a.Err,
		ErrB:     b.Err,
	}

	switch {
	case !a.Defined() && !b.Defined():
		entry.Status = StatusBothUndefined
		if stats.KindOf(a.Err) != stats.KindOf(b.Err) {
			entry.Status = StatusKindMismatched
		}
		entry.WithinTolerance = entry.Status == StatusBothUndefined
		return entry
	case !a.Defined():
		entry.Status = StatusAUndefined
		return entry
	case !b.Defined():
		entry.Status = StatusBUndefined
		return entry
	}

	entry.AbsError, entry.RelError = Deviation(a.Value, b.Value)
	entry.WithinTolerance = entry.RelError <= tolerance
	entry.Status = StatusOK
	if !entry.WithinTolerance {
		entry.Status = StatusMismatch
	}
	return entry
}

// Deviation returns |a - b| and |a - b| / max(|a|, |b|). The relative error
// of two zeros is 0.
func Deviation(a, b float64) (abs, rel float64) {
	if a == b {
		return 0, 0
	}

	abs = math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if math.IsNaN(abs) || math.IsInf(scale, 0) {
		return math.Inf(1), math.Inf(1)
	}
	return abs, abs / scale
}

// Names returns the compared metric names in reporting order
func (r *Report) Names() []string {
	if r.names == nil {
		placeholder := make(score.Metrics, len(r.Entries))
		for name := range r.Entries {
			placeholder[name] = score.Value{}
		}
		r.names = placeholder.Names()
	}
	return r.names
}

// Passed reports whether every metric is within tolerance
func (r *Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the names of the metrics outside tolerance
func (r *Report) Failures() []string {
	failed := []string{}
	for _, name := range r.Names() {
		if !r.Entries[name].WithinTolerance {
			failed = append(failed, name)
		}
	}
	return failed
}

type entryJSON struct {
	A               *float64 `json:"value_a"`
	B               *float64 `json:"value_b"`
	AbsError        *float64 `json:"absolute_error"`
	RelError        *float64 `json:"relative_error"`
	WithinTolerance bool     `json:"within_tolerance"`
	Status          Status   `json:"status"`
	ErrA            string   `json:"error_a,omitempty"`
	ErrB            string   `json:"error_b,omitempty"`
}

type reportJSON struct {
	RunID       string               `json:"run_id"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	StrategyA   string               `json:"strategy_a"`
	StrategyB   string               `json:"strategy_b"`
	Tolerance   float64              `json:"tolerance"`
	Passed      bool                 `json:"passed"`
	Metrics     map[string]entryJSON `json:"metrics"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:       r.RunID.String(),
		Fingerprint: r.Fingerprint,
		StrategyA:   r.StrategyA,
		StrategyB:   r.StrategyB,
		Tolerance:   r.Tolerance,
		Passed:      r.Passed(),
		Metrics:     make(map[string]entryJSON, len(r.Entries)),
	}

	for name, entry := range r.Entries {
		e := entryJSON{
			A:               finite(entry.A),
			B:               finite(entry.B),
			AbsError:        finite(entry.AbsError),
			RelError:        finite(entry.RelError),
			WithinTolerance: entry.WithinTolerance,
			Status:          entry.Status,
		}
		if entry.ErrA != nil {
			e.ErrA = entry.ErrA.Error()
		}
		if entry.ErrB != nil {
			e.ErrB = entry.ErrB.Error()
		}
		out.Metrics[name] = e
	}

	return json.Marshal(out)
}

// finiteOrUndefined treats a NaN or infinite value reported without an error
// as an undefined metric
func finiteOrUndefined(name string, v score.Value) score.Value {
	if v.Defined() && (math.IsNaN(v.Value) || math.IsInf(v.Value, 0)) {
		return score.Value{Value: math.NaN(), Err: stats.Degenerate(name, fmt.Sprintf("reported %v without an error", v.Value))}
	}
	return v
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func (e *Entry) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("Metric", e.Name).
		Float64("A", e.A).
		Float64("B", e.B).
		Float64("AbsError", e.AbsError).
		Float64("RelError", e.RelError).
		Bool("WithinTolerance", e.WithinTolerance).
		Str("Status", string(e.Status))
	if e.ErrA != nil {
		ev.AnErr("ErrA", e.ErrA)
	}
	if e.ErrB != nil {
		ev.AnErr("ErrB", e.ErrB)
	}
}

func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", r.RunID.String()).
		Str("Fingerprint", r.Fingerprint).
		Str("StrategyA", r.StrategyA).
		Str("StrategyB", r.StrategyB).
		Float64("Tolerance", r.Tolerance).
		Bool("Passed", r.Passed()).
		Strs("Failures", r.Failures())
}

func lookup(m score.Metrics, name string) score.Value {
	if v, ok := m[name]; ok {
		return v
	}
	return score.Value{Value: math.NaN(), Err: ErrMissingMetric}
}

func unionNames(a, b score.Metrics) []string {
	union := make(score.Metrics, len(a))
	for name, v := range a {
		union[name] = v
	}
	for name, v := range b {
		union[name] = v
	}
	return union.Names()
}
