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

package data

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/penny-vault/perfstats/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ReturnSeries is an ordered series of periodic returns expressed as
// fractions (0.01 == 1%)
type ReturnSeries struct {
	Name    string    `json:"name"`
	Returns []float64 `json:"returns"`
}

// LoadReturns reads a return series from path. Files ending in .lz4 are
// decompressed first. The file holds either a bare JSON array of returns or
// an object with a "returns" array and an optional "name".
func LoadReturns(path string) (*ReturnSeries, error) {
	raw, err := common.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("Path", path).Bool("Compressed", common.IsCompressed(path)).Msg("could not read return series")
		return nil, err
	}

	series, err := ParseReturns(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if series.Name == "" {
		base := filepath.Base(path)
		base = strings.TrimSuffix(base, ".lz4")
		series.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	log.Debug().Object("Series", series).Str("Path", path).Msg("loaded return series")
	return series, nil
}

// ParseReturns decodes a return series from JSON
func ParseReturns(raw []byte) (*ReturnSeries, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrInvalidFormat
	}

	series := &ReturnSeries{}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &series.Returns); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err.Error())
		}
	case '{':
		if err := json.Unmarshal(trimmed, series); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err.Error())
		}
	default:
		return nil, ErrInvalidFormat
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

// Validate checks that the series is non-empty, every return is finite and
// no return loses the whole investment
func (series *ReturnSeries) Validate() error {
	if len(series.Returns) == 0 {
		return ErrNoReturns
	}

	for idx, r := range series.Returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: index %d", ErrNonFiniteReturn, idx)
		}
		if r <= -1 {
			return fmt.Errorf("%w: %v at index %d", ErrTotalLoss, r, idx)
		}
	}
	return nil
}

// Values returns a copy of the returns so callers cannot alter the series
func (series *ReturnSeries) Values() []float64 {
	vals := make([]float64, len(series.Returns))
	copy(vals, series.Returns)
	return vals
}

// Save writes the series as JSON to path, lz4 compressed if the path ends in
// .lz4
func (series *ReturnSeries) Save(path string) error {
	raw, err := json.Marshal(series)
	if err != nil {
		return err
	}

	if common.IsCompressed(path) {
		if raw, err = common.Compress(raw); err != nil {
			return err
		}
	}

	return os.WriteFile(path, raw, 0600)
}

func (series *ReturnSeries) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Name", series.Name).Int("Observations", len(series.Returns))
}
