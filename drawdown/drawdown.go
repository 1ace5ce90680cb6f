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

package drawdown

import (
	"fmt"
	"sort"

	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Episode is a contiguous period in which the price index is below its
// previous peak. Indices refer to positions in the return series.
type Episode struct {
	// Begin is the index of the peak the decline started from, or -1 when
	// the series opens below the seed peak
	Begin int `json:"begin"`
	// Trough is the index of the deepest point of the episode
	Trough int `json:"trough"`
	// Recovery is the first index at which a new peak is reached, or -1 if
	// the series ends underwater
	Recovery int `json:"recovery"`
	// Loss is the drawdown at the trough, always < 0
	Loss float64 `json:"loss"`
}

// PriceIndex returns the cumulative product of (1 + r), i.e. the value of a
// unit investment after each period
func PriceIndex(returns []float64) []float64 {
	growth := make([]float64, len(returns))
	copy(growth, returns)
	floats.AddConst(1, growth)
	return floats.CumProd(make([]float64, len(growth)), growth)
}

// RunningMax returns the peak of the price index up to and including each
// index. With PeakUnit the peak starts at 1.0 (the value before the first
// period); with PeakFirstPrice it starts at the first price.
func RunningMax(prices []float64, seed stats.PeakSeed) []float64 {
	peaks := make([]float64, len(prices))
	if len(prices) == 0 {
		return peaks
	}

	peak := prices[0]
	if seed == stats.PeakUnit && peak < 1 {
		peak = 1
	}

	for ii, price := range prices {
		if price > peak {
			peak = price
		}
		peaks[ii] = peak
	}
	return peaks
}

// Series converts returns into a drawdown series: price / running max - 1.
// The computation is a single left-to-right pass; every value is <= 0. A
// return of -100% or worse leaves no positive price to measure a drawdown
// against and fails with ErrDegenerateInput.
func Series(returns []float64, seed stats.PeakSeed) ([]float64, error) {
	if len(returns) == 0 {
		return nil, stats.InsufficientData("drawdown", 1, 0)
	}

	for ii, r := range returns {
		if r <= -1 {
			return nil, stats.Degenerate("drawdown", fmt.Sprintf("return %v at index %d wipes out the price index", r, ii))
		}
	}

	prices := PriceIndex(returns)
	peaks := RunningMax(prices, seed)

	dd := make([]float64, len(prices))
	for ii := range prices {
		dd[ii] = prices[ii]/peaks[ii] - 1
	}
	return dd, nil
}

// Episodes splits a drawdown series into its individual draw downs, in order
// of occurrence
func Episodes(dd []float64) []*Episode {
	all := []*Episode{}

	var episode *Episode
	for ii, v := range dd {
		if v < 0 {
			if episode == nil {
				episode = &Episode{
					Begin:    ii - 1,
					Trough:   ii,
					Recovery: -1,
					Loss:     v,
				}
			}

			if v < episode.Loss {
				episode.Trough = ii
				episode.Loss = v
			}
		} else if episode != nil {
			episode.Recovery = ii
			all = append(all, episode)
			episode = nil
		}
	}

	if episode != nil {
		all = append(all, episode)
	}

	return all
}

// Top returns the n deepest draw downs, deepest first
func Top(dd []float64, n int) []*Episode {
	all := Episodes(dd)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Loss < all[j].Loss
	})

	if n < len(all) {
		return all[:n]
	}
	return all
}

// Max returns the deepest draw down or nil if the series never declined
func Max(dd []float64) *Episode {
	top := Top(dd, 1)
	if len(top) == 0 {
		return nil
	}
	return top[0]
}

func (e *Episode) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("Begin", e.Begin).Int("Trough", e.Trough).Int("Recovery", e.Recovery).Float64("LossPercent", e.Loss)
}
