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

	"github.com/goccy/go-json"
	"github.com/penny-vault/perfstats/common"
	"github.com/penny-vault/perfstats/data"
	"github.com/penny-vault/perfstats/score"
	"github.com/rs/zerolog/log"
)

// cachedPipeline serves repeated computations of the same series under the
// same configuration from the result cache
type cachedPipeline struct {
	pipeline *score.Pipeline
	cache    *common.ResultCache
}

func newCachedPipeline(pipeline *score.Pipeline, cache *common.ResultCache) *cachedPipeline {
	return &cachedPipeline{
		pipeline: pipeline,
		cache:    cache,
	}
}

func (c *cachedPipeline) Name() string {
	return c.pipeline.Name()
}

func (c *cachedPipeline) Compute(ctx context.Context, returns []float64) (score.Metrics, error) {
	if c.cache == nil {
		return c.pipeline.Compute(ctx, returns)
	}

	key, err := data.Fingerprint(returns, c.pipeline.Config)
	if err != nil {
		log.Warn().Err(err).Str("Strategy", c.Name()).Msg("could not fingerprint input; skipping cache")
		return c.pipeline.Compute(ctx, returns)
	}

	subLog := log.With().Str("Strategy", c.Name()).Str("Fingerprint", key).Logger()

	payload, ok, err := c.cache.Get(key)
	if err != nil {
		subLog.Warn().Err(err).Msg("could not read cached result")
	}
	if ok {
		var m score.Metrics
		decodeErr := json.Unmarshal(payload, &m)
		if decodeErr == nil {
			subLog.Debug().Msg("using cached result")
			return m, nil
		}
		subLog.Warn().Err(decodeErr).Msg("could not decode cached result")
	}

	m, err := c.pipeline.Compute(ctx, returns)
	if err != nil {
		return nil, err
	}

	payload, err = json.Marshal(m)
	if err != nil {
		subLog.Warn().Err(err).Msg("could not encode result for the cache")
		return m, nil
	}

	if err := c.cache.Set(key, payload); err != nil {
		subLog.Warn().Err(err).Msg("could not cache result")
	}
	return m, nil
}
