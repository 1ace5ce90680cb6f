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

package common

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const DefaultCacheSize = 128

var ErrCacheEntryType = errors.New("cache entry has unexpected type")

// ResultCache holds lz4 compressed payloads keyed by input fingerprint
type ResultCache struct {
	cache *lru.Cache
}

// NewResultCache creates a cache that keeps at most size entries
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New(size)
	if err != nil {
		log.Error().Err(err).Int("Size", size).Msg("could not create LRU cache")
		return nil, err
	}

	return &ResultCache{cache: cache}, nil
}

// SetupCache creates a cache sized by cache.local_size
func SetupCache() (*ResultCache, error) {
	return NewResultCache(viper.GetInt("cache.local_size"))
}

// Set stores payload under key
func (c *ResultCache) Set(key string, payload []byte) error {
	compressed, err := Compress(payload)
	if err != nil {
		return err
	}

	c.cache.Add(key, compressed)
	log.Trace().Str("Key", key).Int("Size", len(payload)).Int("CompressedSize", len(compressed)).Msg("cached result")
	return nil
}

// Get returns the payload stored under key. ok is false on a miss.
func (c *ResultCache) Get(key string) (payload []byte, ok bool, err error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}

	compressed, isBytes := v.([]byte)
	if !isBytes {
		c.cache.Remove(key)
		return nil, false, ErrCacheEntryType
	}

	payload, err = Decompress(compressed)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Len returns the number of cached entries
func (c *ResultCache) Len() int {
	return c.cache.Len()
}
