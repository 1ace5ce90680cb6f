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
	"strings"

	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const parityBPrefix = "parity.b."

// presetConfig returns the named starting conventions
func presetConfig(name string) (stats.Config, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return stats.DefaultConfig(), nil
	case "reference":
		return stats.ReferenceConfig(), nil
	default:
		return stats.Config{}, fmt.Errorf("unknown preset %q: %w", name, stats.ErrConfiguration)
	}
}

// overlayConfig copies every config key explicitly set under prefix onto cfg.
// Keys that were never set keep the value they have in cfg.
func overlayConfig(cfg stats.Config, prefix string) (stats.Config, error) {
	overrides := viper.New()
	count := 0
	for _, k := range configKeys {
		if viper.IsSet(prefix + k.key) {
			overrides.Set(k.key, viper.Get(prefix+k.key))
			count++
		}
	}

	if count == 0 {
		return cfg, nil
	}

	if err := overrides.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %sconfig: %s: %w", prefix, err.Error(), stats.ErrConfiguration)
	}

	log.Debug().Str("Prefix", prefix).Int("Overrides", count).Msg("applied config overrides")
	return cfg, nil
}

// loadConfig builds the base configuration from the preset and the top-level
// config keys
func loadConfig() (stats.Config, error) {
	cfg, err := presetConfig(viper.GetString("preset"))
	if err != nil {
		return cfg, err
	}

	cfg, err = overlayConfig(cfg, "")
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadParityConfig builds the configuration of parity side B: the base
// configuration, or the parity.b.preset when one is given, overlaid with the
// parity.b.* keys. Unless parity.b.moment_backend is set, side B accumulates
// moments with the backend side A does not use.
func loadParityConfig(base stats.Config) (stats.Config, error) {
	cfg := base
	if viper.IsSet(parityBPrefix + "preset") {
		var err error
		if cfg, err = presetConfig(viper.GetString(parityBPrefix + "preset")); err != nil {
			return cfg, err
		}
	}

	cfg, err := overlayConfig(cfg, parityBPrefix)
	if err != nil {
		return cfg, err
	}

	if !viper.IsSet(parityBPrefix + "moment_backend") {
		cfg.MomentBackend = otherBackend(base.MomentBackend)
	}
	return cfg, cfg.Validate()
}

func otherBackend(backend stats.MomentBackend) stats.MomentBackend {
	if backend == stats.BackendDirect {
		return stats.BackendGonum
	}
	return stats.BackendDirect
}
