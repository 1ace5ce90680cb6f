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
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/goccy/go-json"
	"github.com/penny-vault/perfstats/stats"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// Fingerprint calculates a 16-byte blake3 hash of the returns and the
// configuration they are evaluated under. Equal fingerprints mean equal
// inputs bit for bit.
func Fingerprint(returns []float64, cfg stats.Config) (string, error) {
	h := blake3.New()

	buf := make([]byte, 8)
	for _, r := range returns {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(r))
		if _, err := h.Write(buf); err != nil {
			log.Error().Stack().Err(err).Msg("could not write return to blake3 hasher")
			return "", err
		}
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if _, err := h.Write(cfgJSON); err != nil {
		log.Error().Stack().Err(err).Msg("could not write config to blake3 hasher")
		return "", err
	}

	digest := h.Digest()
	sum := make([]byte, 16)
	n, err := digest.Read(sum)
	if err != nil {
		return "", err
	}
	if n != 16 {
		return "", ErrGenerateHash
	}

	return hex.EncodeToString(sum), nil
}
