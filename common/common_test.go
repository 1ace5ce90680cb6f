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

package common_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/perfstats/common"
)

var _ = Describe("Common", func() {
	Context("with lz4 compression", func() {
		It("round trips a payload", func() {
			payload := bytes.Repeat([]byte(`{"returns":[0.01,-0.02]}`), 50)
			compressed, err := common.Compress(payload)
			Expect(err).To(BeNil())
			Expect(len(compressed)).To(BeNumerically("<", len(payload)))

			restored, err := common.Decompress(compressed)
			Expect(err).To(BeNil())
			Expect(restored).To(Equal(payload))
		})

		It("reads compressed files transparently", func() {
			dir, err := os.MkdirTemp("", "perfstats-common")
			Expect(err).To(BeNil())
			DeferCleanup(func() { os.RemoveAll(dir) })

			payload := []byte(`[0.01, 0.02]`)
			compressed, err := common.Compress(payload)
			Expect(err).To(BeNil())

			plainPath := filepath.Join(dir, "plain.json")
			lz4Path := filepath.Join(dir, "packed.json.lz4")
			Expect(os.WriteFile(plainPath, payload, 0600)).To(BeNil())
			Expect(os.WriteFile(lz4Path, compressed, 0600)).To(BeNil())

			Expect(common.IsCompressed(lz4Path)).To(BeTrue())
			Expect(common.IsCompressed(plainPath)).To(BeFalse())

			raw, err := common.ReadFile(plainPath)
			Expect(err).To(BeNil())
			Expect(raw).To(Equal(payload))

			raw, err = common.ReadFile(lz4Path)
			Expect(err).To(BeNil())
			Expect(raw).To(Equal(payload))
		})
	})

	Context("with the result cache", func() {
		var cache *common.ResultCache

		BeforeEach(func() {
			var err error
			cache, err = common.NewResultCache(2)
			Expect(err).To(BeNil())
		})

		It("returns what was stored", func() {
			Expect(cache.Set("a", []byte("alpha"))).To(BeNil())

			payload, ok, err := cache.Get("a")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			Expect(payload).To(Equal([]byte("alpha")))
		})

		It("reports a miss", func() {
			payload, ok, err := cache.Get("missing")
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
			Expect(payload).To(BeNil())
		})

		It("evicts the least recently used entry", func() {
			Expect(cache.Set("a", []byte("alpha"))).To(BeNil())
			Expect(cache.Set("b", []byte("beta"))).To(BeNil())
			_, _, _ = cache.Get("a")
			Expect(cache.Set("c", []byte("gamma"))).To(BeNil())

			Expect(cache.Len()).To(Equal(2))
			_, ok, _ := cache.Get("b")
			Expect(ok).To(BeFalse())
			_, ok, _ = cache.Get("a")
			Expect(ok).To(BeTrue())
		})

		It("falls back to the default size", func() {
			c, err := common.NewResultCache(0)
			Expect(err).To(BeNil())
			Expect(c.Len()).To(Equal(0))
		})
	})

	Context("with version information", func() {
		It("names the program", func() {
			s := common.BuildVersionString(false)
			Expect(strings.HasPrefix(s, "perfstats v"+common.CurrentVersion.String())).To(BeTrue())
			Expect(s).ToNot(ContainSubstring("Dependencies:"))
		})

		It("formats pre-release versions", func() {
			v := common.Version{Major: 1, Minor: 2, Patch: 3, Suffix: "rc1"}
			Expect(v.String()).To(HavePrefix("1.2.3-rc1"))

			v.Suffix = ""
			Expect(v.String()).To(Equal("1.2.3"))
		})

		It("collects build details", func() {
			info := common.ReadBuildInfo(false)
			Expect(info.Program).To(Equal("perfstats"))
			Expect(info.Version).To(Equal("v" + common.CurrentVersion.String()))
			Expect(info.Platform).To(ContainSubstring("/"))
			Expect(info.Date).ToNot(BeEmpty())
			Expect(info.Dependencies).To(BeNil())
			Expect(info.String()).To(ContainSubstring("Built with: " + info.GoVersion))
		})

		It("appends the dependency list when present", func() {
			info := common.BuildInfo{Program: "perfstats", Version: "v1.0.0", Dependencies: []string{`a="v1"`, `b="v2"`}}
			Expect(info.String()).To(HaveSuffix("Dependencies:\n\na=\"v1\"\nb=\"v2\""))
		})
	})
})
