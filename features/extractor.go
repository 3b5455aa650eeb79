// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package features turns structured observations into one fixed-size flat
// embedding: each key's raw sample is encoded independently by a per-kind
// extractor, and the per-key embeddings are concatenated in the observation
// space's canonical key order.  All dispatch is resolved once at
// construction; nothing in the hot path inspects types.
package features

import (
	"hash/fnv"

	"github.com/emer/etable/etensor"
)

// Extractor encodes one key's (possibly stacked) raw sample into a
// fixed-size embedding.  Implementations must not mutate the sample.
type Extractor interface {
	// Width returns the embedding width, fixed for the extractor's lifetime.
	Width() int

	// Encode returns the embedding for one sample.
	Encode(sample etensor.Tensor) ([]float32, error)
}

// DefImageWidth is the embedding width for image keys when neither a width
// override nor an implementation override is configured.
const DefImageWidth = 256

// Config is the explicit configuration object for a Combined extractor.
// Defaults live here, not in any process-wide registry, so extractor
// instances with different overrides coexist safely.
type Config struct {
	Widths     map[string]int       `desc:"per-key embedding width overrides"`
	Extractors map[string]Extractor `desc:"per-key extractor implementation overrides"`
	ImageWidth int                  `desc:"default width for image keys, DefImageWidth if 0"`
	Seed       int64                `desc:"base seed for deterministic encoder weights"`
}

// keySeed derives a per-key weight seed from the base seed, so that two
// Combined extractors built from the same Config agree exactly.
func keySeed(base int64, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return base ^ int64(h.Sum64())
}
