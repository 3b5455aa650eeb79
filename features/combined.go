// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package features

import (
	"github.com/ccnlab/multiobs/obs"
)

// Combined encodes every key of a structured observation with its resolved
// extractor and concatenates the embeddings in the observation space's
// canonical key order, yielding one flat vector of fixed width.  The width
// and per-key offsets are computed once at construction and never change:
// training code allocates fixed-size network inputs from them.
type Combined struct {
	Sp   *obs.Dict            `desc:"the observation space encoded, canonical order included"`
	Exts map[string]Extractor `desc:"resolved extractor per key"`

	offs  map[string]int
	width int
}

// New resolves one extractor per key of the space from the configuration
// and returns the Combined extractor.  Any unresolvable or contradictory
// mapping is a ConfigurationError here, never at encode time.
func New(sp *obs.Dict, cfg *Config) (*Combined, error) {
	if sp == nil || len(sp.Keys) == 0 {
		return nil, obs.ConfigErrorf("", "nil or empty observation space")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	for k := range cfg.Widths {
		if sp.Space(k) == nil {
			return nil, obs.ConfigErrorf(k, "width override for key not in observation space")
		}
	}
	for k := range cfg.Extractors {
		if sp.Space(k) == nil {
			return nil, obs.ConfigErrorf(k, "extractor override for key not in observation space")
		}
	}
	cb := &Combined{Sp: sp, Exts: make(map[string]Extractor, len(sp.Keys)),
		offs: make(map[string]int, len(sp.Keys))}
	for _, k := range sp.Keys {
		ext, err := resolve(k, sp.Spaces[k], cfg)
		if err != nil {
			return nil, err
		}
		cb.Exts[k] = ext
		cb.offs[k] = cb.width
		cb.width += ext.Width()
	}
	return cb, nil
}

// resolve picks the extractor for one key: an explicit implementation
// override wins, else the default variant for the key's kind at the
// configured width.
func resolve(key string, sp *obs.Space, cfg *Config) (Extractor, error) {
	if ext, ok := cfg.Extractors[key]; ok {
		if ext == nil {
			return nil, obs.ConfigErrorf(key, "nil extractor override")
		}
		if w, ok := cfg.Widths[key]; ok && w != ext.Width() {
			return nil, obs.ConfigErrorf(key, "width override %d contradicts extractor width %d", w, ext.Width())
		}
		return ext, nil
	}
	w, hasW := cfg.Widths[key]
	if hasW && w < 1 {
		return nil, obs.ConfigErrorf(key, "embedding width must be positive, got %d", w)
	}
	switch sp.Knd {
	case obs.Image:
		if !hasW {
			w = cfg.ImageWidth
			if w == 0 {
				w = DefImageWidth
			}
		}
		return NewImageEncoder(key, sp, w, keySeed(cfg.Seed, key))
	case obs.Vector:
		if !hasW || w == sp.FlatLen() {
			return &Ident{Key: key, Sp: sp}, nil
		}
		return NewVectorProj(key, sp, w, keySeed(cfg.Seed, key))
	case obs.Discrete:
		if !hasW || w == sp.N {
			return &OneHot{Key: key, Sp: sp}, nil
		}
		return NewEmbed(key, sp, w, keySeed(cfg.Seed, key))
	}
	return nil, obs.ConfigErrorf(key, "no extractor variant for kind %v", sp.Knd)
}

// OutWidth returns the flat embedding width: the sum of per-key widths.
func (cb *Combined) OutWidth() int { return cb.width }

// Offset returns the slice offset of given key's embedding within the flat
// output, and whether the key exists.
func (cb *Combined) Offset(key string) (int, bool) {
	off, ok := cb.offs[key]
	return off, ok
}

// Extractor returns the resolved extractor for given key, nil if absent.
func (cb *Combined) Extractor(key string) Extractor { return cb.Exts[key] }

// Forward encodes a structured observation into one flat embedding of
// length OutWidth.  The input state is not mutated.
func (cb *Combined) Forward(st obs.State) ([]float32, error) {
	out := make([]float32, cb.width)
	for _, k := range cb.Sp.Keys {
		t, ok := st[k]
		if !ok {
			return nil, obs.ValidationErrorf(k, "missing from state")
		}
		emb, err := cb.Exts[k].Encode(t)
		if err != nil {
			return nil, err
		}
		if len(emb) != cb.Exts[k].Width() {
			return nil, obs.ValidationErrorf(k, "extractor produced %d values, declared width %d", len(emb), cb.Exts[k].Width())
		}
		copy(out[cb.offs[k]:], emb)
	}
	return out, nil
}
