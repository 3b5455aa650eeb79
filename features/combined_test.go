// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package features

import (
	"math/rand"
	"testing"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDict(t *testing.T) *obs.Dict {
	sp, err := obs.NewDict(map[string]*obs.Space{
		"img":      obs.NewImage([]int{1, 16, 16}),
		"vec":      obs.NewVector(2, -1, 1),
		"discrete": obs.NewDiscrete(4),
	})
	require.NoError(t, err)
	return sp
}

func testCfg() *Config {
	return &Config{Widths: map[string]int{"img": 32}, Seed: 1}
}

func TestWidthAdditivity(t *testing.T) {
	sp := testDict(t)
	cb, err := New(sp, testCfg())
	require.NoError(t, err)
	// img 32 + vec 2 (identity) + discrete 4 (one-hot) = 38
	assert.Equal(t, 38, cb.OutWidth())

	wi := cb.Extractor("img").Width()
	wv := cb.Extractor("vec").Width()
	wd := cb.Extractor("discrete").Width()
	assert.Equal(t, wi+wv+wd, cb.OutWidth())
}

func TestCanonicalOffsets(t *testing.T) {
	sp := testDict(t)
	a, err := New(sp, testCfg())
	require.NoError(t, err)

	// same mapping declared in a different order: identical widths and offsets
	rev := map[string]*obs.Space{}
	rev["discrete"] = obs.NewDiscrete(4)
	rev["img"] = obs.NewImage([]int{1, 16, 16})
	rev["vec"] = obs.NewVector(2, -1, 1)
	sp2, err := obs.NewDict(rev)
	require.NoError(t, err)
	b, err := New(sp2, testCfg())
	require.NoError(t, err)

	assert.Equal(t, a.OutWidth(), b.OutWidth())
	for _, k := range sp.Keys {
		oa, ok := a.Offset(k)
		require.True(t, ok)
		ob, ok := b.Offset(k)
		require.True(t, ok)
		assert.Equal(t, oa, ob, "offset for %s", k)
	}
	// canonical order: discrete, img, vec
	od, _ := a.Offset("discrete")
	oi, _ := a.Offset("img")
	ov, _ := a.Offset("vec")
	assert.Equal(t, 0, od)
	assert.Equal(t, 4, oi)
	assert.Equal(t, 36, ov)
}

func TestForward(t *testing.T) {
	sp := testDict(t)
	cb, err := New(sp, testCfg())
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(2))
	st := sp.Sample(rnd)
	emb, err := cb.Forward(st)
	require.NoError(t, err)
	require.Len(t, emb, 38)

	// vec passes through identically at its offset
	ov, _ := cb.Offset("vec")
	vec := st["vec"].(*etensor.Float32)
	assert.Equal(t, vec.Values[0], emb[ov])
	assert.Equal(t, vec.Values[1], emb[ov+1])

	// discrete is one-hot at its offset
	od, _ := cb.Offset("discrete")
	v := int(st["discrete"].FloatVal1D(0))
	for i := 0; i < 4; i++ {
		want := float32(0)
		if i == v {
			want = 1
		}
		assert.Equal(t, want, emb[od+i])
	}
}

func TestForwardDeterministic(t *testing.T) {
	sp := testDict(t)
	a, err := New(sp, testCfg())
	require.NoError(t, err)
	b, err := New(sp, testCfg())
	require.NoError(t, err)

	st := sp.Sample(rand.New(rand.NewSource(3)))
	ea, err := a.Forward(st)
	require.NoError(t, err)
	eb, err := b.Forward(st)
	require.NoError(t, err)
	assert.Equal(t, ea, eb) // same config, same weights, same embedding
}

func TestForwardNoMutate(t *testing.T) {
	sp := testDict(t)
	cb, err := New(sp, testCfg())
	require.NoError(t, err)
	st := sp.Sample(rand.New(rand.NewSource(4)))
	before := st.Clone()
	_, err = cb.Forward(st)
	require.NoError(t, err)
	for _, k := range sp.Keys {
		for i := 0; i < st[k].Len(); i++ {
			assert.Equal(t, before[k].FloatVal1D(i), st[k].FloatVal1D(i))
		}
	}
}

func TestEmbedStableWidth(t *testing.T) {
	sp, err := obs.NewDict(map[string]*obs.Space{"discrete": obs.NewDiscrete(7)})
	require.NoError(t, err)
	cb, err := New(sp, &Config{Widths: map[string]int{"discrete": 3}, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, cb.OutWidth())

	// every category embeds to the same width
	for v := 0; v < 7; v++ {
		d := etensor.NewInt64([]int{1}, nil, nil)
		d.Values[0] = int64(v)
		emb, err := cb.Forward(obs.State{"discrete": d})
		require.NoError(t, err)
		assert.Len(t, emb, 3)
	}
}

func TestVectorProjection(t *testing.T) {
	sp, err := obs.NewDict(map[string]*obs.Space{"vec": obs.NewVector(5, -1, 1)})
	require.NoError(t, err)
	cb, err := New(sp, &Config{Widths: map[string]int{"vec": 8}, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 8, cb.OutWidth())

	st := sp.Sample(rand.New(rand.NewSource(5)))
	emb, err := cb.Forward(st)
	require.NoError(t, err)
	assert.Len(t, emb, 8)
	for _, v := range emb {
		assert.LessOrEqual(t, v, float32(1))
		assert.GreaterOrEqual(t, v, float32(-1))
	}
}

func TestShapeMismatch(t *testing.T) {
	// extractor built for a stacked space rejects unstacked samples
	sp, err := obs.NewDict(map[string]*obs.Space{"img": obs.NewImage([]int{3, 16, 16})})
	require.NoError(t, err)
	cb, err := New(sp, &Config{Widths: map[string]int{"img": 16}, Seed: 1})
	require.NoError(t, err)

	raw := etensor.NewUint8([]int{1, 16, 16}, nil, nil)
	_, err = cb.Forward(obs.State{"img": raw})
	require.Error(t, err)
	var se *obs.ShapeMismatchError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, []int{3, 16, 16}, se.Want)
}

func TestConfigErrors(t *testing.T) {
	sp := testDict(t)

	// override for a key not in the space
	_, err := New(sp, &Config{Widths: map[string]int{"bogus": 8}})
	assert.Error(t, err)
	_, err = New(sp, &Config{Extractors: map[string]Extractor{"bogus": &Ident{}}})
	assert.Error(t, err)

	// nil implementation override
	_, err = New(sp, &Config{Extractors: map[string]Extractor{"vec": nil}})
	assert.Error(t, err)

	// width contradicting the override implementation
	id := &Ident{Key: "vec", Sp: sp.Space("vec")}
	_, err = New(sp, &Config{
		Extractors: map[string]Extractor{"vec": id},
		Widths:     map[string]int{"vec": 9},
	})
	assert.Error(t, err)

	// bad width
	_, err = New(sp, &Config{Widths: map[string]int{"vec": -1}})
	assert.Error(t, err)

	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestExtractorOverride(t *testing.T) {
	sp := testDict(t)
	id := &Ident{Key: "img", Sp: sp.Space("img")}
	cb, err := New(sp, &Config{Extractors: map[string]Extractor{"img": id}})
	require.NoError(t, err)
	// img flattens to its raw 256 pixels, vec identity 2, discrete one-hot 4
	assert.Equal(t, 256+2+4, cb.OutWidth())
	assert.Same(t, Extractor(id), cb.Extractor("img"))
}
