// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package features

import (
	"math"
	"math/rand"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
	"gonum.org/v1/gonum/mat"
)

// checkSample verifies a sample's layout against the space the extractor
// was constructed for.
func checkSample(key string, sp *obs.Space, t etensor.Tensor) error {
	if t == nil {
		return obs.ValidationErrorf(key, "nil sample")
	}
	if t.NumDims() != len(sp.Shp) {
		return &obs.ShapeMismatchError{Key: key, Want: sp.Shp, Got: sampleShape(t)}
	}
	for i, d := range sp.Shp {
		if t.Dim(i) != d {
			return &obs.ShapeMismatchError{Key: key, Want: sp.Shp, Got: sampleShape(t)}
		}
	}
	return nil
}

func sampleShape(t etensor.Tensor) []int {
	shp := make([]int, t.NumDims())
	for i := range shp {
		shp[i] = t.Dim(i)
	}
	return shp
}

// randWeights returns a width x in matrix of seeded uniform weights scaled
// by 1/sqrt(in), the usual dense init.
func randWeights(width, in int, seed int64) *mat.Dense {
	rnd := rand.New(rand.NewSource(seed))
	sc := 1 / math.Sqrt(float64(in))
	vals := make([]float64, width*in)
	for i := range vals {
		vals[i] = (2*rnd.Float64() - 1) * sc
	}
	return mat.NewDense(width, in, vals)
}

// project computes tanh(W x) as a float32 embedding.
func project(w *mat.Dense, x *mat.VecDense) []float32 {
	width, _ := w.Dims()
	var y mat.VecDense
	y.MulVec(w, x)
	out := make([]float32, width)
	for i := range out {
		out[i] = float32(math.Tanh(y.AtVec(i)))
	}
	return out
}

// ImageEncoder encodes an image sample as a fixed-width embedding: pixels
// are normalized to [0, 1] by the descriptor bounds, then passed through a
// seeded dense projection with tanh.  A stand-in for a trained vision
// encoder, with the same boundary: fixed output width, no mutation.
type ImageEncoder struct {
	Key string     `desc:"observation key this encoder serves"`
	Sp  *obs.Space `desc:"the (stacked) image space encoded"`
	Wd  int        `desc:"embedding width"`

	wts *mat.Dense
}

// NewImageEncoder returns an encoder for given image space.
func NewImageEncoder(key string, sp *obs.Space, width int, seed int64) (*ImageEncoder, error) {
	if sp.Knd != obs.Image {
		return nil, obs.ConfigErrorf(key, "ImageEncoder needs an Image space, got %v", sp.Knd)
	}
	if width < 1 {
		return nil, obs.ConfigErrorf(key, "embedding width must be positive, got %d", width)
	}
	return &ImageEncoder{Key: key, Sp: sp, Wd: width,
		wts: randWeights(width, sp.FlatLen(), seed)}, nil
}

func (ie *ImageEncoder) Width() int { return ie.Wd }

func (ie *ImageEncoder) Encode(t etensor.Tensor) ([]float32, error) {
	if err := checkSample(ie.Key, ie.Sp, t); err != nil {
		return nil, err
	}
	rng := ie.Sp.High - ie.Sp.Low
	x := mat.NewVecDense(t.Len(), nil)
	for i := 0; i < t.Len(); i++ {
		x.SetVec(i, (t.FloatVal1D(i)-ie.Sp.Low)/rng)
	}
	return project(ie.wts, x), nil
}

// Ident passes a vector sample through unchanged: the identity extractor
// used for vector keys at their native width.
type Ident struct {
	Key string
	Sp  *obs.Space
}

func (id *Ident) Width() int { return id.Sp.FlatLen() }

func (id *Ident) Encode(t etensor.Tensor) ([]float32, error) {
	if err := checkSample(id.Key, id.Sp, t); err != nil {
		return nil, err
	}
	out := make([]float32, t.Len())
	for i := range out {
		out[i] = float32(t.FloatVal1D(i))
	}
	return out, nil
}

// VectorProj projects a vector sample to a different width through a seeded
// dense layer with tanh.
type VectorProj struct {
	Key string
	Sp  *obs.Space
	Wd  int

	wts *mat.Dense
}

// NewVectorProj returns a dense projection for given vector space.
func NewVectorProj(key string, sp *obs.Space, width int, seed int64) (*VectorProj, error) {
	if sp.Knd != obs.Vector {
		return nil, obs.ConfigErrorf(key, "VectorProj needs a Vector space, got %v", sp.Knd)
	}
	if width < 1 {
		return nil, obs.ConfigErrorf(key, "embedding width must be positive, got %d", width)
	}
	return &VectorProj{Key: key, Sp: sp, Wd: width,
		wts: randWeights(width, sp.FlatLen(), seed)}, nil
}

func (vp *VectorProj) Width() int { return vp.Wd }

func (vp *VectorProj) Encode(t etensor.Tensor) ([]float32, error) {
	if err := checkSample(vp.Key, vp.Sp, t); err != nil {
		return nil, err
	}
	x := mat.NewVecDense(t.Len(), nil)
	for i := 0; i < t.Len(); i++ {
		x.SetVec(i, t.FloatVal1D(i))
	}
	return project(vp.wts, x), nil
}

// OneHot encodes a discrete sample as a localist 1-hot embedding of width
// equal to the category count.
type OneHot struct {
	Key string
	Sp  *obs.Space
}

func (oh *OneHot) Width() int { return oh.Sp.N }

func (oh *OneHot) Encode(t etensor.Tensor) ([]float32, error) {
	if err := checkSample(oh.Key, oh.Sp, t); err != nil {
		return nil, err
	}
	v := int(t.FloatVal1D(0))
	if v < 0 || v >= oh.Sp.N {
		return nil, obs.ValidationErrorf(oh.Key, "category %d outside [0, %d)", v, oh.Sp.N)
	}
	out := make([]float32, oh.Sp.N)
	out[v] = 1
	return out, nil
}

// Embed encodes a discrete sample by looking up a row of a seeded embedding
// table, giving downstream heads a stable input width independent of the
// category count.
type Embed struct {
	Key string
	Sp  *obs.Space
	Wd  int

	table *mat.Dense // N x Wd
}

// NewEmbed returns an embedding-table extractor for given discrete space.
func NewEmbed(key string, sp *obs.Space, width int, seed int64) (*Embed, error) {
	if sp.Knd != obs.Discrete {
		return nil, obs.ConfigErrorf(key, "Embed needs a Discrete space, got %v", sp.Knd)
	}
	if width < 1 {
		return nil, obs.ConfigErrorf(key, "embedding width must be positive, got %d", width)
	}
	return &Embed{Key: key, Sp: sp, Wd: width,
		table: randWeights(sp.N, width, seed)}, nil
}

func (em *Embed) Width() int { return em.Wd }

func (em *Embed) Encode(t etensor.Tensor) ([]float32, error) {
	if err := checkSample(em.Key, em.Sp, t); err != nil {
		return nil, err
	}
	v := int(t.FloatVal1D(0))
	if v < 0 || v >= em.Sp.N {
		return nil, obs.ValidationErrorf(em.Key, "category %d outside [0, %d)", v, em.Sp.N)
	}
	out := make([]float32, em.Wd)
	for i := range out {
		out[i] = float32(em.table.At(v, i))
	}
	return out, nil
}
