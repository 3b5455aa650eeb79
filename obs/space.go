// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obs defines structured observations: named mappings of
// independently-shaped sub-observations (an image, a low-dimensional vector,
// a discrete category), the space descriptors that constrain them, and the
// validation applied at the environment boundary.
package obs

import (
	"math/rand"

	"github.com/emer/etable/etensor"
	"github.com/goki/ki/kit"
)

// Kind is the semantic kind of one observation or action channel.
// The kind fully determines which stacking policy and which feature
// extractor variant applies to a key.
type Kind int

var KiT_Kind = kit.Enums.AddEnum(KindN, false, nil)

const (
	// Image is a 3D tensor of pixels, channel-first or channel-last.
	Image Kind = iota

	// Vector is a 1D continuous vector with uniform bounds.
	Vector

	// Discrete is a single categorical value in [0, N).
	Discrete

	KindN
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "Image"
	case Vector:
		return "Vector"
	case Discrete:
		return "Discrete"
	}
	return "KindN"
}

// Space describes the shape, dtype, bounds and semantic kind of one
// observation or action channel.  It is pure data: no behavior beyond
// validation and sampling.
type Space struct {
	Knd   Kind         `desc:"semantic kind: determines stacking policy and extractor variant"`
	Shp   []int        `desc:"shape of one raw sample, without any batch dimension"`
	Low   float64      `desc:"inclusive lower bound, for Image and Vector kinds"`
	High  float64      `desc:"inclusive upper bound, for Image and Vector kinds"`
	N     int          `desc:"number of categories, for Discrete kind"`
	Dtype etensor.Type `desc:"element type of raw sample tensors"`
}

// NewImage returns an image space with given shape (3 dims, either
// channel-first or channel-last) over uint8 pixels in [0, 255].
func NewImage(shape []int) *Space {
	return &Space{Knd: Image, Shp: shape, Low: 0, High: 255, Dtype: etensor.UINT8}
}

// NewVector returns a 1D continuous vector space of n elements
// bounded by [low, high], float32.
func NewVector(n int, low, high float64) *Space {
	return &Space{Knd: Vector, Shp: []int{n}, Low: low, High: high, Dtype: etensor.FLOAT32}
}

// NewDiscrete returns a categorical space over n categories.
// Samples are single-element int64 tensors.
func NewDiscrete(n int) *Space {
	return &Space{Knd: Discrete, Shp: []int{1}, N: n, Dtype: etensor.INT64}
}

// FlatLen returns the number of elements in one raw sample.
func (sp *Space) FlatLen() int {
	n := 1
	for _, d := range sp.Shp {
		n *= d
	}
	return n
}

// Validate checks the descriptor definition itself, returning a
// ConfigurationError for contradictions.  Called by NewDict so that bad
// descriptors fail at construction, not at step time.
func (sp *Space) Validate() error {
	switch sp.Knd {
	case Image:
		if len(sp.Shp) != 3 {
			return ConfigErrorf("", "Image space must have 3 dims, got %v", sp.Shp)
		}
	case Vector:
		if len(sp.Shp) == 0 {
			return ConfigErrorf("", "Vector space must have a non-empty shape")
		}
	case Discrete:
		if sp.N < 2 {
			return ConfigErrorf("", "Discrete space must have at least 2 categories, got %d", sp.N)
		}
		return nil
	default:
		return ConfigErrorf("", "unknown space kind %d", sp.Knd)
	}
	for _, d := range sp.Shp {
		if d <= 0 {
			return ConfigErrorf("", "shape dims must be positive, got %v", sp.Shp)
		}
	}
	if sp.High <= sp.Low {
		return ConfigErrorf("", "bounds must satisfy Low < High, got [%g, %g]", sp.Low, sp.High)
	}
	return nil
}

// Sample draws one conforming raw sample using given source of randomness.
func (sp *Space) Sample(rnd *rand.Rand) etensor.Tensor {
	switch sp.Knd {
	case Discrete:
		t := etensor.NewInt64(sp.Shp, nil, nil)
		t.Values[0] = int64(rnd.Intn(sp.N))
		return t
	case Image:
		t := etensor.NewUint8(sp.Shp, nil, nil)
		lo, hi := int(sp.Low), int(sp.High)
		for i := range t.Values {
			t.Values[i] = uint8(lo + rnd.Intn(hi-lo+1))
		}
		return t
	default:
		t := etensor.NewFloat32(sp.Shp, nil, nil)
		for i := range t.Values {
			t.Values[i] = float32(sp.Low + rnd.Float64()*(sp.High-sp.Low))
		}
		return t
	}
}

// Check is the membership predicate: nil if the sample conforms to this
// descriptor, else a ValidationError naming given key.
func (sp *Space) Check(key string, t etensor.Tensor) error {
	if t == nil {
		return ValidationErrorf(key, "nil sample")
	}
	if t.DataType() != sp.Dtype {
		return ValidationErrorf(key, "dtype %v, space requires %v", t.DataType(), sp.Dtype)
	}
	if t.NumDims() != len(sp.Shp) {
		return ValidationErrorf(key, "sample has %d dims, space requires shape %v", t.NumDims(), sp.Shp)
	}
	for i, d := range sp.Shp {
		if t.Dim(i) != d {
			return ValidationErrorf(key, "sample dim %d is %d, space requires shape %v", i, t.Dim(i), sp.Shp)
		}
	}
	if sp.Knd == Discrete {
		v := t.FloatVal1D(0)
		if v != float64(int(v)) || int(v) < 0 || int(v) >= sp.N {
			return ValidationErrorf(key, "category %g outside [0, %d)", v, sp.N)
		}
		return nil
	}
	for i := 0; i < t.Len(); i++ {
		v := t.FloatVal1D(i)
		if v < sp.Low || v > sp.High {
			return ValidationErrorf(key, "value %g at offset %d outside bounds [%g, %g]", v, i, sp.Low, sp.High)
		}
	}
	return nil
}

// Contains reports whether the sample conforms to this descriptor.
func (sp *Space) Contains(t etensor.Tensor) bool {
	return sp.Check("", t) == nil
}

// OneHot renders a discrete sample as a localist 1-hot float32 tensor of
// length N, in the same style as the action patterns used by grid worlds.
func (sp *Space) OneHot(t etensor.Tensor) *etensor.Float32 {
	oh := etensor.NewFloat32([]int{sp.N}, nil, nil)
	v := int(t.FloatVal1D(0))
	if v >= 0 && v < sp.N {
		oh.Values[v] = 1
	}
	return oh
}
