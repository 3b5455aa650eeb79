// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vecworld

import (
	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
)

// ring is a fixed-capacity circular buffer of the last N raw samples for
// one stacked key of one sub-world.  Slots hold references to the samples
// produced by the base world; samples are never mutated in place, so no
// copies are needed.  The buffer is always full: fill seeds all N slots.
type ring struct {
	frames []etensor.Tensor
	head   int // slot the next push overwrites; also the oldest frame
}

func newRing(depth int) *ring {
	return &ring{frames: make([]etensor.Tensor, depth)}
}

// fill seeds every slot with the same sample: reset semantics, leaving the
// stacked output with uniform temporal content.
func (rg *ring) fill(t etensor.Tensor) {
	for i := range rg.frames {
		rg.frames[i] = t
	}
	rg.head = 0
}

// push overwrites the oldest slot with the newest sample.
func (rg *ring) push(t etensor.Tensor) {
	rg.frames[rg.head] = t
	rg.head++
	if rg.head >= len(rg.frames) {
		rg.head = 0
	}
}

// frame returns buffered sample i, 0 = oldest.
func (rg *ring) frame(i int) etensor.Tensor {
	return rg.frames[(rg.head+i)%len(rg.frames)]
}

// newest returns the most recent sample.
func (rg *ring) newest() etensor.Tensor {
	return rg.frame(len(rg.frames) - 1)
}

// stacked concatenates the N buffered samples, oldest first, along the
// channel axis implied by the policy, producing one sample of the stacked
// space ssp.  ChanFirst folds frames into the leading axis, which in
// row-major layout is a plain append; ChanLast interleaves each frame's
// trailing channels per spatial position.  Vectors (1D) reduce to a plain
// append under either policy.
func (rg *ring) stacked(ord ChannelOrder, ssp *obs.Space) (etensor.Tensor, error) {
	n := len(rg.frames)
	last := ord == ChanLast && len(ssp.Shp) > 1
	switch ssp.Dtype {
	case etensor.UINT8:
		out := etensor.NewUint8(ssp.Shp, nil, nil)
		for i := 0; i < n; i++ {
			fr, ok := rg.frame(i).(*etensor.Uint8)
			if !ok {
				return nil, obs.ValidationErrorf("", "buffered frame is not uint8")
			}
			place(out.Values, fr.Values, i, n, ssp, last)
		}
		return out, nil
	case etensor.FLOAT32:
		out := etensor.NewFloat32(ssp.Shp, nil, nil)
		for i := 0; i < n; i++ {
			fr, ok := rg.frame(i).(*etensor.Float32)
			if !ok {
				return nil, obs.ValidationErrorf("", "buffered frame is not float32")
			}
			place(out.Values, fr.Values, i, n, ssp, last)
		}
		return out, nil
	case etensor.FLOAT64:
		out := etensor.NewFloat64(ssp.Shp, nil, nil)
		for i := 0; i < n; i++ {
			fr, ok := rg.frame(i).(*etensor.Float64)
			if !ok {
				return nil, obs.ValidationErrorf("", "buffered frame is not float64")
			}
			place(out.Values, fr.Values, i, n, ssp, last)
		}
		return out, nil
	case etensor.INT64:
		out := etensor.NewInt64(ssp.Shp, nil, nil)
		for i := 0; i < n; i++ {
			fr, ok := rg.frame(i).(*etensor.Int64)
			if !ok {
				return nil, obs.ValidationErrorf("", "buffered frame is not int64")
			}
			place(out.Values, fr.Values, i, n, ssp, last)
		}
		return out, nil
	}
	return nil, obs.ConfigErrorf("", "cannot stack dtype %v", ssp.Dtype)
}

// place copies frame i of n into the stacked output values.  For leading
// axis concatenation the frame occupies one contiguous block; for trailing
// axis concatenation the frame's C channels land at offset i*C within each
// spatial position's N*C output channels.
func place[T any](out, fr []T, i, n int, ssp *obs.Space, last bool) {
	if !last {
		copy(out[i*len(fr):(i+1)*len(fr)], fr)
		return
	}
	nc := ssp.Shp[len(ssp.Shp)-1] // stacked channel count = n*c
	c := nc / n
	spatial := len(fr) / c
	for s := 0; s < spatial; s++ {
		copy(out[s*nc+i*c:s*nc+(i+1)*c], fr[s*c:(s+1)*c])
	}
}
