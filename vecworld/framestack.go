// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vecworld

import (
	"github.com/ccnlab/multiobs/obs"
	"github.com/ccnlab/multiobs/world"
	"github.com/emer/etable/etensor"
	"github.com/goki/ki/kit"
)

// ChannelOrder is the per-key policy for folding the temporal axis of a
// frame stack into an existing axis.  The policy must match the physical
// layout of the underlying image descriptor -- this is a caller contract the
// wrapper can only verify where shape arithmetic contradicts it.
type ChannelOrder int

var KiT_ChannelOrder = kit.Enums.AddEnum(ChannelOrderN, false, nil)

const (
	// NoStack applies no stacking: the output is the most recent sample
	// unchanged.  Always used for Discrete keys.
	NoStack ChannelOrder = iota

	// ChanFirst concatenates the stacked frames into the leading channel
	// axis, for channel-first (C,Y,X) image tensors.
	ChanFirst

	// ChanLast concatenates the stacked frames into the trailing channel
	// axis, for channel-last (Y,X,C) image tensors.
	ChanLast

	// AutoChan infers the policy from the key's descriptor at wrapper
	// construction, failing with a ConfigurationError when ambiguous.
	AutoChan

	ChannelOrderN
)

func (co ChannelOrder) String() string {
	switch co {
	case NoStack:
		return "none"
	case ChanFirst:
		return "first"
	case ChanLast:
		return "last"
	case AutoChan:
		return "auto"
	}
	return "ChannelOrderN"
}

// OrderFromString parses "none", "first", "last" or "auto".
func OrderFromString(s string) (ChannelOrder, error) {
	for co := NoStack; co < ChannelOrderN; co++ {
		if co.String() == s {
			return co, nil
		}
	}
	return NoStack, obs.ConfigErrorf("", "unknown channel order %q", s)
}

// FrameStack is a vectorized wrapper that stacks the last Depth raw samples
// of each key into one sample, independently per key and per sub-world.
// Image keys fold the temporal axis into their channel axis per their
// ChannelOrder; vector keys concatenate along their native axis; discrete
// keys pass through unstacked.  The wrapper exposes the stacked observation
// space in place of the base one.
type FrameStack struct {
	Base      VecWorld                `desc:"the wrapped vectorized world"`
	Depth     int                     `desc:"number of temporal frames per stacked sample"`
	Orders    map[string]ChannelOrder `desc:"resolved channel-order policy per key"`
	StackedSp *obs.Dict               `desc:"observation space with stacked descriptors"`

	bufs []map[string]*ring // per sub-world ring buffers, stacked keys only
}

// NewFrameStack wraps base with a frame stack of given depth.  orders gives
// per-key policy overrides; keys not listed default to AutoChan.  All policy
// resolution and shape arithmetic happens here, never at step time.
func NewFrameStack(base VecWorld, depth int, orders map[string]ChannelOrder) (*FrameStack, error) {
	if depth < 1 {
		return nil, obs.ConfigErrorf("", "stack depth must be >= 1, got %d", depth)
	}
	sp := base.ObsSpace()
	for k := range orders {
		if sp.Space(k) == nil {
			return nil, obs.ConfigErrorf(k, "channel order given for key not in observation space")
		}
	}
	resolved := make(map[string]ChannelOrder, len(sp.Keys))
	stacked := make(map[string]*obs.Space, len(sp.Keys))
	for _, k := range sp.Keys {
		ksp := sp.Spaces[k]
		ord, ok := orders[k]
		if !ok {
			ord = AutoChan
		}
		ord, err := resolveOrder(k, ksp, ord)
		if err != nil {
			return nil, err
		}
		if ord != NoStack {
			if err := stackableDtype(k, ksp); err != nil {
				return nil, err
			}
		}
		resolved[k] = ord
		stacked[k] = stackedSpace(ksp, ord, depth)
	}
	ssp, err := obs.NewDict(stacked)
	if err != nil {
		return nil, err
	}
	fs := &FrameStack{Base: base, Depth: depth, Orders: resolved, StackedSp: ssp}
	fs.bufs = make([]map[string]*ring, base.NumWorlds())
	for i := range fs.bufs {
		kbufs := make(map[string]*ring)
		for _, k := range sp.Keys {
			if resolved[k] != NoStack {
				kbufs[k] = newRing(depth)
			}
		}
		fs.bufs[i] = kbufs
	}
	return fs, nil
}

// resolveOrder turns AutoChan into a concrete policy and rejects
// contradictory requests.
func resolveOrder(key string, sp *obs.Space, ord ChannelOrder) (ChannelOrder, error) {
	switch sp.Knd {
	case obs.Discrete:
		if ord == ChanFirst || ord == ChanLast {
			return NoStack, obs.ConfigErrorf(key, "Discrete keys cannot be stacked")
		}
		return NoStack, nil
	case obs.Vector:
		if ord == AutoChan {
			// 1D: leading and trailing axis are the same axis
			return ChanLast, nil
		}
		return ord, nil
	case obs.Image:
		if ord != AutoChan {
			return ord, nil
		}
		c0, c2 := sp.Shp[0], sp.Shp[2]
		switch {
		case c0 < c2:
			return ChanFirst, nil
		case c2 < c0:
			return ChanLast, nil
		default:
			return NoStack, obs.ConfigErrorf(key, "channel axis ambiguous for shape %v: give an explicit channel order", sp.Shp)
		}
	}
	return NoStack, obs.ConfigErrorf(key, "unknown kind %v", sp.Knd)
}

// stackableDtype verifies at construction that the stacking codepaths
// support the key's element type.
func stackableDtype(key string, sp *obs.Space) error {
	switch sp.Dtype {
	case etensor.UINT8, etensor.FLOAT32, etensor.FLOAT64, etensor.INT64:
		return nil
	}
	return obs.ConfigErrorf(key, "cannot stack dtype %v", sp.Dtype)
}

// stackedSpace computes the descriptor of the stacked key: channel count
// becomes Depth*C for images, length Depth*n for vectors, spatial dims and
// bounds unchanged.
func stackedSpace(sp *obs.Space, ord ChannelOrder, depth int) *obs.Space {
	out := &obs.Space{Knd: sp.Knd, Low: sp.Low, High: sp.High, N: sp.N, Dtype: sp.Dtype}
	out.Shp = make([]int, len(sp.Shp))
	copy(out.Shp, sp.Shp)
	switch ord {
	case ChanFirst:
		out.Shp[0] *= depth
	case ChanLast:
		out.Shp[len(out.Shp)-1] *= depth
	}
	return out
}

func (fs *FrameStack) NumWorlds() int       { return fs.Base.NumWorlds() }
func (fs *FrameStack) ObsSpace() *obs.Dict  { return fs.StackedSp }
func (fs *FrameStack) ActSpace() *obs.Space { return fs.Base.ActSpace() }

// Reset resets every sub-world and fills every ring buffer with Depth
// copies of the fresh first observation, so a freshly reset stacked
// observation has uniform temporal content with no trace of any prior
// episode.
func (fs *FrameStack) Reset() ([]obs.State, error) {
	sts, err := fs.Base.Reset()
	if err != nil {
		return nil, err
	}
	out := make([]obs.State, len(sts))
	for i, st := range sts {
		for k, rg := range fs.bufs[i] {
			rg.fill(st[k])
		}
		out[i], err = fs.stackedState(i, st)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Step steps the base batch, pushes the new samples into the per-sub-world
// ring buffers, and emits stacked observations.  A sub-world whose episode
// just ended (and was auto-reset by the base) gets its buffers refilled from
// the fresh post-reset observation; co-batched worlds mid-episode are not
// touched.  The terminal observation stashed in Info is stacked against the
// old buffer contents before the refill.
func (fs *FrameStack) Step(actions []etensor.Tensor) ([]obs.State, []float64, []bool, []world.Info, error) {
	sts, rews, dones, infs, err := fs.Base.Step(actions)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	out := make([]obs.State, len(sts))
	for i, st := range sts {
		if dones[i] {
			if term, ok := infs[i][TerminalObs].(obs.State); ok {
				for k, rg := range fs.bufs[i] {
					if err := fs.checkFrame(k, term[k]); err != nil {
						return nil, nil, nil, nil, err
					}
					rg.push(term[k])
				}
				tst, err := fs.stackedState(i, term)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				infs[i][TerminalObs] = tst
			}
			for k, rg := range fs.bufs[i] {
				rg.fill(st[k])
			}
		} else {
			for k, rg := range fs.bufs[i] {
				if err := fs.checkFrame(k, st[k]); err != nil {
					return nil, nil, nil, nil, err
				}
				rg.push(st[k])
			}
		}
		out[i], err = fs.stackedState(i, st)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return out, rews, dones, infs, nil
}

// checkFrame guards against a base world emitting a sample whose layout
// contradicts the space the wrapper was constructed for.
func (fs *FrameStack) checkFrame(key string, t etensor.Tensor) error {
	sp := fs.Base.ObsSpace().Space(key)
	if t.NumDims() != len(sp.Shp) {
		return &obs.ShapeMismatchError{Key: key, Want: sp.Shp, Got: tensorShape(t)}
	}
	for i, d := range sp.Shp {
		if t.Dim(i) != d {
			return &obs.ShapeMismatchError{Key: key, Want: sp.Shp, Got: tensorShape(t)}
		}
	}
	return nil
}

func tensorShape(t etensor.Tensor) []int {
	shp := make([]int, t.NumDims())
	for i := range shp {
		shp[i] = t.Dim(i)
	}
	return shp
}

// stackedState assembles the stacked observation for sub-world i from its
// ring buffers and the pass-through keys of the current state st.
func (fs *FrameStack) stackedState(i int, st obs.State) (obs.State, error) {
	out := make(obs.State, len(st))
	for _, k := range fs.StackedSp.Keys {
		ord := fs.Orders[k]
		if ord == NoStack || fs.Depth == 1 {
			// pass-through: most recent sample unchanged
			out[k] = st[k]
			continue
		}
		t, err := fs.bufs[i][k].stacked(ord, fs.StackedSp.Spaces[k])
		if err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, nil
}
