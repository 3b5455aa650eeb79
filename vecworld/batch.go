// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vecworld steps a fixed-size batch of independent worlds together
// and provides vectorized wrappers over them, in particular per-key temporal
// frame stacking of structured observations.
package vecworld

import (
	"github.com/ccnlab/multiobs/obs"
	"github.com/ccnlab/multiobs/world"
	"github.com/emer/etable/etensor"
)

// TerminalObs is the Info key under which Batch stashes the final
// observation of an episode that was auto-reset.
const TerminalObs = "terminal_observation"

// VecWorld is a fixed-size batch of independent worlds stepped together.
// Each sub-world is fully independent: no shared mutable state, no locking.
type VecWorld interface {
	// NumWorlds returns the fixed batch size.
	NumWorlds() int

	// ObsSpace returns the per-sub-world observation space.
	ObsSpace() *obs.Dict

	// ActSpace returns the per-sub-world action space.
	ActSpace() *obs.Space

	// Reset starts a new episode in every sub-world.
	Reset() ([]obs.State, error)

	// Step applies one action per sub-world.  Sub-worlds whose episodes
	// end are reset immediately; the observation returned for them is the
	// first of the new episode, and the terminal observation is stashed
	// in Info under TerminalObs.
	Step(actions []etensor.Tensor) ([]obs.State, []float64, []bool, []world.Info, error)
}

// Batch is the direct VecWorld implementation: it steps its worlds
// sequentially in the calling goroutine.
type Batch struct {
	Worlds []world.World `desc:"the independent sub-worlds"`
}

// NewBatch returns a Batch over given worlds, verifying that they all
// declare identical observation and action spaces.
func NewBatch(ws ...world.World) (*Batch, error) {
	if len(ws) == 0 {
		return nil, obs.ConfigErrorf("", "Batch needs at least one world")
	}
	osp := ws[0].ObsSpace()
	asp := ws[0].ActSpace()
	for _, w := range ws[1:] {
		if err := sameDict(osp, w.ObsSpace()); err != nil {
			return nil, obs.ConfigErrorf("", "world %q observation space differs: %v", w.Name(), err)
		}
		if !sameSpace(asp, w.ActSpace()) {
			return nil, obs.ConfigErrorf("", "world %q action space differs", w.Name())
		}
	}
	return &Batch{Worlds: ws}, nil
}

func (bt *Batch) NumWorlds() int       { return len(bt.Worlds) }
func (bt *Batch) ObsSpace() *obs.Dict  { return bt.Worlds[0].ObsSpace() }
func (bt *Batch) ActSpace() *obs.Space { return bt.Worlds[0].ActSpace() }

// Reset resets every sub-world.
func (bt *Batch) Reset() ([]obs.State, error) {
	sts := make([]obs.State, len(bt.Worlds))
	for i, w := range bt.Worlds {
		st, err := w.Reset()
		if err != nil {
			return nil, err
		}
		if err := w.ObsSpace().Check(st); err != nil {
			return nil, err
		}
		sts[i] = st
	}
	return sts, nil
}

// Step steps every sub-world with its action, auto-resetting the ones whose
// episode ended.
func (bt *Batch) Step(actions []etensor.Tensor) ([]obs.State, []float64, []bool, []world.Info, error) {
	if len(actions) != len(bt.Worlds) {
		return nil, nil, nil, nil, obs.ValidationErrorf("", "got %d actions for %d worlds", len(actions), len(bt.Worlds))
	}
	sts := make([]obs.State, len(bt.Worlds))
	rews := make([]float64, len(bt.Worlds))
	dones := make([]bool, len(bt.Worlds))
	infs := make([]world.Info, len(bt.Worlds))
	for i, w := range bt.Worlds {
		st, rew, done, inf, err := w.Step(actions[i])
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := w.ObsSpace().Check(st); err != nil {
			return nil, nil, nil, nil, err
		}
		if inf == nil {
			inf = world.Info{}
		}
		if done {
			inf[TerminalObs] = st
			st, err = w.Reset()
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		sts[i] = st
		rews[i] = rew
		dones[i] = done
		infs[i] = inf
	}
	return sts, rews, dones, infs, nil
}

// sameDict verifies two Dict spaces have identical keys and descriptors.
func sameDict(a, b *obs.Dict) error {
	if len(a.Keys) != len(b.Keys) {
		return obs.ConfigErrorf("", "key counts differ: %d vs %d", len(a.Keys), len(b.Keys))
	}
	for i, k := range a.Keys {
		if b.Keys[i] != k {
			return obs.ConfigErrorf(k, "key order differs")
		}
		if !sameSpace(a.Spaces[k], b.Spaces[k]) {
			return obs.ConfigErrorf(k, "descriptors differ")
		}
	}
	return nil
}

func sameSpace(a, b *obs.Space) bool {
	if a.Knd != b.Knd || a.Low != b.Low || a.High != b.High || a.N != b.N || a.Dtype != b.Dtype {
		return false
	}
	if len(a.Shp) != len(b.Shp) {
		return false
	}
	for i, d := range a.Shp {
		if b.Shp[i] != d {
			return false
		}
	}
	return true
}
