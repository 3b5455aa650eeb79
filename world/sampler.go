// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package world

import (
	"math/rand"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/emergent/env"
	"github.com/emer/etable/etensor"
)

// Sampler is a World that draws every observation at random from its
// observation space, with a fixed episode length and zero reward.  It
// exercises the full structured-observation contract without any dynamics,
// which makes it the reference world for wrapper and extractor tests.
type Sampler struct {
	Nm       string     `desc:"name of this world"`
	Dsc      string     `desc:"description of this world"`
	ObsSp    *obs.Dict  `desc:"structured observation space"`
	ActSp    *obs.Space `desc:"action space: continuous box or discrete"`
	MaxSteps int        `desc:"episode length: done after this many steps"`
	Run      env.Ctr    `view:"inline" desc:"current run"`
	Epoch    env.Ctr    `view:"inline" desc:"episodes completed"`
	Event    env.Ctr    `view:"inline" desc:"step within episode"`
	Rnd      *rand.Rand `view:"-" desc:"source of randomness, owned by this world"`
}

// NewSampler returns a Sampler over given spaces with given episode length.
func NewSampler(sp *obs.Dict, act *obs.Space, maxSteps int, seed int64) (*Sampler, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	if maxSteps <= 0 {
		return nil, obs.ConfigErrorf("", "Sampler episode length must be positive, got %d", maxSteps)
	}
	sm := &Sampler{Nm: "Sampler", Dsc: "samples its observation space every step",
		ObsSp: sp, ActSp: act, MaxSteps: maxSteps,
		Rnd: rand.New(rand.NewSource(seed))}
	sm.Run.Scale = env.Run
	sm.Epoch.Scale = env.Epoch
	sm.Event.Scale = env.Event
	sm.Run.Init()
	sm.Epoch.Init()
	sm.Event.Init()
	sm.Event.Max = maxSteps
	return sm, nil
}

func (sm *Sampler) Name() string        { return sm.Nm }
func (sm *Sampler) ObsSpace() *obs.Dict { return sm.ObsSp }
func (sm *Sampler) ActSpace() *obs.Space {
	return sm.ActSp
}

// Reset starts a new episode.
func (sm *Sampler) Reset() (obs.State, error) {
	sm.Event.Init()
	st := sm.ObsSp.Sample(sm.Rnd)
	if err := sm.ObsSp.Check(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Step draws a fresh observation; done after MaxSteps steps.
func (sm *Sampler) Step(action etensor.Tensor) (obs.State, float64, bool, Info, error) {
	if err := sm.ActSp.Check("action", action); err != nil {
		return nil, 0, false, nil, err
	}
	done := sm.Event.Incr()
	if done {
		sm.Epoch.Incr()
	}
	st := sm.ObsSp.Sample(sm.Rnd)
	if err := sm.ObsSp.Check(st); err != nil {
		return nil, 0, false, nil, err
	}
	return st, 0, done, Info{}, nil
}
