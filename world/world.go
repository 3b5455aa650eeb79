// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package world defines the environment boundary for structured
// observations, and reference worlds used for testing and sims.
package world

import (
	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
)

// Info carries auxiliary per-step data (debug values, terminal observations
// stashed by vectorized wrappers).  Not to be used for learning.
type Info map[string]any

// World is an environment producing structured observations.  Reset and
// Step are blocking, ordinary calls with no suspension points; a World is
// owned by a single goroutine.
type World interface {
	// Name returns the name of this world.
	Name() string

	// ObsSpace returns the structured observation space.  The key set and
	// canonical order are fixed for the lifetime of the world.
	ObsSpace() *obs.Dict

	// ActSpace returns the action space descriptor: a continuous box
	// (Vector kind) or Discrete.
	ActSpace() *obs.Space

	// Reset starts a new episode and returns the first observation.
	Reset() (obs.State, error)

	// Step applies an action conforming to ActSpace and advances one time
	// step, returning the next observation, reward, episode-done flag and
	// auxiliary info.
	Step(action etensor.Tensor) (obs.State, float64, bool, Info, error)
}

// CheckAction validates an action against a world's action space,
// returning a ValidationError on mismatch.
func CheckAction(w World, action etensor.Tensor) error {
	return w.ActSpace().Check("action", action)
}
