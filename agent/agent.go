// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package agent defines the algorithm boundary: agents consume the flat
// embedding produced by a features.Combined extractor as an opaque
// fixed-size input, never inspecting individual observation keys.
package agent

import (
	"math/rand"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
)

// Agent selects one action per step from a flat embedding.  The embedding
// width is fixed at construction; Act is called once per sub-world per step.
type Agent interface {
	// Name returns the name of this agent.
	Name() string

	// InWidth returns the embedding width this agent was constructed for.
	InWidth() int

	// Act returns an action conforming to the agent's action space.
	Act(emb []float32) (etensor.Tensor, error)
}

// Random is a uniform-random policy over its action space.  It anchors the
// low end of any learning curve and exercises the full harness without
// gradient machinery.
type Random struct {
	Nm    string     `desc:"name of this agent"`
	In    int        `desc:"embedding width, treated as opaque"`
	ActSp *obs.Space `desc:"action space sampled uniformly"`
	Rnd   *rand.Rand `view:"-" desc:"source of randomness, owned by this agent"`
}

// NewRandom returns a Random agent for given embedding width and action
// space.
func NewRandom(inWidth int, act *obs.Space, seed int64) (*Random, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	if inWidth < 1 {
		return nil, obs.ConfigErrorf("", "embedding width must be positive, got %d", inWidth)
	}
	return &Random{Nm: "Random", In: inWidth, ActSp: act,
		Rnd: rand.New(rand.NewSource(seed))}, nil
}

func (ra *Random) Name() string { return ra.Nm }
func (ra *Random) InWidth() int { return ra.In }

// Act ignores the embedding beyond a width check and samples the action
// space uniformly.
func (ra *Random) Act(emb []float32) (etensor.Tensor, error) {
	if len(emb) != ra.In {
		return nil, obs.ValidationErrorf("", "embedding width %d, agent constructed for %d", len(emb), ra.In)
	}
	return ra.ActSp.Sample(ra.Rnd), nil
}
