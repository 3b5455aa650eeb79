// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obs

import (
	"math/rand"
	"sort"

	"github.com/emer/etable/etensor"
)

// State is one time step's structured observation: a mapping from stable
// string keys to raw sample tensors, one entry per key of the Dict space it
// conforms to.  A fresh State is produced at every reset and step and is
// never mutated in place.
type State map[string]etensor.Tensor

// Clone returns a deep copy of the state.
func (st State) Clone() State {
	cp := make(State, len(st))
	for k, t := range st {
		cp[k] = t.Clone()
	}
	return cp
}

// Dict is an ordered mapping from key to Space descriptor: the observation
// space of an environment with structured observations.  The key set is
// fixed for the lifetime of the Dict, and Keys is the canonical order used
// everywhere embeddings are concatenated: sorted by key, so two Dicts built
// from the same key -> descriptor mapping always agree, regardless of
// declaration order.
type Dict struct {
	Keys   []string          `desc:"canonical key order: sorted, fixed at construction"`
	Spaces map[string]*Space `desc:"descriptor for each key"`
}

// NewDict constructs a Dict space from a key -> descriptor mapping,
// validating every descriptor.  Returns a ConfigurationError for an empty
// mapping or any malformed descriptor.
func NewDict(spaces map[string]*Space) (*Dict, error) {
	if len(spaces) == 0 {
		return nil, ConfigErrorf("", "Dict space must have at least one key")
	}
	keys := make([]string, 0, len(spaces))
	for k, sp := range spaces {
		if sp == nil {
			return nil, ConfigErrorf(k, "nil space descriptor")
		}
		if err := sp.Validate(); err != nil {
			return nil, ConfigErrorf(k, "%v", err)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cp := make(map[string]*Space, len(spaces))
	for k, sp := range spaces {
		cp[k] = sp
	}
	return &Dict{Keys: keys, Spaces: cp}, nil
}

// Space returns the descriptor for given key, nil if not present.
func (dt *Dict) Space(key string) *Space {
	return dt.Spaces[key]
}

// Sample draws a State in which every key's value independently satisfies
// its descriptor.  Keys are sampled in canonical order so a seeded rand
// source produces reproducible states.
func (dt *Dict) Sample(rnd *rand.Rand) State {
	st := make(State, len(dt.Keys))
	for _, k := range dt.Keys {
		st[k] = dt.Spaces[k].Sample(rnd)
	}
	return st
}

// Check verifies that the state has exactly the Dict's key set and that
// every sample conforms to its descriptor.  This is the membership predicate
// applied at the environment boundary; any mismatch is a ValidationError.
func (dt *Dict) Check(st State) error {
	if len(st) != len(dt.Keys) {
		return ValidationErrorf("", "state has %d keys, space has %d", len(st), len(dt.Keys))
	}
	for _, k := range dt.Keys {
		t, ok := st[k]
		if !ok {
			return ValidationErrorf(k, "missing from state")
		}
		if err := dt.Spaces[k].Check(k, t); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether the state conforms to this space.
func (dt *Dict) Contains(st State) bool {
	return dt.Check(st) == nil
}
