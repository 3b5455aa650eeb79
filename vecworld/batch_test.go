// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vecworld

import (
	"testing"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/etable/etensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSpaces(t *testing.T) {
	wa := newSeqWorld(t, stdSpaces(), 5)
	wb := newSeqWorld(t, stdSpaces(), 5)
	bt, err := NewBatch(wa, wb)
	require.NoError(t, err)
	assert.Equal(t, 2, bt.NumWorlds())
	assert.Equal(t, []string{"discrete", "img", "vec"}, bt.ObsSpace().Keys)

	// mismatched observation spaces are rejected
	wc := newSeqWorld(t, map[string]*obs.Space{"img": obs.NewImage([]int{1, 8, 8})}, 5)
	_, err = NewBatch(wa, wc)
	assert.Error(t, err)

	_, err = NewBatch()
	assert.Error(t, err)
}

func TestBatchAutoReset(t *testing.T) {
	sw := newSeqWorld(t, stdSpaces(), 2)
	bt, err := NewBatch(sw)
	require.NoError(t, err)

	sts, err := bt.Reset()
	require.NoError(t, err)
	assert.Equal(t, float32(100), sts[0]["vec"].(*etensor.Float32).Values[0])

	_, _, dones, _, err := bt.Step([]etensor.Tensor{seqAct()})
	require.NoError(t, err)
	assert.False(t, dones[0])

	sts, _, dones, infs, err := bt.Step([]etensor.Tensor{seqAct()})
	require.NoError(t, err)
	require.True(t, dones[0])
	// returned observation is the first of the new episode
	assert.Equal(t, float32(200), sts[0]["vec"].(*etensor.Float32).Values[0])
	// terminal observation stashed in info
	term, ok := infs[0][TerminalObs].(obs.State)
	require.True(t, ok)
	assert.Equal(t, float32(102), term["vec"].(*etensor.Float32).Values[0])
}

func TestBatchActionCount(t *testing.T) {
	bt, err := NewBatch(newSeqWorld(t, stdSpaces(), 5))
	require.NoError(t, err)
	_, err = bt.Reset()
	require.NoError(t, err)
	_, _, _, _, err = bt.Step([]etensor.Tensor{seqAct(), seqAct()})
	assert.Error(t, err)
}
