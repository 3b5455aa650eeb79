// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package world

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discAct(a Actions) etensor.Tensor {
	t := etensor.NewInt64([]int{1}, nil, nil)
	t.Values[0] = int64(a)
	return t
}

func boxAct(dx, dy float32) etensor.Tensor {
	t := etensor.NewFloat32([]int{2}, nil, nil)
	t.Values[0] = dx
	t.Values[1] = dy
	return t
}

func TestGridSpaces(t *testing.T) {
	gd := NewGrid(1)
	assert.Equal(t, []string{"discrete", "img", "vec"}, gd.ObsSpace().Keys)
	assert.Equal(t, []int{1, 64, 64}, gd.ObsSpace().Space(ImgKey).Shp)
	assert.Equal(t, 4, gd.ActSpace().N)

	gd.ChanLast = true
	gd.Config()
	assert.Equal(t, []int{64, 64, 1}, gd.ObsSpace().Space(ImgKey).Shp)
}

func TestGridObsConform(t *testing.T) {
	gd := NewGrid(2)
	st, err := gd.Reset()
	require.NoError(t, err)
	require.NoError(t, gd.ObsSpace().Check(st))

	for i := 0; i < 5; i++ {
		st, _, _, _, err = gd.Step(discAct(Right))
		require.NoError(t, err)
		require.NoError(t, gd.ObsSpace().Check(st))
	}
}

func TestGridGoal(t *testing.T) {
	gd := NewGrid(3) // 4x4 room, start (0,0), goal (3,3)
	_, err := gd.Reset()
	require.NoError(t, err)

	acts := []Actions{Right, Right, Right, Down, Down, Down}
	for i, a := range acts {
		st, rew, done, inf, err := gd.Step(discAct(a))
		require.NoError(t, err)
		if i < len(acts)-1 {
			assert.False(t, done)
			assert.Equal(t, -gd.StepCost, rew)
		} else {
			assert.True(t, done)
			assert.Equal(t, gd.GoalReward, rew)
			assert.Equal(t, 3, inf["pos_x"])
			assert.Equal(t, 3, inf["pos_y"])
			// at the goal the agent render overwrites the goal marker
			vec := st[VecKey].(*etensor.Float32)
			assert.Equal(t, float32(1), vec.Values[0])
			assert.Equal(t, float32(1), vec.Values[1])
		}
	}
}

func TestGridObsTracksState(t *testing.T) {
	gd := NewGrid(4)
	_, err := gd.Reset()
	require.NoError(t, err)

	st, _, _, _, err := gd.Step(discAct(Down))
	require.NoError(t, err)
	vec := st[VecKey].(*etensor.Float32)
	assert.Equal(t, float32(0), vec.Values[0])
	assert.Equal(t, float32(1)/3, vec.Values[1])
	assert.Equal(t, int64(Down), st[DiscreteKey].(*etensor.Int64).Values[0])

	// agent block rendered bright at cell (0,1): pixel (y=16, x=0)
	img := st[ImgKey].(*etensor.Uint8)
	assert.Equal(t, uint8(255), img.Values[16*64])
	// goal block mid-gray at cell (3,3): pixel (y=48, x=48)
	assert.Equal(t, uint8(128), img.Values[48*64+48])
}

func TestGridWalls(t *testing.T) {
	gd := NewGrid(5)
	_, err := gd.Reset()
	require.NoError(t, err)
	// moves off the room edge are clipped
	_, _, _, _, err = gd.Step(discAct(Left))
	require.NoError(t, err)
	_, _, _, _, err = gd.Step(discAct(Up))
	require.NoError(t, err)
	assert.Equal(t, 0, gd.Pos.X)
	assert.Equal(t, 0, gd.Pos.Y)
}

func TestGridMaxSteps(t *testing.T) {
	gd := NewGrid(6)
	gd.MaxSteps = 2
	gd.Config()
	_, err := gd.Reset()
	require.NoError(t, err)

	_, _, done, _, err := gd.Step(discAct(Left))
	require.NoError(t, err)
	assert.False(t, done)
	_, rew, done, _, err := gd.Step(discAct(Left))
	require.NoError(t, err)
	assert.True(t, done) // step limit, not the goal
	assert.Equal(t, -gd.StepCost, rew)
}

func TestGridContinuousActs(t *testing.T) {
	gd := NewGrid(7)
	gd.DiscreteActs = false
	gd.Config()
	assert.Equal(t, []int{2}, gd.ActSpace().Shp)

	assert.Equal(t, Right, gd.DecodeAct(boxAct(0.9, 0.2)))
	assert.Equal(t, Left, gd.DecodeAct(boxAct(-0.9, 0.2)))
	assert.Equal(t, Down, gd.DecodeAct(boxAct(0.1, 0.8)))
	assert.Equal(t, Up, gd.DecodeAct(boxAct(0.1, -0.8)))

	_, err := gd.Reset()
	require.NoError(t, err)
	_, _, _, _, err = gd.Step(boxAct(0.9, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, gd.Pos.X)

	// discrete action tensor against the box space is rejected
	_, _, _, _, err = gd.Step(discAct(Right))
	assert.Error(t, err)
}

func TestGridRandStart(t *testing.T) {
	gd := NewGrid(8)
	gd.RandStart = true
	for i := 0; i < 20; i++ {
		_, err := gd.Reset()
		require.NoError(t, err)
		assert.NotEqual(t, gd.Goal, gd.Pos)
	}
}
