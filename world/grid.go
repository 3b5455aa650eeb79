// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package world

import (
	"fmt"
	"math/rand"

	"github.com/ccnlab/multiobs/obs"
	"github.com/emer/emergent/env"
	"github.com/emer/emergent/evec"
	"github.com/emer/etable/etensor"
	"github.com/goki/ki/ints"
	"github.com/goki/ki/kit"
	"github.com/goki/mat32"
)

// Actions is the list of movement actions for the Grid world.
type Actions int

var KiT_Actions = kit.Enums.AddEnum(ActionsN, false, nil)

const (
	Left Actions = iota
	Right
	Up
	Down

	ActionsN
)

func (a Actions) String() string {
	switch a {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Up:
		return "Up"
	case Down:
		return "Down"
	}
	return "ActionsN"
}

// Grid observation keys.
const (
	// ImgKey is the rendered first-person-free view of the room:
	// agent cell bright, goal cell mid-gray, 1 channel of uint8 pixels.
	ImgKey = "img"

	// VecKey is the agent position normalized to [0, 1] per axis.
	VecKey = "vec"

	// DiscreteKey is the last action taken, as a categorical value.
	DiscreteKey = "discrete"
)

// Grid is a flat grid-room world with a multimodal structured observation:
// an image render of the room, a normalized position vector, and the last
// action as a discrete category.  The agent moves in 4 directions; reaching
// the goal cell ends the episode with a positive reward, every other step
// pays a small cost.
type Grid struct {
	Nm           string     `desc:"name of this world"`
	Dsc          string     `desc:"description of this world"`
	Size         evec.Vec2i `desc:"size of the room in cells"`
	CellPix      int        `desc:"rendered pixels per cell along each axis"`
	ChanLast     bool       `desc:"render the image channel-last (Y,X,C) instead of channel-first (C,Y,X)"`
	DiscreteActs bool       `desc:"discrete action space instead of a continuous 2D box"`
	RandStart    bool       `desc:"start each episode at a random cell instead of the origin"`
	StepCost     float64    `desc:"negative reward per non-goal step"`
	GoalReward   float64    `desc:"reward for reaching the goal cell"`
	MaxSteps     int        `desc:"episode step limit, 0 = unlimited"`
	ObsSp        *obs.Dict  `view:"-" desc:"structured observation space"`
	ActSp        *obs.Space `view:"-" desc:"action space"`

	// current state below (params above)
	Pos     evec.Vec2i `inactive:"+" desc:"current agent cell"`
	Goal    evec.Vec2i `inactive:"+" desc:"goal cell"`
	LastAct Actions    `inactive:"+" desc:"last action taken"`
	Run     env.Ctr    `view:"inline" desc:"current run"`
	Epoch   env.Ctr    `view:"inline" desc:"episodes completed"`
	Event   env.Ctr    `view:"inline" desc:"step within episode"`
	Rnd     *rand.Rand `view:"-" desc:"source of randomness, owned by this world"`
}

// NewGrid returns a Grid world with the default 4x4 room rendered at
// 16 pixels per cell (a 64x64 image), discrete actions, goal in the
// far corner.
func NewGrid(seed int64) *Grid {
	gd := &Grid{Nm: "Grid", Dsc: "grid room with multimodal observations",
		CellPix: 16, DiscreteActs: true, StepCost: 0.1, GoalReward: 1, MaxSteps: 100,
		Rnd: rand.New(rand.NewSource(seed))}
	gd.Size.Set(4, 4)
	gd.Config()
	return gd
}

// Config builds the observation and action spaces from the current
// parameters.  Call again after changing Size, CellPix, ChanLast or
// DiscreteActs.
func (gd *Grid) Config() {
	h := gd.Size.Y * gd.CellPix
	w := gd.Size.X * gd.CellPix
	ishp := []int{1, h, w}
	if gd.ChanLast {
		ishp = []int{h, w, 1}
	}
	sp, err := obs.NewDict(map[string]*obs.Space{
		ImgKey:      obs.NewImage(ishp),
		VecKey:      obs.NewVector(2, 0, 1),
		DiscreteKey: obs.NewDiscrete(int(ActionsN)),
	})
	if err != nil {
		panic(err) // only possible with contradictory params
	}
	gd.ObsSp = sp
	if gd.DiscreteActs {
		gd.ActSp = obs.NewDiscrete(int(ActionsN))
	} else {
		gd.ActSp = obs.NewVector(2, -1, 1)
	}
	gd.Goal.Set(gd.Size.X-1, gd.Size.Y-1)
	gd.Run.Scale = env.Run
	gd.Epoch.Scale = env.Epoch
	gd.Event.Scale = env.Event
	gd.Run.Init()
	gd.Epoch.Init()
	gd.Event.Init()
	gd.Event.Max = gd.MaxSteps
}

func (gd *Grid) Name() string         { return gd.Nm }
func (gd *Grid) ObsSpace() *obs.Dict  { return gd.ObsSp }
func (gd *Grid) ActSpace() *obs.Space { return gd.ActSp }

// String returns a compact description of the current state.
func (gd *Grid) String() string {
	return fmt.Sprintf("Evt_%d_Pos_%d_%d_Act_%s", gd.Event.Cur, gd.Pos.X, gd.Pos.Y, gd.LastAct)
}

// Reset starts a new episode at the origin, or a random non-goal cell when
// RandStart is set.
func (gd *Grid) Reset() (obs.State, error) {
	gd.Event.Init()
	gd.LastAct = Left
	gd.Pos.Set(0, 0)
	if gd.RandStart {
		gd.Pos.Set(gd.Rnd.Intn(gd.Size.X), gd.Rnd.Intn(gd.Size.Y))
		for gd.Pos == gd.Goal {
			gd.Pos.Set(gd.Rnd.Intn(gd.Size.X), gd.Rnd.Intn(gd.Size.Y))
		}
	}
	return gd.render(), nil
}

// Step applies the action and advances one time step.
func (gd *Grid) Step(action etensor.Tensor) (obs.State, float64, bool, Info, error) {
	if err := gd.ActSp.Check("action", action); err != nil {
		return nil, 0, false, nil, err
	}
	act := gd.DecodeAct(action)
	gd.TakeAct(act)
	hitMax := gd.Event.Incr()
	atGoal := gd.Pos == gd.Goal
	done := atGoal || hitMax
	rew := -gd.StepCost
	if atGoal {
		rew = gd.GoalReward
	}
	if done {
		gd.Epoch.Incr()
	}
	inf := Info{"pos_x": gd.Pos.X, "pos_y": gd.Pos.Y, "act": gd.LastAct.String()}
	return gd.render(), rew, done, inf, nil
}

// DecodeAct translates an action tensor into a movement action: the category
// itself for discrete actions, else the dominant axis and sign of the 2D box.
func (gd *Grid) DecodeAct(action etensor.Tensor) Actions {
	if gd.DiscreteActs {
		return Actions(int(action.FloatVal1D(0)))
	}
	dx := float32(action.FloatVal1D(0))
	dy := float32(action.FloatVal1D(1))
	if mat32.Abs(dx) >= mat32.Abs(dy) {
		if dx < 0 {
			return Left
		}
		return Right
	}
	if dy < 0 {
		return Up
	}
	return Down
}

// TakeAct moves the agent, clipping at the room walls.
func (gd *Grid) TakeAct(act Actions) {
	gd.LastAct = act
	switch act {
	case Left:
		gd.Pos.X--
	case Right:
		gd.Pos.X++
	case Up:
		gd.Pos.Y--
	case Down:
		gd.Pos.Y++
	}
	gd.Pos.X = ints.MinInt(ints.MaxInt(gd.Pos.X, 0), gd.Size.X-1)
	gd.Pos.Y = ints.MinInt(ints.MaxInt(gd.Pos.Y, 0), gd.Size.Y-1)
}

// render produces a fresh State for the current position and last action.
func (gd *Grid) render() obs.State {
	isp := gd.ObsSp.Space(ImgKey)
	img := etensor.NewUint8(isp.Shp, nil, nil)
	gd.renderCell(img, gd.Goal, 128)
	gd.renderCell(img, gd.Pos, 255)

	vec := etensor.NewFloat32([]int{2}, nil, nil)
	if gd.Size.X > 1 {
		vec.Values[0] = float32(gd.Pos.X) / float32(gd.Size.X-1)
	}
	if gd.Size.Y > 1 {
		vec.Values[1] = float32(gd.Pos.Y) / float32(gd.Size.Y-1)
	}

	da := etensor.NewInt64([]int{1}, nil, nil)
	da.Values[0] = int64(gd.LastAct)

	return obs.State{ImgKey: img, VecKey: vec, DiscreteKey: da}
}

// renderCell fills one cell's pixel block with given value, honoring the
// configured channel order.
func (gd *Grid) renderCell(img *etensor.Uint8, cell evec.Vec2i, val uint8) {
	w := gd.Size.X * gd.CellPix
	for py := 0; py < gd.CellPix; py++ {
		y := cell.Y*gd.CellPix + py
		for px := 0; px < gd.CellPix; px++ {
			x := cell.X*gd.CellPix + px
			// single channel: (C,Y,X) and (Y,X,C) share the same flat offset
			img.Values[y*w+x] = val
		}
	}
}
