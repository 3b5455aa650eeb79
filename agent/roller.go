// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package agent

import (
	"log/slog"

	"github.com/ccnlab/multiobs/features"
	"github.com/ccnlab/multiobs/obs"
	"github.com/ccnlab/multiobs/vecworld"
	"github.com/emer/etable/agg"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// LogPrec is the precision for saved log files.
const LogPrec = 4

// Roller drives a vectorized world through a Combined extractor and an
// Agent, collecting per-episode returns.  Sub-worlds run independent
// episodes; the roller only aggregates.
type Roller struct {
	Vec   vecworld.VecWorld  `desc:"the vectorized world stepped each iteration"`
	Feats *features.Combined `desc:"structured observation -> flat embedding"`
	Agt   Agent              `desc:"policy consuming the flat embedding"`
	EpLog *etable.Table      `desc:"per-episode log: Episode, Steps, Return"`
	Log   *slog.Logger       `view:"-" desc:"progress logger, slog.Default if nil"`

	epRews  []float64 // running return per sub-world
	epSteps []int     // running step count per sub-world
}

// NewRoller wires a vectorized world, an extractor and an agent, verifying
// that they agree on spaces and widths.
func NewRoller(vec vecworld.VecWorld, fx *features.Combined, agt Agent) (*Roller, error) {
	if len(fx.Sp.Keys) != len(vec.ObsSpace().Keys) {
		return nil, obs.ConfigErrorf("", "extractor space has %d keys, world has %d", len(fx.Sp.Keys), len(vec.ObsSpace().Keys))
	}
	for i, k := range vec.ObsSpace().Keys {
		if fx.Sp.Keys[i] != k {
			return nil, obs.ConfigErrorf(k, "extractor and world observation spaces disagree")
		}
	}
	if agt.InWidth() != fx.OutWidth() {
		return nil, obs.ConfigErrorf("", "agent expects width %d, extractor produces %d", agt.InWidth(), fx.OutWidth())
	}
	rl := &Roller{Vec: vec, Feats: fx, Agt: agt}
	rl.epRews = make([]float64, vec.NumWorlds())
	rl.epSteps = make([]int, vec.NumWorlds())
	rl.ConfigEpLog()
	return rl, nil
}

// ConfigEpLog configures the per-episode log table.
func (rl *Roller) ConfigEpLog() {
	dt := &etable.Table{}
	dt.SetMetaData("name", "EpLog")
	dt.SetMetaData("desc", "Per-episode step counts and returns")
	dt.SetMetaData("read-only", "true")
	dt.SetFromSchema(etable.Schema{
		{Name: "Episode", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Steps", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Return", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
	}, 0)
	rl.EpLog = dt
}

func (rl *Roller) logger() *slog.Logger {
	if rl.Log != nil {
		return rl.Log
	}
	return slog.Default()
}

// Run rolls the batch until given number of episodes have completed across
// all sub-worlds, logging each, and returns the mean episode return.
func (rl *Roller) Run(episodes int) (float64, error) {
	if episodes < 1 {
		return 0, obs.ConfigErrorf("", "episodes must be positive, got %d", episodes)
	}
	sts, err := rl.Vec.Reset()
	if err != nil {
		return 0, err
	}
	for i := range rl.epRews {
		rl.epRews[i] = 0
		rl.epSteps[i] = 0
	}
	n := rl.Vec.NumWorlds()
	acts := make([]etensor.Tensor, n)
	for rl.EpLog.Rows < episodes {
		for i, st := range sts {
			emb, err := rl.Feats.Forward(st)
			if err != nil {
				return 0, err
			}
			acts[i], err = rl.Agt.Act(emb)
			if err != nil {
				return 0, err
			}
		}
		nsts, rews, dones, _, err := rl.Vec.Step(acts)
		if err != nil {
			return 0, err
		}
		sts = nsts
		for i := range rews {
			rl.epRews[i] += rews[i]
			rl.epSteps[i]++
			if dones[i] {
				rl.logEpisode(rl.epSteps[i], rl.epRews[i])
				rl.epRews[i] = 0
				rl.epSteps[i] = 0
			}
		}
	}
	ix := etable.NewIdxView(rl.EpLog)
	mean := agg.Agg(ix, "Return", agg.AggMean)[0]
	rl.logger().Info("rollout done", "episodes", rl.EpLog.Rows, "mean_return", mean)
	return mean, nil
}

func (rl *Roller) logEpisode(steps int, ret float64) {
	dt := rl.EpLog
	row := dt.Rows
	dt.SetNumRows(row + 1)
	dt.SetCellFloat("Episode", row, float64(row))
	dt.SetCellFloat("Steps", row, float64(steps))
	dt.SetCellFloat("Return", row, ret)
	rl.logger().Debug("episode", "episode", row, "steps", steps, "return", ret)
}
