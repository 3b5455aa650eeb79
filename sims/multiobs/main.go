// Copyright (c) 2022, The CCNLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// multiobs runs a batch of grid-room worlds with multimodal structured
// observations through a frame-stacking wrapper, a combined feature
// extractor and a random agent, and saves the per-episode log.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ccnlab/multiobs/agent"
	"github.com/ccnlab/multiobs/features"
	"github.com/ccnlab/multiobs/vecworld"
	"github.com/ccnlab/multiobs/world"
	"github.com/emer/etable/etable"
)

// Sim holds the sim configuration and the wired-up components.
type Sim struct {
	NWorlds   int           `desc:"number of sub-worlds stepped together"`
	Depth     int           `desc:"frame stack depth"`
	Episodes  int           `desc:"episodes to run"`
	ImgWidth  int           `desc:"embedding width for the image key"`
	Seed      int64         `desc:"random seed"`
	RandStart bool          `desc:"random start cells"`
	ImgOrder  string        `desc:"channel order for the image key: none, first, last, auto"`
	LogFile   string        `desc:"episode log file to save, empty = don't save"`
	Roller    *agent.Roller `view:"-" desc:"the wired rollout driver"`
}

// New returns a Sim with default settings.
func New() *Sim {
	return &Sim{NWorlds: 4, Depth: 3, Episodes: 20, ImgWidth: 32, Seed: 1,
		RandStart: true, ImgOrder: "first", LogFile: "multiobs_ep.tsv"}
}

// Config wires worlds, wrapper, extractor and agent from the settings.
func (ss *Sim) Config() error {
	ws := make([]world.World, ss.NWorlds)
	for i := range ws {
		gd := world.NewGrid(ss.Seed + int64(i))
		gd.RandStart = ss.RandStart
		ws[i] = gd
	}
	bt, err := vecworld.NewBatch(ws...)
	if err != nil {
		return err
	}
	iord, err := vecworld.OrderFromString(ss.ImgOrder)
	if err != nil {
		return err
	}
	fs, err := vecworld.NewFrameStack(bt, ss.Depth, map[string]vecworld.ChannelOrder{
		world.ImgKey: iord,
		world.VecKey: vecworld.NoStack,
	})
	if err != nil {
		return err
	}
	fx, err := features.New(fs.ObsSpace(), &features.Config{
		Widths: map[string]int{world.ImgKey: ss.ImgWidth},
		Seed:   ss.Seed,
	})
	if err != nil {
		return err
	}
	ra, err := agent.NewRandom(fx.OutWidth(), fs.ActSpace(), ss.Seed)
	if err != nil {
		return err
	}
	ss.Roller, err = agent.NewRoller(fs, fx, ra)
	return err
}

// Run rolls the configured batch and saves the episode log.
func (ss *Sim) Run() error {
	slog.Info("running", "worlds", ss.NWorlds, "depth", ss.Depth,
		"episodes", ss.Episodes, "emb_width", ss.Roller.Feats.OutWidth())
	mean, err := ss.Roller.Run(ss.Episodes)
	if err != nil {
		return err
	}
	slog.Info("done", "mean_return", mean)
	if ss.LogFile == "" {
		return nil
	}
	fp, err := os.Create(ss.LogFile)
	if err != nil {
		return err
	}
	defer fp.Close()
	return ss.Roller.EpLog.WriteCSV(fp, etable.Tab, etable.Headers)
}

func main() {
	ss := New()
	flag.IntVar(&ss.NWorlds, "worlds", ss.NWorlds, "number of sub-worlds stepped together")
	flag.IntVar(&ss.Depth, "depth", ss.Depth, "frame stack depth")
	flag.IntVar(&ss.Episodes, "episodes", ss.Episodes, "episodes to run")
	flag.IntVar(&ss.ImgWidth, "imgwidth", ss.ImgWidth, "embedding width for the image key")
	flag.Int64Var(&ss.Seed, "seed", ss.Seed, "random seed")
	flag.BoolVar(&ss.RandStart, "randstart", ss.RandStart, "random start cells")
	flag.StringVar(&ss.ImgOrder, "imgorder", ss.ImgOrder, "channel order for the image key: none, first, last, auto")
	flag.StringVar(&ss.LogFile, "eplog", ss.LogFile, "episode log file to save, empty = don't save")
	flag.Parse()
	if err := ss.Config(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := ss.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
