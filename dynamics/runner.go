/*
 * runner.go, part of gofes.
 *
 * Copyright 2023 Raul Mera <rmera{at}usach(dot)cl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package dynamics

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/stf"
	v3 "github.com/rmera/gochem/v3"

	"github.com/rmera/gofes"
	"github.com/rmera/gofes/meta"
	"github.com/rmera/gofes/umbrella"
)

//State is the explicit per-frame context handed to every observer: the
//step index, the coordinates of the frame, and the value of the
//collective variable (NaN if the run has none). Observers must not keep
//the Coords pointer past the call; the buffer is reused.
type State struct {
	Step   int
	Coords *v3.Matrix
	CV     float64
}

//An Observer is invoked once per recorded frame, in registration order,
//after the frame becomes available. Close is called on every exit path
//of a run, normal or not, so file-backed observers never leak an open
//handle.
type Observer interface {
	Frame(s *State) error
	Close() error
}

//TrajObs records the visited configurations into an STF trajectory.
type TrajObs struct {
	w *stf.StfW
}

//NewTrajObs creates an STF trajectory observer writing to name, for
//frames of natoms atoms.
func NewTrajObs(name string, natoms int, header map[string]string) (*TrajObs, error) {
	w, err := stf.NewWriter(name, natoms, header)
	if err != nil {
		return nil, errDecorate(err, "NewTrajObs")
	}
	return &TrajObs{w: w}, nil
}

func (T *TrajObs) Frame(s *State) error {
	return T.w.WNext(s.Coords)
}

func (T *TrajObs) Close() error {
	T.w.Close()
	return nil
}

//SeriesObs writes the (step, CV value) series of a run to a two-column
//plain-text file.
type SeriesObs struct {
	w *fes.SeriesW
}

//NewSeriesObs creates a series observer writing to name.
func NewSeriesObs(name string) (*SeriesObs, error) {
	w, err := fes.NewSeriesW(name)
	if err != nil {
		return nil, errDecorate(err, "NewSeriesObs")
	}
	return &SeriesObs{w: w}, nil
}

func (S *SeriesObs) Frame(s *State) error {
	if math.IsNaN(s.CV) {
		return nil
	}
	return S.w.WNext(s.Step, s.CV)
}

func (S *SeriesObs) Close() error {
	S.w.Close()
	return nil
}

//LogObs prints one line per every nth recorded frame to the standard
//error.
type LogObs struct {
	every int
	seen  int
}

//NewLogObs returns a screen logger that reports every nth frame.
func NewLogObs(every int) *LogObs {
	if every < 1 {
		every = 1
	}
	return &LogObs{every: every}
}

func (L *LogObs) Frame(s *State) error {
	L.seen++
	if L.seen%L.every != 0 {
		return nil
	}
	if math.IsNaN(s.CV) {
		fmt.Fprintf(os.Stderr, "step %-10d\n", s.Step)
	} else {
		fmt.Fprintf(os.Stderr, "step %-10d cv %10.4f\n", s.Step, s.CV)
	}
	return nil
}

func (L *LogObs) Close() error { return nil }

//Runner drives one MD run (unbiased, restrained or metadynamics) through
//the external engine and feeds the recorded frames to its observers, in
//registration order. A Runner is good for one run; independent runs get
//independent Runners and work directories, which is what makes umbrella
//windows embarrassingly parallel.
type Runner struct {
	sim  *Sim
	cv   fes.CV
	mol  *chem.Molecule
	h    *XTBHandle
	bias Biaser
	obs  []Observer
}

//NewRunner returns a runner for the molecule mol under the parameters
//sim, tracking cv (which may be nil for plain unbiased runs). sim is
//validated here, before anything starts.
func NewRunner(mol *chem.Molecule, sim *Sim, cv fes.CV) (*Runner, error) {
	if mol == nil || sim == nil {
		return nil, Error{fes.ErrNilData, "", "", []string{"NewRunner"}, true}
	}
	if err := sim.Check(); err != nil {
		return nil, errDecorate(err, "NewRunner")
	}
	return &Runner{sim: sim, cv: cv, mol: mol, h: NewXTBHandle()}, nil
}

//Engine returns the engine handle, so callers can set the command, work
//directory or CPU count.
func (R *Runner) Engine() *XTBHandle { return R.h }

//SetBias sets the bias applied during the run (a harmonic umbrella or an
//accumulated hill list). nil means an unbiased run.
func (R *Runner) SetBias(b Biaser) { R.bias = b }

//Register appends an observer. Observers run in registration order.
func (R *Runner) Register(o Observer) { R.obs = append(R.obs, o) }

func (R *Runner) closeObservers() {
	for _, o := range R.obs {
		if err := o.Close(); err != nil {
			log.Printf("closing observer: %s", err.Error())
		}
	}
}

//observe streams every recorded frame of the engine trajectory through
//the observers, with step indices starting at offset. Frames are
//numbered offset, offset+RecordEvery, ... so a series written here
//matches one computed later from the same trajectory with fes.Series.
func (R *Runner) observe(offset int) error {
	traj, closer, err := fes.OpenTraj(R.h.Trajectory())
	if err != nil {
		return errDecorate(err, "Runner.observe")
	}
	defer closer()
	buf := v3.Zeros(traj.Len())
	for i := 0; ; i++ {
		err := traj.Next(buf)
		if err != nil {
			if fes.IsLastFrame(err) {
				return nil
			}
			return errDecorate(err, "Runner.observe")
		}
		s := &State{Step: offset + i*R.sim.RecordEvery, Coords: buf, CV: math.NaN()}
		if R.cv != nil {
			q, err := R.cv.Eval(buf)
			if err != nil {
				return errDecorate(err, "Runner.observe")
			}
			s.CV = q
		}
		for _, o := range R.obs {
			if err := o.Frame(s); err != nil {
				return errDecorate(err, "Runner.observe")
			}
		}
	}
}

//Run performs one full run: builds the engine input (with the bias, if
//any), executes the engine for the configured number of steps, and
//streams the recorded frames through the observers. Observers are closed
//on every exit path. There is no retry: an engine failure aborts the run.
func (R *Runner) Run() error {
	defer R.closeObservers()
	err := R.h.BuildInput(R.mol.Coords[0], R.mol, R.sim, R.cv, R.bias)
	if err != nil {
		return errDecorate(err, "Runner.Run")
	}
	if err := R.h.Run(true); err != nil {
		return errDecorate(err, "Runner.Run")
	}
	return R.observe(0)
}

//Metadynamics performs a metadynamics run as a sequence of engine chunks:
//every stepsPerUpdate integration steps the engine stops, the collective
//variable of the latest configuration is read, a new hill centered there
//is appended to b and durably written to hw, and the engine restarts from
//that configuration under the extended bias. hw may be nil to skip
//persistence (not recommended). Observers see the concatenated recorded
//frames of all chunks.
func (R *Runner) Metadynamics(b *meta.Bias, hw *meta.HillsW, updates, stepsPerUpdate int) error {
	defer R.closeObservers()
	if b == nil {
		return Error{fes.ErrNilData, "", "", []string{"Runner.Metadynamics"}, true}
	}
	if R.cv == nil {
		return Error{"metadynamics requires a collective variable", "", "", []string{"Runner.Metadynamics"}, true}
	}
	if updates < 1 || stepsPerUpdate < 1 {
		return Error{fmt.Sprintf("%s: %d updates of %d steps", fes.ErrConfiguration, updates, stepsPerUpdate), "", "", []string{"Runner.Metadynamics"}, true}
	}
	chunk := *R.sim
	chunk.Steps = stepsPerUpdate
	if chunk.RecordEvery > stepsPerUpdate {
		chunk.RecordEvery = stepsPerUpdate
	}
	coords := R.mol.Coords[0]
	for u := 0; u < updates; u++ {
		if err := R.h.BuildInput(coords, R.mol, &chunk, R.cv, b); err != nil {
			return errDecorate(err, "Runner.Metadynamics")
		}
		if err := R.h.Run(true); err != nil {
			return errDecorate(err, "Runner.Metadynamics")
		}
		if err := R.observe(u * stepsPerUpdate); err != nil {
			return errDecorate(err, "Runner.Metadynamics")
		}
		last, err := R.h.LastGeometry()
		if err != nil {
			return errDecorate(err, "Runner.Metadynamics")
		}
		q, err := R.cv.Eval(last)
		if err != nil {
			return errDecorate(err, "Runner.Metadynamics")
		}
		b.Add(q)
		if hw != nil {
			if err := hw.WNext(b.Centers()); err != nil {
				return errDecorate(err, "Runner.Metadynamics")
			}
		}
		coords = last
	}
	return nil
}

//Trajectories runs one independent unbiased MD trajectory per starting
//geometry, in parallel, each in its own subdirectory of dir. Each run
//records an STF trajectory (traj.stf) and, if cv is not nil, a CV series
//(cv.dat). It returns the paths of the recorded trajectories.
func Trajectories(geoms []*chem.Molecule, sim *Sim, cv fes.CV, dir, engine string, cpus int) ([]string, error) {
	if len(geoms) == 0 {
		return nil, Error{fes.ErrNilData, "", "", []string{"Trajectories"}, true}
	}
	if err := sim.Check(); err != nil {
		return nil, errDecorate(err, "Trajectories")
	}
	rcpus := cpus / len(geoms)
	if rcpus < 1 {
		rcpus = 1
	}
	trajs := make([]string, len(geoms))
	errs := make([]error, len(geoms))
	var wg sync.WaitGroup
	for i, mol := range geoms {
		wg.Add(1)
		go func(i int, mol *chem.Molecule) {
			defer wg.Done()
			wd := filepath.Join(dir, fmt.Sprintf("traj%02d", i))
			errs[i] = runOne(mol, sim, cv, nil, wd, engine, rcpus, true)
			trajs[i] = filepath.Join(wd, "traj.stf")
		}(i, mol)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, errDecorate(err, fmt.Sprintf("Trajectories: run %d", i))
		}
	}
	return trajs, nil
}

//Windows runs one restrained MD trajectory per umbrella, in parallel,
//each in its own subdirectory of dir, and returns the manifest entries
//for the runs that finished. A window that fails is reported with a
//logged warning and left out of the entries; Windows only returns an
//error if every window failed.
func Windows(mol *chem.Molecule, sim *Sim, cv fes.CV, umbrellas []*umbrella.Umbrella, dir, engine string, cpus int) ([]umbrella.Entry, error) {
	if mol == nil || cv == nil || len(umbrellas) == 0 {
		return nil, Error{fes.ErrNilData, "", "", []string{"Windows"}, true}
	}
	if err := sim.Check(); err != nil {
		return nil, errDecorate(err, "Windows")
	}
	rcpus := cpus / len(umbrellas)
	if rcpus < 1 {
		rcpus = 1
	}
	errs := make([]error, len(umbrellas))
	var wg sync.WaitGroup
	for i, u := range umbrellas {
		wg.Add(1)
		go func(i int, u *umbrella.Umbrella) {
			defer wg.Done()
			wd := filepath.Join(dir, fmt.Sprintf("w%02d", i))
			errs[i] = runOne(mol, sim, cv, u, wd, engine, rcpus, false)
		}(i, u)
	}
	wg.Wait()
	entries := make([]umbrella.Entry, 0, len(umbrellas))
	for i, u := range umbrellas {
		if errs[i] != nil {
			log.Printf("Window %d (q0=%5.3f) failed and will be left out: %s", i, u.Q0, errs[i].Error())
			continue
		}
		entries = append(entries, umbrella.Entry{
			Series: filepath.Join(dir, fmt.Sprintf("w%02d", i), "cv.dat"),
			Q0:     u.Q0,
			K:      u.K,
		})
	}
	if len(entries) == 0 {
		return nil, Error{"all umbrella windows failed", "", "", []string{"Windows"}, true}
	}
	return entries, nil
}

//runOne sets up and executes a single run in its own work directory.
func runOne(mol *chem.Molecule, sim *Sim, cv fes.CV, bias Biaser, wd, engine string, cpus int, record bool) error {
	if err := os.MkdirAll(wd, 0755); err != nil {
		return Error{err.Error(), "", "", []string{"runOne"}, true}
	}
	r, err := NewRunner(mol, sim, cv)
	if err != nil {
		return errDecorate(err, "runOne")
	}
	r.Engine().SetWorkDir(wd)
	r.Engine().SetnCPU(cpus)
	if engine != "" {
		r.Engine().SetCommand(engine)
	}
	r.SetBias(bias)
	if record {
		to, err := NewTrajObs(filepath.Join(wd, "traj.stf"), mol.Len(), nil)
		if err != nil {
			return errDecorate(err, "runOne")
		}
		r.Register(to)
	}
	if cv != nil {
		so, err := NewSeriesObs(filepath.Join(wd, "cv.dat"))
		if err != nil {
			return errDecorate(err, "runOne")
		}
		r.Register(so)
	}
	return r.Run()
}
