/*
 * runner_test.go, part of gofes.
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
	"math"
	"os"
	"path/filepath"
	"testing"

	v3 "github.com/rmera/gochem/v3"

	"github.com/rmera/gofes"
	"github.com/rmera/gofes/meta"
)

func TestSeriesObs(Te *testing.T) {
	fmt.Println("Series observer test!")
	name := filepath.Join(Te.TempDir(), "cv.dat")
	so, err := NewSeriesObs(name)
	if err != nil {
		Te.Fatal(err)
	}
	coords := v3.Zeros(1)
	states := []*State{
		{Step: 10, Coords: coords, CV: -178.2},
		{Step: 20, Coords: coords, CV: math.NaN()}, //no CV, nothing written
		{Step: 30, Coords: coords, CV: 33.4},
	}
	for _, s := range states {
		if err := so.Frame(s); err != nil {
			Te.Error(err)
		}
	}
	if err := so.Close(); err != nil {
		Te.Error(err)
	}
	steps, vals, err := fes.SeriesFileRead(name)
	if err != nil {
		Te.Fatal(err)
	}
	if len(steps) != 2 {
		Te.Fatalf("want 2 records, got %d", len(steps))
	}
	if steps[0] != 10 || steps[1] != 30 {
		Te.Errorf("wrong steps recorded: %v", steps)
	}
	if math.Abs(vals[1]-33.4) > 1e-6 {
		Te.Errorf("wrong value recorded: %f", vals[1])
	}
}

func TestTrajObs(Te *testing.T) {
	fmt.Println("Trajectory observer test!")
	name := filepath.Join(Te.TempDir(), "traj.stf")
	to, err := NewTrajObs(name, 2, nil)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		c := v3.Zeros(2)
		c.Set(1, 0, float64(i+1))
		if err := to.Frame(&State{Step: i * 10, Coords: c, CV: math.NaN()}); err != nil {
			Te.Error(err)
		}
	}
	if err := to.Close(); err != nil {
		Te.Error(err)
	}
	traj, closer, err := fes.OpenTraj(name)
	if err != nil {
		Te.Fatal(err)
	}
	defer closer()
	buf := v3.Zeros(2)
	frames := 0
	for {
		if err := traj.Next(buf); err != nil {
			if fes.IsLastFrame(err) {
				break
			}
			Te.Fatal(err)
		}
		frames++
		if math.Abs(buf.At(1, 0)-float64(frames)) > 1e-4 {
			Te.Errorf("frame %d: want x=%d, got %f", frames, frames, buf.At(1, 0))
		}
	}
	if frames != 3 {
		Te.Errorf("want 3 frames back, got %d", frames)
	}
}

//A series recorded during a run and one computed afterwards from the
//same trajectory must carry the same step column.
func TestObserveSteps(Te *testing.T) {
	fmt.Println("Frame step numbering test!")
	mol := waterMol(Te)
	cv, err := fes.NewAngle(1, 0, 2)
	if err != nil {
		Te.Fatal(err)
	}
	r, err := NewRunner(mol, goodSim(), cv)
	if err != nil {
		Te.Fatal(err)
	}
	wd := Te.TempDir()
	r.Engine().SetWorkDir(wd)
	traj := `3
frame 0
O  0.0  0.0  0.1173
H  0.0  0.7572 -0.4692
H  0.0 -0.7572 -0.4692
3
frame 1
O  0.0  0.0  0.2173
H  0.0  0.7572 -0.4692
H  0.0 -0.7572 -0.4692
3
frame 2
O  0.0  0.0  0.3173
H  0.0  0.7572 -0.4692
H  0.0 -0.7572 -0.4692
`
	if err := os.WriteFile(r.Engine().Trajectory(), []byte(traj), 0644); err != nil {
		Te.Fatal(err)
	}
	name := filepath.Join(wd, "cv.dat")
	so, err := NewSeriesObs(name)
	if err != nil {
		Te.Fatal(err)
	}
	r.Register(so)
	if err := r.observe(0); err != nil {
		Te.Fatal(err)
	}
	r.closeObservers()
	steps, vals, err := fes.SeriesFileRead(name)
	if err != nil {
		Te.Fatal(err)
	}
	wantSteps, wantVals, err := fes.FileSeries(r.Engine().Trajectory(), cv, goodSim().RecordEvery)
	if err != nil {
		Te.Fatal(err)
	}
	if len(steps) != len(wantSteps) {
		Te.Fatalf("want %d records, got %d", len(wantSteps), len(steps))
	}
	for i := range steps {
		if steps[i] != wantSteps[i] {
			Te.Errorf("record %d: recorded step %d, recomputed step %d", i, steps[i], wantSteps[i])
		}
		if math.Abs(vals[i]-wantVals[i]) > 1e-4 {
			Te.Errorf("record %d: recorded value %f, recomputed %f", i, vals[i], wantVals[i])
		}
	}
}

func TestRunnerValidation(Te *testing.T) {
	fmt.Println("Runner validation test!")
	mol := waterMol(Te)
	if _, err := NewRunner(nil, goodSim(), nil); err == nil {
		Te.Error("nil molecule accepted")
	}
	bad := goodSim()
	bad.Timestep = 0
	if _, err := NewRunner(mol, bad, nil); err == nil {
		Te.Error("bad simulation parameters accepted")
	}
	cv, err := fes.NewAngle(1, 0, 2)
	if err != nil {
		Te.Fatal(err)
	}
	r, err := NewRunner(mol, goodSim(), cv)
	if err != nil {
		Te.Fatal(err)
	}
	b, _ := meta.NewBias(15, 1)
	//all of these must fail before anything touches the engine
	if err := r.Metadynamics(nil, nil, 10, 100); err == nil {
		Te.Error("nil bias accepted")
	}
	if err := r.Metadynamics(b, nil, 0, 100); err == nil {
		Te.Error("zero updates accepted")
	}
	rnocv, err := NewRunner(mol, goodSim(), nil)
	if err != nil {
		Te.Fatal(err)
	}
	if err := rnocv.Metadynamics(b, nil, 10, 100); err == nil {
		Te.Error("metadynamics without a collective variable accepted")
	}
}
