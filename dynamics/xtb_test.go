/*
 * xtb_test.go, part of gofes.
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
	"strings"
	"testing"

	chem "github.com/rmera/gochem"

	"github.com/rmera/gofes"
	"github.com/rmera/gofes/meta"
	"github.com/rmera/gofes/umbrella"
)

const waterXYZ = `3
water
O  0.000000  0.000000  0.117300
H  0.000000  0.757200 -0.469200
H  0.000000 -0.757200 -0.469200
`

func waterMol(Te *testing.T) *chem.Molecule {
	name := filepath.Join(Te.TempDir(), "water.xyz")
	if err := os.WriteFile(name, []byte(waterXYZ), 0644); err != nil {
		Te.Fatal(err)
	}
	mol, err := chem.XYZFileRead(name)
	if err != nil {
		Te.Fatal(err)
	}
	mol.SetCharge(0)
	mol.SetMulti(1)
	return mol
}

func TestBuildInput(Te *testing.T) {
	fmt.Println("Engine input test!")
	mol := waterMol(Te)
	wd := filepath.Join(Te.TempDir(), "run")
	h := NewXTBHandle()
	h.SetWorkDir(wd)
	S := goodSim()
	cv, err := fes.NewAngle(1, 0, 2)
	if err != nil {
		Te.Fatal(err)
	}
	u, err := umbrella.New(104.5, 0.02)
	if err != nil {
		Te.Fatal(err)
	}
	if err := h.BuildInput(mol.Coords[0], mol, S, cv, u); err != nil {
		Te.Fatal(err)
	}
	inp, err := os.ReadFile(filepath.Join(wd, "gofes.inp"))
	if err != nil {
		Te.Fatal(err)
	}
	text := string(inp)
	fmt.Print(text)
	for _, want := range []string{"$md", "temp=298.150", "nvt=true", "$constrain", "angle: 2,1,3", "$end"} {
		if !strings.Contains(text, want) {
			Te.Errorf("engine input misses '%s'", want)
		}
	}
	if _, err := os.Stat(filepath.Join(wd, "gofes.xyz")); err != nil {
		Te.Error("geometry file not written")
	}
	//a bias without a collective variable makes no sense
	if err := h.BuildInput(mol.Coords[0], mol, S, nil, u); err == nil {
		Te.Error("bias without a collective variable accepted")
	}
	//and a metadynamics bias lands in the same input machinery
	b, _ := meta.NewBias(15, 1)
	b.Add(100)
	if err := h.BuildInput(mol.Coords[0], mol, S, cv, b); err != nil {
		Te.Error(err)
	}
	inp2, err := os.ReadFile(filepath.Join(wd, "gofes.inp"))
	if err != nil {
		Te.Fatal(err)
	}
	if !strings.Contains(string(inp2), "$metadyn") {
		Te.Error("metadynamics block not written")
	}
}

//A stand-in engine: copies the geometry as a one-frame trajectory and
//logs a normal termination, after an optional delay.
const fakeEngine = `#!/bin/sh
if [ -n "$FAKE_ENGINE_DELAY" ]; then
	sleep "$FAKE_ENGINE_DELAY"
fi
echo "fake engine starting"
cp gofes.xyz gofes.trj
echo "normal termination of xtb"
`

func TestRun(Te *testing.T) {
	fmt.Println("Engine run test!")
	mol := waterMol(Te)
	wd := filepath.Join(Te.TempDir(), "run")
	script := filepath.Join(Te.TempDir(), "fakextb")
	if err := os.WriteFile(script, []byte(fakeEngine), 0755); err != nil {
		Te.Fatal(err)
	}
	h := NewXTBHandle()
	h.SetWorkDir(wd)
	h.SetCommand(script)
	if err := h.BuildInput(mol.Coords[0], mol, goodSim(), nil, nil); err != nil {
		Te.Fatal(err)
	}
	if err := h.Run(true); err != nil {
		Te.Error(err)
	}
	if _, err := h.LastGeometry(); err != nil {
		Te.Error(err)
	}
	//a background run returns as soon as the engine starts; there is no
	//output to judge yet, so starting cleanly is not a failure.
	wd2 := filepath.Join(Te.TempDir(), "bg")
	h2 := NewXTBHandle()
	h2.SetWorkDir(wd2)
	h2.SetCommand(script)
	if err := h2.BuildInput(mol.Coords[0], mol, goodSim(), nil, nil); err != nil {
		Te.Fatal(err)
	}
	os.Setenv("FAKE_ENGINE_DELAY", "2")
	defer os.Unsetenv("FAKE_ENGINE_DELAY")
	if err := h2.Run(false); err != nil {
		Te.Errorf("background run reported as failed the moment it started: %s", err.Error())
	}
}

func TestLastGeometry(Te *testing.T) {
	fmt.Println("Last geometry test!")
	wd := Te.TempDir()
	h := NewXTBHandle()
	h.SetWorkDir(wd)
	//a fake 2-frame engine trajectory
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
`
	if err := os.WriteFile(h.Trajectory(), []byte(traj), 0644); err != nil {
		Te.Fatal(err)
	}
	last, err := h.LastGeometry()
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(last.At(0, 2)-0.2173) > 1e-6 {
		Te.Errorf("want the last frame, got z=%f", last.At(0, 2))
	}
	//no trajectory, no geometry
	h2 := NewXTBHandle()
	h2.SetWorkDir(filepath.Join(wd, "empty"))
	if _, err := h2.LastGeometry(); err == nil {
		Te.Error("missing trajectory accepted")
	}
}
