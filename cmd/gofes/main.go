/*
 * main.go, part of gofes.
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

/*To the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	chem "github.com/rmera/gochem"

	"github.com/rmera/gofes"
	"github.com/rmera/gofes/dynamics"
	"github.com/rmera/gofes/meta"
	"github.com/rmera/gofes/umbrella"
)

//Global variables... Sometimes, you gotta use'em
var verb int

//If the verbosity level is at least vref, prints the d arguments to
//stderr. Otherwise, does nothing.
func LogV(vref int, d ...interface{}) {
	if verb >= vref {
		fmt.Fprintln(os.Stderr, d...)
	}

}

func CErr(err error, info string) {
	if err != nil {
		log.Fatal(err, " ", info)
	}
}

//parseCV builds a collective variable from a "kind:i,j,..." text, with
//1-based atom indices as in the engine input.
func parseCV(text string) (fes.CV, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%s: want kind:i,j,... got %s", fes.ErrConfiguration, text)
	}
	fields := strings.Split(parts[1], ",")
	atoms := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, n-1)
	}
	switch strings.ToLower(parts[0]) {
	case "distance":
		if len(atoms) != 2 {
			return nil, fmt.Errorf("%s: a distance takes 2 atoms", fes.ErrInvalidIndices)
		}
		return fes.NewDistance(atoms[0], atoms[1])
	case "angle":
		if len(atoms) != 3 {
			return nil, fmt.Errorf("%s: an angle takes 3 atoms", fes.ErrInvalidIndices)
		}
		return fes.NewAngle(atoms[0], atoms[1], atoms[2])
	case "dihedral":
		if len(atoms) != 4 {
			return nil, fmt.Errorf("%s: a dihedral takes 4 atoms", fes.ErrInvalidIndices)
		}
		return fes.NewDihedral(atoms[0], atoms[1], atoms[2], atoms[3])
	}
	return nil, fmt.Errorf("%s: unknown collective variable kind %s", fes.ErrConfiguration, parts[0])
}

func readMol(geoname string, charge, multi int) (*chem.Molecule, error) {
	var mol *chem.Molecule
	var err error
	extension := strings.TrimPrefix(strings.ToLower(filepath.Ext(geoname)), ".")
	switch extension {
	case "gro":
		mol, err = chem.GroFileRead(geoname)
	case "pdb":
		mol, err = chem.PDBFileRead(geoname, false)
	default:
		mol, err = chem.XYZFileRead(geoname)
	}
	if err != nil {
		return nil, err
	}
	mol.SetCharge(charge)
	mol.SetMulti(multi)
	return mol, nil
}

func main() {
	//There will be _tons_ of flags, but they are meant not to be needed the 99% of the time.
	cvtext := flag.String("cv", "", "the collective variable, as kind:i,j,... with 1-based atom indices (e.g. dihedral:5,7,9,15)")
	cpus := flag.Int("cpus", -1, "the total CPUs used for the MD runs. If a number <0 is given, all logical CPUs are used")
	engine := flag.String("engine", "xtb", "the command for the external MD engine")
	charge := flag.Int("charge", 0, "charge of the system")
	multi := flag.Int("multi", 1, "multiplicity of the system")
	verbose := flag.Int("verbose", 0, "Level of verbosity, the higher, the more verbose.")
	temp := flag.Float64("temp", 298.15, "the temperature of the simulations, in K")
	mdtime := flag.Float64("time", 10, "the total simulation time per run, in ps")
	timestep := flag.Float64("step", 1.0, "the integration timestep, in fs")
	record := flag.Int("record", 10, "record a frame every this many steps")
	stride := flag.Int("stride", 1, "integration steps between recorded frames, used for the step indices of series")
	hillw := flag.Float64("hillwidth", 15.0, "metadynamics, the width of the deposited Gaussian hills")
	hillh := flag.Float64("hillheight", 1.0, "metadynamics, the height of the deposited hills, in kJ/mol")
	updates := flag.Int("updates", 100, "metadynamics, the number of hill depositions")
	qmin := flag.Float64("qmin", -180, "the lower end of the reaction coordinate range")
	qmax := flag.Float64("qmax", 180, "the upper end of the reaction coordinate range")
	bins := flag.Int("bins", 72, "the number of bins/grid points along the reaction coordinate")
	windows := flag.Int("windows", 12, "umbrella sampling, the number of windows")
	k := flag.Float64("k", 0.05, "umbrella sampling, the harmonic force constant")
	wham := flag.String("wham", "wham", "umbrella sampling, the command for the external WHAM program")
	tol := flag.Float64("tol", 1e-6, "umbrella sampling, the WHAM convergence tolerance")
	plots := flag.Bool("plots", true, "write PNG plots along with the data files")
	flag.Parse()
	verb = *verbose
	args := flag.Args()
	if len(args) < 2 {
		fmt.Printf("Use:\n  gofes [FLAGS] task file\nWhere task is one of: md, cv, metad, us, wham, fes\n")
		fmt.Printf("and file is a geometry (md, metad, us), a trajectory (cv),\na manifest (wham) or a hills file (fes)\n\nFlags:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	task := args[0]
	if *cpus < 0 {
		*cpus = runtime.NumCPU()
	}
	sim := &dynamics.Sim{
		Temperature: *temp,
		Timestep:    *timestep,
		Steps:       int(*mdtime * 1000 / *timestep),
		RecordEvery: *record,
		Charge:      *charge,
		Multi:       *multi,
	}
	var cv fes.CV
	var err error
	if *cvtext != "" {
		cv, err = parseCV(*cvtext)
		CErr(err, "main")
	}
	switch task {
	case "md":
		mols := make([]*chem.Molecule, 0, len(args)-1)
		for _, g := range args[1:] {
			mol, err := readMol(g, *charge, *multi)
			CErr(err, "main/md")
			mols = append(mols, mol)
		}
		trajs, err := dynamics.Trajectories(mols, sim, cv, ".", *engine, *cpus)
		CErr(err, "main/md")
		for _, t := range trajs {
			fmt.Println(t)
		}
	case "cv":
		if cv == nil {
			CErr(fmt.Errorf("%s: the cv task needs a -cv flag", fes.ErrConfiguration), "main/cv")
		}
		steps, vals, err := fes.FileSeries(args[1], cv, *stride)
		CErr(err, "main/cv")
		w, err := fes.NewSeriesW("cv.dat")
		CErr(err, "main/cv")
		for i, v := range vals {
			CErr(w.WNext(steps[i], v), "main/cv")
		}
		w.Close()
		LogV(1, "wrote", len(vals), "values to cv.dat")
		if *plots {
			CErr(fes.SeriesPlot(steps, vals, "Collective variable", cv.String(), "cv"), "main/cv")
		}
	case "metad":
		err = metadynamics(args[1], sim, cv, *engine, *cpus, *hillw, *hillh, *updates, *qmin, *qmax, *bins, *plots)
		CErr(err, "main/metad")
	case "us":
		err = umbrellaSampling(args[1], sim, cv, *engine, *wham, *cpus, *windows, *k, *qmin, *qmax, *bins, *tol, *temp, *plots)
		CErr(err, "main/us")
	case "wham":
		P := &umbrella.WHAMParams{Min: *qmin, Max: *qmax, Bins: *bins, Tol: *tol, Temperature: *temp}
		prof, err := runWHAM(args[1], *wham, P)
		CErr(err, "main/wham")
		CErr(prof.FileWrite("fes.dat"), "main/wham")
		if *plots {
			CErr(prof.Plot("Free energy", "q", "fes"), "main/wham")
		}
	case "fes":
		hills, header, err := meta.ReadHills(args[1])
		CErr(err, "main/fes")
		LogV(1, "read", len(hills), "hills, header:", header)
		grid, err := fes.Grid(*qmin, *qmax, *bins)
		CErr(err, "main/fes")
		prof, err := meta.Reconstruct(hills, grid)
		CErr(err, "main/fes")
		CErr(prof.FileWrite("fes.dat"), "main/fes")
		if *plots {
			CErr(prof.Plot("Free energy", "q", "fes"), "main/fes")
		}
	default:
		CErr(fmt.Errorf("%s: unknown task %s", fes.ErrConfiguration, task), "main")
	}
}

//metadynamics runs a chunked metadynamics simulation, persists the hills
//durably after every deposition, and writes the reconstructed
//free-energy profile at the end.
func metadynamics(geoname string, sim *dynamics.Sim, cv fes.CV, engine string, cpus int, width, height float64, updates int, qmin, qmax float64, bins int, plots bool) error {
	if cv == nil {
		return fmt.Errorf("%s: the metad task needs a -cv flag", fes.ErrConfiguration)
	}
	mol, err := readMol(geoname, sim.Charge, sim.Multi)
	if err != nil {
		return err
	}
	bias, err := meta.NewBias(width, height)
	if err != nil {
		return err
	}
	hw, err := meta.NewHillsW("hills.hlz", width, height, cv.String())
	if err != nil {
		return err
	}
	r, err := dynamics.NewRunner(mol, sim, cv)
	if err != nil {
		return err
	}
	r.Engine().SetWorkDir("metad")
	r.Engine().SetnCPU(cpus)
	if engine != "" {
		r.Engine().SetCommand(engine)
	}
	so, err := dynamics.NewSeriesObs("cv.dat")
	if err != nil {
		return err
	}
	r.Register(so)
	r.Register(dynamics.NewLogObs(10))
	stepsPerUpdate := sim.Steps / updates
	LogV(1, "depositing", updates, "hills, one every", stepsPerUpdate, "steps")
	err = r.Metadynamics(bias, hw, updates, stepsPerUpdate)
	hw.Close()
	if err != nil {
		return err
	}
	grid, err := fes.Grid(qmin, qmax, bins)
	if err != nil {
		return err
	}
	prof, err := bias.Reconstruct(grid)
	if err != nil {
		return err
	}
	if err := prof.FileWrite("fes.dat"); err != nil {
		return err
	}
	if plots {
		return prof.Plot("Free energy", cv.String(), "fes")
	}
	return nil
}

//umbrellaSampling runs the umbrella windows in parallel, writes the
//manifest and the per-window histograms, runs the external WHAM program
//and writes the resulting free-energy profile.
func umbrellaSampling(geoname string, sim *dynamics.Sim, cv fes.CV, engine, wham string, cpus, windows int, k, qmin, qmax float64, bins int, tol, temp float64, plots bool) error {
	if cv == nil {
		return fmt.Errorf("%s: the us task needs a -cv flag", fes.ErrConfiguration)
	}
	mol, err := readMol(geoname, sim.Charge, sim.Multi)
	if err != nil {
		return err
	}
	P := &umbrella.WHAMParams{Min: qmin, Max: qmax, Bins: bins, Tol: tol, Temperature: temp}
	if err := P.Check(); err != nil {
		return err
	}
	centers, err := fes.Grid(qmin, qmax, windows)
	if err != nil {
		return err
	}
	umbrellas := make([]*umbrella.Umbrella, 0, windows)
	for _, q0 := range centers {
		u, err := umbrella.New(q0, k)
		if err != nil {
			return err
		}
		umbrellas = append(umbrellas, u)
	}
	entries, err := dynamics.Windows(mol, sim, cv, umbrellas, "us", engine, cpus)
	if err != nil {
		return err
	}
	entries, skipped, err := umbrella.Collect(entries)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		LogV(0, "skipped window:", s)
	}
	if plots {
		if err := windowHistograms(entries, qmin, qmax, bins); err != nil {
			return err
		}
	}
	if err := umbrella.WriteManifest("manifest.dat", entries); err != nil {
		return err
	}
	prof, err := runWHAM("manifest.dat", wham, P)
	if err != nil {
		return err
	}
	if err := prof.FileWrite("fes.dat"); err != nil {
		return err
	}
	if plots {
		return prof.Plot("Free energy", cv.String(), "fes")
	}
	return nil
}

//windowHistograms plots the per-window CV distributions, a quick check
//for overlap between adjacent windows.
func windowHistograms(entries []umbrella.Entry, qmin, qmax float64, bins int) error {
	counts := make([][]float64, 0, len(entries))
	var centers []float64
	for _, e := range entries {
		_, vals, err := fes.SeriesFileRead(e.Series)
		if err != nil {
			return err
		}
		c, h, err := fes.Histogram(vals, qmin, qmax, bins)
		if err != nil {
			return err
		}
		centers = c
		counts = append(counts, h)
	}
	return fes.HistogramsPlot(centers, counts, "Umbrella windows", "q", "windows")
}

//runWHAM executes the external WHAM program on a manifest and returns
//the min-shifted unbiased profile.
func runWHAM(manifest, command string, P *umbrella.WHAMParams) (*fes.Profile, error) {
	h := umbrella.NewWHAMHandle()
	if command != "" {
		h.SetCommand(command)
	}
	if err := h.Run(true, manifest, P); err != nil {
		return nil, err
	}
	return h.FreeEnergy()
}
