/*
 * xtb.go, part of gofes.
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

//To use this part of the library you need an xtb-compatible MD engine,
//which must be obtained separately. Please cite its references if you use
//it.

package dynamics

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"

	"github.com/rmera/gofes"
)

//Biaser is what the engine needs from a bias potential: its value and
//gradient at a CV value (evaluated against everything accumulated so
//far), plus the input block that describes it to the engine.
type Biaser interface {
	Energy(q float64) float64
	Gradient(q float64) float64
	Block(cv fes.CV) string
}

const engineName = "XTB"

//XTBHandle drives one xtb-compatible MD engine process. It builds the
//input files, runs the program and locates its outputs. One handle per
//run directory; independent runs in separate directories don't share any
//state.
type XTBHandle struct {
	command   string
	inputname string
	workdir   string
	nCPU      int
	options   []string
}

//NewXTBHandle returns a handle with the default settings.
func NewXTBHandle() *XTBHandle {
	run := new(XTBHandle)
	run.SetDefaults()
	return run
}

//SetDefaults sets the command to "xtb" (expected in the PATH) and the
//CPUs to half the logical CPUs of the machine.
func (O *XTBHandle) SetDefaults() {
	O.command = os.ExpandEnv("xtb")
	O.nCPU = runtime.NumCPU() / 2
	if O.nCPU < 1 {
		O.nCPU = 1
	}
	O.inputname = "gofes"
}

//SetnCPU sets the number of CPUs to be used.
func (O *XTBHandle) SetnCPU(cpu int) { O.nCPU = cpu }

//Command returns the name of the engine executable.
func (O *XTBHandle) Command() string { return O.command }

//SetCommand sets the name or path of the engine executable.
func (O *XTBHandle) SetCommand(name string) { O.command = name }

//SetName sets the base name for the input and output files.
func (O *XTBHandle) SetName(name string) { O.inputname = name }

//SetWorkDir sets the directory where the engine runs. It is created if
//absent.
func (O *XTBHandle) SetWorkDir(dir string) { O.workdir = dir }

func (O *XTBHandle) path(name string) string {
	if O.workdir == "" {
		return name
	}
	return filepath.Join(O.workdir, name)
}

//BuildInput writes the geometry and the engine input for one MD run:
//the $md block from S, the nonbonded settings, and, if bias is not nil,
//the bias block for the collective variable cv. It validates S before
//writing anything.
func (O *XTBHandle) BuildInput(coords *v3.Matrix, atoms chem.AtomMultiCharger, S *Sim, cv fes.CV, bias Biaser) error {
	if atoms == nil || coords == nil {
		return Error{fes.ErrNilData, engineName, O.inputname, []string{"BuildInput"}, true}
	}
	if err := S.Check(); err != nil {
		return errDecorate(err, "BuildInput")
	}
	if bias != nil && cv == nil {
		return Error{"a bias requires a collective variable", engineName, O.inputname, []string{"BuildInput"}, true}
	}
	if O.workdir != "" {
		if err := os.MkdirAll(O.workdir, 0755); err != nil {
			return Error{err.Error(), engineName, O.inputname, []string{"BuildInput"}, true}
		}
	}
	err := chem.XYZFileWrite(O.path(O.inputname+".xyz"), coords, atoms)
	if err != nil {
		return Error{"can't write geometry: " + err.Error(), engineName, O.inputname, []string{"BuildInput"}, true}
	}
	xcontrol, err := os.Create(O.path(O.inputname + ".inp"))
	if err != nil {
		return Error{"can't create input: " + err.Error(), engineName, O.inputname, []string{"BuildInput"}, true}
	}
	defer xcontrol.Close()
	fmt.Fprintf(xcontrol, "$md\n temp=%5.3f\n time=%8.4f\n step=%5.3f\n dump=%8.4f\n", S.Temperature, S.TimePs(), S.Timestep, S.DumpFs())
	if S.Tau > 0 {
		fmt.Fprintf(xcontrol, " taut=%5.3f\n", S.Tau)
	}
	xcontrol.WriteString(" nvt=true\n velo=false\n$end\n")
	if S.Cutoff > 0 {
		fmt.Fprintf(xcontrol, "$cutoff\n rcut=%5.3f\n shift=%t\n switch=%t\n$end\n", S.Cutoff, S.ShiftElec, S.SwitchElec)
	}
	if bias != nil {
		xcontrol.WriteString(bias.Block(cv))
	}
	multi := S.Multi
	if multi == 0 {
		multi = 1
	}
	O.options = make([]string, 0, 6)
	O.options = append(O.options, O.command)
	O.options = append(O.options, O.inputname+".xyz")
	O.options = append(O.options, fmt.Sprintf("-c %d", S.Charge))
	O.options = append(O.options, fmt.Sprintf("-u %d", multi-1))
	if O.nCPU > 1 {
		O.options = append(O.options, fmt.Sprintf("-P %d", O.nCPU))
	}
	if S.ParamFile != "" {
		O.options = append(O.options, "--param "+S.ParamFile)
	}
	O.options = append(O.options, "--omd")
	return nil
}

//Run runs the engine on the input built before, waiting for it to finish
//or not depending on wait. Not waiting only works on unix-like systems,
//as it uses sh and nohup.
func (O *XTBHandle) Run(wait bool) error {
	com := fmt.Sprintf(" %s --input %s.inp %s > %s.out 2>&1",
		O.options[1], O.inputname, strings.Join(O.options[2:], " "), O.inputname)
	var err error
	if wait {
		log.Printf("%s", O.command+com)
		command := exec.Command("sh", "-c", O.command+com)
		command.Dir = O.workdir
		err = command.Run()
	} else {
		command := exec.Command("sh", "-c", "nohup "+O.command+com)
		command.Dir = O.workdir
		err = command.Start()
	}
	if err != nil {
		return Error{"engine didn't run: " + err.Error(), engineName, O.inputname, []string{"exec", "Run"}, true}
	}
	//for a background run the output is not there yet; the caller checks
	//the results when it collects them.
	if wait && !O.normalTermination() {
		return Error{"engine terminated abnormally", engineName, O.inputname, []string{"Run"}, true}
	}
	return nil
}

//Trajectory returns the path of the multi-frame XYZ trajectory the engine
//wrote for the last run.
func (O *XTBHandle) Trajectory() string {
	return O.path(O.inputname + ".trj")
}

//LastGeometry returns the last recorded frame of the engine trajectory.
func (O *XTBHandle) LastGeometry() (*v3.Matrix, error) {
	name := O.Trajectory()
	if _, err := os.Stat(name); err != nil {
		return nil, Error{fes.ErrMissingTrajectory + ": " + name, engineName, O.inputname, []string{"LastGeometry"}, true}
	}
	mol, err := chem.XYZFileRead(name)
	if err != nil {
		return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), engineName, O.inputname, []string{"LastGeometry"}, true}
	}
	if len(mol.Coords) == 0 {
		return nil, Error{fes.ErrUnreadableOutput + ": empty trajectory", engineName, O.inputname, []string{"LastGeometry"}, true}
	}
	return mol.Coords[len(mol.Coords)-1], nil
}

//normalTermination checks the tail of the engine log for the usual
//termination messages.
func (O *XTBHandle) normalTermination() bool {
	out := O.path(O.inputname + ".out")
	if searchBackwards("normal termination of x", out) != "" {
		return true
	}
	if searchBackwards("abnormal termination of x", out) == "" {
		//no abnormal message either; engines that log neither get the
		//benefit of the doubt as long as they wrote a trajectory.
		_, err := os.Stat(O.Trajectory())
		return err == nil
	}
	return false
}

//searchBackwards searches a file from the end for a string. Returns the
//line containing the string, or an empty string.
func searchBackwards(str, filename string) string {
	var ini int64 = 0
	var end int64 = 0
	first := true
	buf := make([]byte, 1)
	f, err := os.Open(filename)
	if err != nil {
		return ""
	}
	defer f.Close()
	var i int64 = 1
	for ; ; i++ {
		if _, err := f.Seek(-1*i, 2); err != nil {
			return ""
		}
		if _, err := f.Read(buf); err != nil {
			return ""
		}
		if buf[0] == byte('\n') && !first {
			first = true
		} else if buf[0] == byte('\n') && end == 0 {
			end = i
		} else if buf[0] == byte('\n') && ini == 0 {
			ini = i
			f.Seek(-1*ini, 2)
			bufF := make([]byte, ini-end)
			f.Read(bufF)
			if strings.Contains(string(bufF), str) {
				return string(bufF)
			}
			end = 0
			ini = 0
		}
	}
}
