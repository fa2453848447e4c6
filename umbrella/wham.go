/*
 * wham.go, part of gofes.
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

//To use this part of the library you need a WHAM implementation with the
//usual command-line contract, such as the Grossfield lab's wham program.
//Please cite it if you use it.

package umbrella

import (
	"fmt"
	"log"
	"os/exec"

	"github.com/rmera/gofes"
)

//WHAMParams holds the numerical settings for one invocation of the
//external combiner.
type WHAMParams struct {
	Min         float64 //lower edge of the histogram range
	Max         float64 //upper edge of the histogram range
	Bins        int
	Tol         float64 //convergence tolerance of the WHAM iterations
	Temperature float64 //K
	ErrAnalysis bool    //ask the combiner for bootstrap error analysis
}

//Check returns a non-nil error if the parameters make no physical sense.
//It is called before the external program runs, so a bad setup fails
//fast.
func (P *WHAMParams) Check() error {
	if P.Max <= P.Min {
		return Error{fmt.Sprintf("%s: WHAM range [%5.3f,%5.3f]", fes.ErrConfiguration, P.Min, P.Max), "", []string{"WHAMParams.Check"}, true}
	}
	if P.Bins < 2 {
		return Error{fmt.Sprintf("%s: %d WHAM bins", fes.ErrConfiguration, P.Bins), "", []string{"WHAMParams.Check"}, true}
	}
	if P.Tol <= 0 {
		return Error{fmt.Sprintf("%s: WHAM tolerance %g", fes.ErrConfiguration, P.Tol), "", []string{"WHAMParams.Check"}, true}
	}
	if P.Temperature <= 0 {
		return Error{fmt.Sprintf("%s: temperature %5.3f K", fes.ErrConfiguration, P.Temperature), "", []string{"WHAMParams.Check"}, true}
	}
	return nil
}

//WHAMHandle runs an external WHAM program. The command-line contract is:
//wham <min> <max> <bins> <tolerance> <temperature> <err-flag> <manifest>
//<output>, with the output a plain-text two-column (CV value, free
//energy) table.
type WHAMHandle struct {
	command  string
	workdir  string
	manifest string
	outname  string
}

//NewWHAMHandle returns a handle with the default command name ("wham"),
//expected in the PATH.
func NewWHAMHandle() *WHAMHandle {
	W := new(WHAMHandle)
	W.command = "wham"
	W.outname = "wham.out"
	return W
}

//SetCommand sets the name or path of the WHAM executable.
func (W *WHAMHandle) SetCommand(name string) { W.command = name }

//SetWorkDir sets the directory in which the program runs.
func (W *WHAMHandle) SetWorkDir(dir string) { W.workdir = dir }

//SetOutName sets the name of the free-energy table the program writes.
func (W *WHAMHandle) SetOutName(name string) { W.outname = name }

//OutName returns the name of the free-energy table.
func (W *WHAMHandle) OutName() string { return W.outname }

//Run invokes the external combiner on the given manifest with the given
//parameters, waiting for it to finish if wait is true.
func (W *WHAMHandle) Run(wait bool, manifest string, P *WHAMParams) error {
	if err := P.Check(); err != nil {
		return errDecorate(err, "WHAMHandle.Run")
	}
	errflag := 0
	if P.ErrAnalysis {
		errflag = 1
	}
	W.manifest = manifest
	com := fmt.Sprintf("%s %10.5f %10.5f %d %g %8.3f %d %s %s > wham.log 2>&1",
		W.command, P.Min, P.Max, P.Bins, P.Tol, P.Temperature, errflag, manifest, W.outname)
	log.Printf("%s", com)
	command := exec.Command("sh", "-c", com)
	command.Dir = W.workdir
	var err error
	if wait {
		err = command.Run()
	} else {
		err = command.Start()
	}
	if err != nil {
		return Error{fmt.Sprintf("WHAM didn't run: %s", err.Error()), W.outname, []string{"exec", "WHAMHandle.Run"}, true}
	}
	return nil
}

//FreeEnergy parses the combiner's output into a free-energy profile,
//shifted so its minimum is zero.
func (W *WHAMHandle) FreeEnergy() (*fes.Profile, error) {
	name := W.outname
	if W.workdir != "" {
		name = W.workdir + "/" + W.outname
	}
	prof, err := fes.ProfileFileRead(name)
	if err != nil {
		return nil, errDecorate(err, "WHAMHandle.FreeEnergy")
	}
	prof.MinShift()
	return prof, nil
}

//errDecorate asserts that the error implements the goChem decorated-error
//convention and adds the caller's name to it.
func errDecorate(err error, caller string) error {
	err2, ok := err.(interface {
		Error() string
		Decorate(string) []string
	})
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err2.(error)
}
