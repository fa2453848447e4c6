/*
 * sim.go, part of gofes.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

//Package dynamics drives molecular-dynamics runs through an external,
//xtb-compatible engine: it builds the engine input (including any bias
//block), launches the program, and streams the recorded frames through an
//ordered list of per-frame observers. There is no integrator or
//thermostat here; those live in the engine.
package dynamics

import (
	"fmt"

	"github.com/rmera/gofes"
)

//Sim holds the parameters of one MD run. Each field is independently
//settable; Check does only basic range validation, no cross-field
//cleverness.
type Sim struct {
	ParamFile   string  //interaction-parameter file for the engine, empty for its default
	Cutoff      float64 //nonbonded cutoff radius, A. 0 leaves the engine default
	ShiftElec   bool    //shift smoothing of the electrostatics at the cutoff
	SwitchElec  bool    //switch smoothing of the electrostatics at the cutoff
	Tau         float64 //thermostat time constant, fs
	Temperature float64 //target temperature, K
	Timestep    float64 //integration timestep, fs
	Steps       int     //total integration steps
	RecordEvery int     //integration steps between recorded frames
	Charge      int
	Multi       int //multiplicity. 0 is taken as 1
}

//Check validates the physical parameters, returning a non-nil error on
//the first one that is out of range. It is meant to run before anything
//else, so a bad setup never starts a run.
func (S *Sim) Check() error {
	deco := []string{"Sim.Check"}
	switch {
	case S.Timestep <= 0:
		return Error{fmt.Sprintf("%s: timestep %5.3f fs", fes.ErrConfiguration, S.Timestep), "", "", deco, true}
	case S.Steps <= 0:
		return Error{fmt.Sprintf("%s: %d steps", fes.ErrConfiguration, S.Steps), "", "", deco, true}
	case S.Temperature <= 0:
		return Error{fmt.Sprintf("%s: temperature %5.3f K", fes.ErrConfiguration, S.Temperature), "", "", deco, true}
	case S.Tau < 0:
		return Error{fmt.Sprintf("%s: thermostat time constant %5.3f fs", fes.ErrConfiguration, S.Tau), "", "", deco, true}
	case S.Cutoff < 0:
		return Error{fmt.Sprintf("%s: cutoff %5.3f A", fes.ErrConfiguration, S.Cutoff), "", "", deco, true}
	case S.RecordEvery < 1:
		return Error{fmt.Sprintf("%s: recording interval %d", fes.ErrConfiguration, S.RecordEvery), "", "", deco, true}
	case S.RecordEvery > S.Steps:
		return Error{fmt.Sprintf("%s: recording interval %d exceeds %d steps", fes.ErrConfiguration, S.RecordEvery, S.Steps), "", "", deco, true}
	case S.Multi < 0:
		return Error{fmt.Sprintf("%s: multiplicity %d", fes.ErrConfiguration, S.Multi), "", "", deco, true}
	}
	return nil
}

//TimePs returns the total simulated time in ps.
func (S *Sim) TimePs() float64 {
	return float64(S.Steps) * S.Timestep / 1000
}

//DumpFs returns the time between recorded frames, in fs.
func (S *Sim) DumpFs() float64 {
	return float64(S.RecordEvery) * S.Timestep
}

//Error is the error type for this package, in the style of goChem's qm
//package: it carries the engine name and input name together with the
//decoration.
type Error struct {
	message   string
	engine    string
	inputname string
	deco      []string
	critical  bool
}

func (err Error) Error() string {
	if err.engine == "" {
		return fmt.Sprintf("dynamics error: %s", err.message)
	}
	return fmt.Sprintf("dynamics error: %s in %s calculation %s", err.message, err.engine, err.inputname)
}

//Decorate adds new information to the error.
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//InputName returns the name of the input associated to the error, if any.
func (err Error) InputName() string { return err.inputname }

//Critical returns true if the error is critical, false otherwise.
func (err Error) Critical() bool { return err.critical }

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
