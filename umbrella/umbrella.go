/*
 * umbrella.go, part of gofes.
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

//Package umbrella implements the harmonic restraint of umbrella sampling,
//the per-run series/manifest bookkeeping, and the handle for an external
//WHAM program that combines the biased runs into one unbiased
//free-energy profile. Each umbrella run is independent of every other
//one, so windows can run in parallel with no coordination.
package umbrella

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmera/gofes"
)

//Umbrella is one harmonic restraint: an immutable pair of target CV value
//and spring constant (kJ/mol per squared CV unit), fixed for the lifetime
//of one biased run.
type Umbrella struct {
	Q0 float64 //target CV value
	K  float64 //spring constant
}

//New returns an umbrella centered at q0 with spring constant k. k must be
//positive.
func New(q0, k float64) (*Umbrella, error) {
	if k <= 0 {
		return nil, Error{fmt.Sprintf("%s: spring constant %5.3f", fes.ErrConfiguration, k), "", []string{"New"}, true}
	}
	return &Umbrella{Q0: q0, K: k}, nil
}

//Energy returns the restraint potential (k/2)(q-q0)^2 at CV value q.
func (U *Umbrella) Energy(q float64) float64 {
	d := q - U.Q0
	return 0.5 * U.K * d * d
}

//Gradient returns the derivative of the restraint potential at q.
func (U *Umbrella) Gradient(q float64) float64 {
	return U.K * (q - U.Q0)
}

//Block returns the input block that tells the external engine to apply
//this restraint to the given collective variable on every integration
//step. Atom indices are 1-based in the engine input.
func (U *Umbrella) Block(cv fes.CV) string {
	var b strings.Builder
	b.WriteString("$constrain\n")
	fmt.Fprintf(&b, " force constant=%8.4f\n", U.K)
	fmt.Fprintf(&b, " %s: %s, %8.4f\n", cvKeyword(cv), oneBased(cv.Atoms()), U.Q0)
	b.WriteString("$end\n")
	return b.String()
}

func cvKeyword(cv fes.CV) string {
	switch len(cv.Atoms()) {
	case 2:
		return "distance"
	case 3:
		return "angle"
	default:
		return "dihedral"
	}
}

func oneBased(atoms []int) string {
	s := make([]string, 0, len(atoms))
	for _, a := range atoms {
		s = append(s, strconv.Itoa(a+1))
	}
	return strings.Join(s, ",")
}

//Error is the error type for this package. It fulfills chem.Error.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.filename == "" {
		return fmt.Sprintf("umbrella error: %s", err.message)
	}
	return fmt.Sprintf("umbrella error in %s: %s", err.filename, err.message)
}

//Decorate adds new information to the error.
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file associated to the error, if any.
func (err Error) FileName() string { return err.filename }

//Critical returns true if the error is critical, false otherwise.
func (err Error) Critical() bool { return err.critical }
