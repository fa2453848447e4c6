/*
 * meta.go, part of gofes.
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

//Package meta implements the Gaussian-hill bias potential of
//metadynamics: accumulation of hills during a run, durable storage of the
//deposited centers, and reconstruction of the free-energy profile from a
//finite hill list. Hill deposition is flat: the height never adapts to
//the bias already accumulated (no well-tempered scheme).
package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rmera/gofes"
)

//A Hill is one Gaussian contribution to the bias: an immutable triple of
//center, width and height, deposited at one point of a run.
type Hill struct {
	Center float64
	Width  float64
	Height float64
}

//energy returns the value of the hill at CV value q.
func (H Hill) energy(q float64) float64 {
	d := q - H.Center
	return H.Height * math.Exp(-(d*d)/(2*H.Width*H.Width))
}

//gradient returns the derivative of the hill with respect to q.
func (H Hill) gradient(q float64) float64 {
	d := q - H.Center
	return -H.Height * math.Exp(-(d*d)/(2*H.Width*H.Width)) * d / (H.Width * H.Width)
}

//Bias is the growing, ordered sequence of hills deposited during a
//metadynamics run. Width and height are fixed for the run; only the
//centers accumulate. Both the potential and its gradient are always
//evaluated against the whole list deposited so far, which is what the
//integrator needs at every step.
type Bias struct {
	width   float64
	height  float64
	centers []float64
}

//NewBias returns an empty bias with the given hill width and height.
//Width and height must be positive.
func NewBias(width, height float64) (*Bias, error) {
	if width <= 0 || height <= 0 {
		return nil, Error{fmt.Sprintf("%s: hill width %5.3f, height %5.3f", fes.ErrConfiguration, width, height), "", []string{"NewBias"}, true}
	}
	return &Bias{width: width, height: height, centers: make([]float64, 0, 100)}, nil
}

//Add deposits a new hill centered at the current CV value.
func (B *Bias) Add(center float64) {
	B.centers = append(B.centers, center)
}

//Energy returns the bias potential at q, summed over every hill deposited
//so far.
func (B *Bias) Energy(q float64) float64 {
	var u float64
	for _, c := range B.centers {
		u += Hill{c, B.width, B.height}.energy(q)
	}
	return u
}

//Gradient returns the derivative of the bias potential at q, summed over
//every hill deposited so far.
func (B *Bias) Gradient(q float64) float64 {
	var g float64
	for _, c := range B.centers {
		g += Hill{c, B.width, B.height}.gradient(q)
	}
	return g
}

//NHills returns the number of hills deposited so far.
func (B *Bias) NHills() int { return len(B.centers) }

//Width returns the (fixed) hill width.
func (B *Bias) Width() float64 { return B.width }

//Height returns the (fixed) hill height.
func (B *Bias) Height() float64 { return B.height }

//Centers returns a copy of the deposited centers, in deposition order.
func (B *Bias) Centers() []float64 {
	ret := make([]float64, len(B.centers))
	copy(ret, B.centers)
	return ret
}

//Hills returns the deposited hills, in deposition order.
func (B *Bias) Hills() []Hill {
	ret := make([]Hill, 0, len(B.centers))
	for _, c := range B.centers {
		ret = append(ret, Hill{c, B.width, B.height})
	}
	return ret
}

//Block returns the input block that tells the external engine to apply
//this bias to the given collective variable. Atom indices are 1-based in
//the engine input.
func (B *Bias) Block(cv fes.CV) string {
	var b strings.Builder
	b.WriteString("$metadyn\n")
	fmt.Fprintf(&b, " width=%8.4f\n", B.width)
	fmt.Fprintf(&b, " height=%8.4f\n", B.height)
	fmt.Fprintf(&b, " %s: %s\n", cvKeyword(cv), oneBased(cv.Atoms()))
	if len(B.centers) > 0 {
		cs := make([]string, 0, len(B.centers))
		for _, c := range B.centers {
			cs = append(cs, strconv.FormatFloat(c, 'f', 4, 64))
		}
		fmt.Fprintf(&b, " centers: %s\n", strings.Join(cs, ","))
	}
	b.WriteString("$end\n")
	return b.String()
}

//cvKeyword maps a collective variable to its keyword in the engine input.
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

//Reconstruct computes the free-energy profile F(q) = -U_b(q) over the
//given grid, from a finite list of hills. It is a pure function: additive
//over hills and independent of their deposition order. The returned
//profile is shifted so its minimum is zero.
func Reconstruct(hills []Hill, grid []float64) (*fes.Profile, error) {
	if hills == nil || grid == nil {
		return nil, Error{fes.ErrNilData, "", []string{"Reconstruct"}, true}
	}
	es := make([]float64, len(grid))
	for i, q := range grid {
		for _, h := range hills {
			es[i] -= h.energy(q)
		}
	}
	prof, err := fes.NewProfile(grid, es)
	if err != nil {
		return nil, err
	}
	prof.MinShift()
	return prof, nil
}

//Reconstruct computes the free-energy profile for the hills accumulated
//in the bias. See the package-level Reconstruct.
func (B *Bias) Reconstruct(grid []float64) (*fes.Profile, error) {
	return Reconstruct(B.Hills(), grid)
}
