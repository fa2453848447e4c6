/*
 * cv.go, part of gofes.
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

package fes

import (
	"fmt"
	"math"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"
)

const rad2deg = 180 / math.Pi

//A CV is a scalar function of one configuration, parameterized by a fixed
//tuple of atom indices. Implementations are stateless: the same frame
//always yields the same value. Distances are in A, angles and dihedrals
//in degrees.
type CV interface {
	//Eval returns the value of the variable for the given frame.
	Eval(coord *v3.Matrix) (float64, error)

	//Atoms returns the (0-based) indices defining the variable.
	Atoms() []int

	String() string
}

//checkIndices returns a non-nil error if the index tuple is malformed:
//negative entries or repeated atoms.
func checkIndices(caller string, indices ...int) error {
	for i, v := range indices {
		if v < 0 {
			return CError{fmt.Sprintf("%s: atom %d is negative (%d)", ErrInvalidIndices, i, v), []string{caller}}
		}
		for j, w := range indices {
			if i != j && v == w {
				return CError{fmt.Sprintf("%s: atom index %d repeated", ErrInvalidIndices, v), []string{caller}}
			}
		}
	}
	return nil
}

//checkRange returns a non-nil error if any of the indices falls outside
//the frame.
func checkRange(coord *v3.Matrix, caller string, indices ...int) error {
	if coord == nil {
		return CError{ErrNilData, []string{caller}}
	}
	n := coord.NVecs()
	for _, v := range indices {
		if v >= n {
			return CError{fmt.Sprintf("%s: atom %d requested, %d atoms in frame", ErrInvalidIndices, v, n), []string{caller}}
		}
	}
	return nil
}

//Distance is the distance between two atoms, in A.
type Distance struct {
	i, j int
}

//NewDistance returns a distance variable between atoms i and j.
func NewDistance(i, j int) (*Distance, error) {
	if err := checkIndices("NewDistance", i, j); err != nil {
		return nil, err
	}
	return &Distance{i: i, j: j}, nil
}

func (D *Distance) Atoms() []int { return []int{D.i, D.j} }

func (D *Distance) String() string { return fmt.Sprintf("distance(%d-%d)", D.i, D.j) }

func (D *Distance) Eval(coord *v3.Matrix) (float64, error) {
	if err := checkRange(coord, "Distance.Eval", D.i, D.j); err != nil {
		return 0, err
	}
	a := coord.VecView(D.i)
	b := coord.VecView(D.j)
	dx := a.At(0, 0) - b.At(0, 0)
	dy := a.At(0, 1) - b.At(0, 1)
	dz := a.At(0, 2) - b.At(0, 2)
	return math.Sqrt(dx*dx + dy*dy + dz*dz), nil
}

//Angle is the angle at atom j formed by atoms i, j and k, in degrees.
type Angle struct {
	i, j, k int
}

//NewAngle returns an angle variable for the atoms i, j and k, with j the
//vertex.
func NewAngle(i, j, k int) (*Angle, error) {
	if err := checkIndices("NewAngle", i, j, k); err != nil {
		return nil, err
	}
	return &Angle{i: i, j: j, k: k}, nil
}

func (A *Angle) Atoms() []int { return []int{A.i, A.j, A.k} }

func (A *Angle) String() string { return fmt.Sprintf("angle(%d-%d-%d)", A.i, A.j, A.k) }

func (A *Angle) Eval(coord *v3.Matrix) (float64, error) {
	if err := checkRange(coord, "Angle.Eval", A.i, A.j, A.k); err != nil {
		return 0, err
	}
	v1 := v3.Zeros(1)
	v2 := v3.Zeros(1)
	v1.Sub(coord.VecView(A.i), coord.VecView(A.j))
	v2.Sub(coord.VecView(A.k), coord.VecView(A.j))
	return chem.Angle(v1, v2) * rad2deg, nil
}

//Dihedral is the dihedral defined by four atoms, where the first plane
//contains i,j,k and the second j,k,l. In degrees, in the (-180,180] range.
type Dihedral struct {
	i, j, k, l int
}

//NewDihedral returns a dihedral variable for the atoms i, j, k and l.
func NewDihedral(i, j, k, l int) (*Dihedral, error) {
	if err := checkIndices("NewDihedral", i, j, k, l); err != nil {
		return nil, err
	}
	return &Dihedral{i: i, j: j, k: k, l: l}, nil
}

func (D *Dihedral) Atoms() []int { return []int{D.i, D.j, D.k, D.l} }

func (D *Dihedral) String() string {
	return fmt.Sprintf("dihedral(%d-%d-%d-%d)", D.i, D.j, D.k, D.l)
}

func (D *Dihedral) Eval(coord *v3.Matrix) (float64, error) {
	if err := checkRange(coord, "Dihedral.Eval", D.i, D.j, D.k, D.l); err != nil {
		return 0, err
	}
	a := coord.VecView(D.i)
	b := coord.VecView(D.j)
	c := coord.VecView(D.k)
	d := coord.VecView(D.l)
	//DihedralRama keeps the sign of the rotation; plain Dihedral folds
	//everything into [0,pi].
	return chem.DihedralRama(a, b, c, d) * rad2deg, nil
}
